package strategy

import (
	"errors"
	"testing"
	"time"

	"BandSentinel/internal/model"
)

var now = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(DefaultStopLossPercent)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	return e
}

func TestEvaluateBands_Boundaries(t *testing.T) {
	e := newTestEvaluator(t)
	bands := &model.BandSet{Symbol: "AAPL", SMA: 100, Upper: 110, Lower: 90}

	tests := []struct {
		price   float64
		held    bool
		kind    model.SignalKind
		trigger float64
	}{
		{89.99, false, model.SignalBuy, 90},
		{90.00, false, model.SignalNone, 0},
		{110.00, false, model.SignalNone, 0},
		{110.00, true, model.SignalNone, 0},
		{110.01, true, model.SignalSell, 110},
		{110.01, false, model.SignalNone, 0},
		{89.99, true, model.SignalNone, 0},
		{100, false, model.SignalNone, 0},
	}
	for _, tt := range tests {
		sig := e.EvaluateBands("AAPL", tt.price, bands, tt.held, now)
		if sig.Kind != tt.kind {
			t.Errorf("price %.2f held=%v: expected %s, got %s", tt.price, tt.held, tt.kind, sig.Kind)
		}
		if sig.Trigger != tt.trigger {
			t.Errorf("price %.2f held=%v: expected trigger %.2f, got %.2f", tt.price, tt.held, tt.trigger, sig.Trigger)
		}
		if sig.CurrentPrice != tt.price || sig.Symbol != "AAPL" || !sig.Timestamp.Equal(now) {
			t.Errorf("signal fields not carried through: %+v", sig)
		}
	}
}

func TestEvaluateBands_NoBands(t *testing.T) {
	e := newTestEvaluator(t)
	if sig := e.EvaluateBands("AAPL", 1, nil, false, now); sig.Kind != model.SignalNone {
		t.Errorf("expected NONE without bands, got %s", sig.Kind)
	}
}

func TestEvaluateStopLoss_Arithmetic(t *testing.T) {
	e := newTestEvaluator(t)

	if th := e.StopLossThreshold(150); th.String() != "142.5" {
		t.Fatalf("expected threshold 142.5, got %s", th)
	}

	sig := e.EvaluateStopLoss("MSFT", 142.5, 150, now)
	if sig.Kind != model.SignalStopLoss {
		t.Errorf("price at threshold: expected STOP_LOSS, got %s", sig.Kind)
	}
	if sig.Trigger != 142.5 {
		t.Errorf("expected trigger 142.5, got %v", sig.Trigger)
	}
	if sig := e.EvaluateStopLoss("MSFT", 142.51, 150, now); sig.Kind != model.SignalNone {
		t.Errorf("price above threshold: expected NONE, got %s", sig.Kind)
	}
	if sig := e.EvaluateStopLoss("MSFT", 120, 150, now); sig.Kind != model.SignalStopLoss {
		t.Errorf("price well below threshold: expected STOP_LOSS, got %s", sig.Kind)
	}
}

func TestNewEvaluator_InvalidPercent(t *testing.T) {
	for _, p := range []float64{0, -5, 100, 150} {
		if _, err := NewEvaluator(p); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("percent %v: expected ErrInvalidInput, got %v", p, err)
		}
	}
}

func TestEvaluate_StopLossTakesPriority(t *testing.T) {
	e := newTestEvaluator(t)
	entry := 150.0
	bands := &model.BandSet{SMA: 145, Upper: 150, Lower: 140}
	held := model.HoldingState{Symbol: "TSLA", IsHeld: true, EntryPrice: &entry}

	obs := model.PriceObservation{Symbol: "TSLA", Price: 130, Timestamp: now}
	if sig := e.Evaluate(obs, bands, held); sig.Kind != model.SignalStopLoss {
		t.Errorf("expected STOP_LOSS, got %s", sig.Kind)
	}

	obs.Price = 151
	if sig := e.Evaluate(obs, bands, held); sig.Kind != model.SignalSell {
		t.Errorf("expected SELL above upper band, got %s", sig.Kind)
	}

	obs.Price = 139
	if sig := e.Evaluate(obs, bands, model.HoldingState{Symbol: "TSLA"}); sig.Kind != model.SignalBuy {
		t.Errorf("expected BUY when not held, got %s", sig.Kind)
	}

	// held without a known entry price skips the stop-loss rule
	obs.Price = 100
	if sig := e.Evaluate(obs, bands, model.HoldingState{Symbol: "TSLA", IsHeld: true}); sig.Kind != model.SignalNone {
		t.Errorf("expected NONE, got %s", sig.Kind)
	}
}
