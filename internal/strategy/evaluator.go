package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"BandSentinel/internal/model"
)

// DefaultStopLossPercent is used when no stop-loss percentage is configured.
const DefaultStopLossPercent = 5.0

var hundred = decimal.NewFromInt(100)

// Evaluator turns prices, bands and holding state into signals. It keeps no
// state between calls.
type Evaluator struct {
	stopLossPct decimal.Decimal
}

// NewEvaluator creates an Evaluator. stopLossPercent must lie in (0, 100).
func NewEvaluator(stopLossPercent float64) (*Evaluator, error) {
	if !(stopLossPercent > 0) || stopLossPercent >= 100 {
		return nil, fmt.Errorf("%w: stop-loss percent %v must be in (0, 100)", model.ErrInvalidInput, stopLossPercent)
	}
	return &Evaluator{stopLossPct: decimal.NewFromFloat(stopLossPercent)}, nil
}

// StopLossPercent returns the configured percentage.
func (e *Evaluator) StopLossPercent() float64 {
	return e.stopLossPct.InexactFloat64()
}

// EvaluateBands applies the Bollinger rule. Touching a band exactly does not
// trigger; nil bands mean the window is not ready and yield NONE.
func (e *Evaluator) EvaluateBands(symbol string, price float64, bands *model.BandSet, isHeld bool, at time.Time) model.Signal {
	sig := model.Signal{Symbol: symbol, Kind: model.SignalNone, CurrentPrice: price, Timestamp: at}
	if bands == nil {
		return sig
	}
	switch {
	case price < bands.Lower && !isHeld:
		sig.Kind = model.SignalBuy
		sig.Trigger = bands.Lower
	case price > bands.Upper && isHeld:
		sig.Kind = model.SignalSell
		sig.Trigger = bands.Upper
	}
	return sig
}

// EvaluateStopLoss fires when price falls to or below
// entryPrice × (1 − pct/100).
func (e *Evaluator) EvaluateStopLoss(symbol string, price, entryPrice float64, at time.Time) model.Signal {
	sig := model.Signal{Symbol: symbol, Kind: model.SignalNone, CurrentPrice: price, Timestamp: at}

	threshold := e.StopLossThreshold(entryPrice)
	if decimal.NewFromFloat(price).LessThanOrEqual(threshold) {
		sig.Kind = model.SignalStopLoss
		sig.Trigger = threshold.InexactFloat64()
	}
	return sig
}

// StopLossThreshold returns the exit price for an entry price.
func (e *Evaluator) StopLossThreshold(entryPrice float64) decimal.Decimal {
	keep := decimal.NewFromInt(1).Sub(e.stopLossPct.Div(hundred))
	return decimal.NewFromFloat(entryPrice).Mul(keep)
}

// Evaluate combines both rules for one tick. A held position with a known
// entry price is checked against its stop-loss first.
func (e *Evaluator) Evaluate(obs model.PriceObservation, bands *model.BandSet, holding model.HoldingState) model.Signal {
	if holding.IsHeld && holding.EntryPrice != nil {
		if sig := e.EvaluateStopLoss(obs.Symbol, obs.Price, *holding.EntryPrice, obs.Timestamp); sig.Actionable() {
			return sig
		}
	}
	return e.EvaluateBands(obs.Symbol, obs.Price, bands, holding.IsHeld, obs.Timestamp)
}
