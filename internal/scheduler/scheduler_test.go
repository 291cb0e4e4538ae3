package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"BandSentinel/internal/calculator"
	"BandSentinel/internal/collector"
	"BandSentinel/internal/engine"
	"BandSentinel/internal/holding"
	"BandSentinel/internal/model"
	"BandSentinel/internal/recorder"
	"BandSentinel/internal/strategy"
	"BandSentinel/internal/window"
)

type trimRecorder struct {
	recorder.NoopRecorder
	trimmed map[string]int
	err     error
}

func (r *trimRecorder) Trim(_ context.Context, symbol string, keep int) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.trimmed[symbol] = keep
	return 1, nil
}

func newTestScheduler(t *testing.T, src *collector.MockSource, rec recorder.Recorder) *Scheduler {
	t.Helper()
	store, _ := window.NewStore(3)
	calc, _ := calculator.NewBandCalculator(3, 2)
	eval, _ := strategy.NewEvaluator(5)
	book, _ := holding.NewBook("")
	eng, err := engine.New(engine.Options{Store: store, Calculator: calc, Evaluator: eval, Holdings: book, Recorder: rec, Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	col := collector.NewCollector(src, []string{"AAPL", "MSFT"}, zerolog.Nop())
	return NewScheduler(context.Background(), col, eng, book, rec, zerolog.Nop())
}

func TestRunPollNowStopLoss(t *testing.T) {
	src := &collector.MockSource{Prices: map[string]float64{"AAPL": 100, "MSFT": 400}}
	s := newTestScheduler(t, src, recorder.NewNoopRecorder())

	if reply := s.HandleCommand("/hold", []string{"aapl", "100"}); !strings.Contains(reply, "AAPL marked as held") {
		t.Fatalf("unexpected reply %q", reply)
	}

	signals, err := s.RunPollNow(context.Background())
	if err != nil || len(signals) != 0 {
		t.Fatalf("expected quiet first poll, got %v err=%v", signals, err)
	}

	src.SetPrice("AAPL", 90)
	signals, err = s.RunPollNow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 || signals[0].Kind != model.SignalStopLoss || signals[0].Symbol != "AAPL" {
		t.Fatalf("expected one AAPL stop-loss, got %+v", signals)
	}
	if s.Engine.WindowLen("MSFT") != 2 {
		t.Errorf("expected MSFT processed on both polls, got %d", s.Engine.WindowLen("MSFT"))
	}
}

func TestRunPollNowSourceError(t *testing.T) {
	src := &collector.MockSource{Err: errors.New("offline")}
	s := newTestScheduler(t, src, recorder.NewNoopRecorder())
	if _, err := s.RunPollNow(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
	if reply := s.HandleCommand("/poll", nil); !strings.Contains(reply, "offline") {
		t.Errorf("expected poll error in reply, got %q", reply)
	}
}

func TestRunTrimNow(t *testing.T) {
	rec := &trimRecorder{trimmed: map[string]int{}}
	s := newTestScheduler(t, &collector.MockSource{}, rec)
	if err := s.RunTrimNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec.trimmed["AAPL"] != 3 || rec.trimmed["MSFT"] != 3 {
		t.Errorf("expected both tickers trimmed to window size, got %v", rec.trimmed)
	}

	rec.err = errors.New("locked")
	if err := s.RunTrimNow(context.Background()); err == nil {
		t.Error("expected trim error")
	}
}

func TestHandleCommand(t *testing.T) {
	src := &collector.MockSource{Prices: map[string]float64{"AAPL": 180}}
	s := newTestScheduler(t, src, recorder.NewNoopRecorder())
	if _, err := s.RunPollNow(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		cmd  string
		args []string
		want string
	}{
		{"/bands", []string{"aapl"}, "warming up (1/3"},
		{"/bands", nil, "Usage"},
		{"/latest", []string{"AAPL"}, "AAPL: 180.00"},
		{"/latest", []string{"NVDA"}, "no price yet"},
		{"/hold", []string{"TSLA", "abc"}, "invalid price"},
		{"/hold", []string{"TSLA"}, "TSLA marked as held"},
		{"/holdings", nil, "TSLA (no entry price)"},
		{"/release", []string{"tsla"}, "TSLA released"},
		{"/release", []string{"TSLA"}, "was not held"},
		{"/poll", nil, "no signals"},
		{"/whatever", nil, "Available commands"},
	}
	for _, tt := range tests {
		if got := s.HandleCommand(tt.cmd, tt.args); !strings.Contains(got, tt.want) {
			t.Errorf("%s %v: expected %q in %q", tt.cmd, tt.args, tt.want, got)
		}
	}
}

func TestRegisterAllRejectsBadCron(t *testing.T) {
	s := newTestScheduler(t, &collector.MockSource{}, recorder.NewNoopRecorder())
	if err := s.RegisterAll("not a cron", "0 0 0 * * *"); err == nil {
		t.Fatal("expected parse error")
	}
	if err := s.RegisterAll("0 * * * * 1-5", "0 30 23 * * *"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleCommandEscapesUserText(t *testing.T) {
	s := newTestScheduler(t, &collector.MockSource{}, recorder.NewNoopRecorder())

	tests := []struct {
		cmd  string
		args []string
		want string
	}{
		{"/hold", []string{"<b>x"}, "&lt;B&gt;X marked as held"},
		{"/holdings", nil, "&lt;B&gt;X (no entry price)"},
		{"/release", []string{"<b>x"}, "&lt;B&gt;X released"},
		{"/hold", []string{"AAPL", "<i>"}, "invalid price &#34;&lt;i&gt;&#34;"},
		{"/latest", []string{"<a href=x>"}, "&lt;A HREF=X&gt;: no price yet"},
		{"/bands", []string{"<u>"}, "&lt;U&gt;: warming up"},
	}
	for _, tt := range tests {
		got := s.HandleCommand(tt.cmd, tt.args)
		if !strings.Contains(got, tt.want) {
			t.Errorf("%s %v: expected %q in %q", tt.cmd, tt.args, tt.want, got)
		}
		if strings.Contains(got, "<a") || strings.Contains(got, "<i>") || strings.Contains(got, "<u>") {
			t.Errorf("%s %v: unescaped markup in %q", tt.cmd, tt.args, got)
		}
	}
}
