package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"BandSentinel/internal/calculator"
	"BandSentinel/internal/metrics"
	"BandSentinel/internal/model"
	"BandSentinel/internal/notifier"
	"BandSentinel/internal/recorder"
	"BandSentinel/internal/strategy"
	"BandSentinel/internal/window"
)

// HoldingProvider supplies the current position for a symbol.
type HoldingProvider interface {
	Holding(symbol string) model.HoldingState
}

// LatestCache mirrors the newest observation per symbol to a shared store.
type LatestCache interface {
	SetLatest(ctx context.Context, obs model.PriceObservation) error
}

type noHoldings struct{}

func (noHoldings) Holding(symbol string) model.HoldingState {
	return model.HoldingState{Symbol: symbol}
}

// Options wires an Engine. Store, Calculator and Evaluator are required.
type Options struct {
	Store      *window.Store
	Calculator *calculator.BandCalculator
	Cache      *calculator.BandCache
	Evaluator  *strategy.Evaluator
	Holdings   HoldingProvider
	Recorder   recorder.Recorder
	Latest     LatestCache
	Notifier   notifier.Notifier
	Tracer     trace.Tracer
	Log        zerolog.Logger
}

// Engine runs each observation through window, bands and evaluation.
type Engine struct {
	store    *window.Store
	calc     *calculator.BandCalculator
	cache    *calculator.BandCache
	eval     *strategy.Evaluator
	holdings HoldingProvider
	rec      recorder.Recorder
	latest   LatestCache
	notify   notifier.Notifier
	tracer   trace.Tracer
	log      zerolog.Logger
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Calculator == nil || opts.Evaluator == nil {
		return nil, fmt.Errorf("%w: engine needs a store, calculator and evaluator", model.ErrInvalidInput)
	}
	if opts.Store.Capacity() != opts.Calculator.WindowSize() {
		return nil, fmt.Errorf("%w: store capacity %d differs from band window %d",
			model.ErrInvalidInput, opts.Store.Capacity(), opts.Calculator.WindowSize())
	}
	e := &Engine{
		store:    opts.Store,
		calc:     opts.Calculator,
		cache:    opts.Cache,
		eval:     opts.Evaluator,
		holdings: opts.Holdings,
		rec:      opts.Recorder,
		latest:   opts.Latest,
		notify:   opts.Notifier,
		tracer:   opts.Tracer,
		log:      opts.Log,
	}
	if e.cache == nil {
		e.cache = calculator.NewBandCache()
	}
	if e.holdings == nil {
		e.holdings = noHoldings{}
	}
	if e.rec == nil {
		e.rec = recorder.NewNoopRecorder()
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("engine")
	}
	return e, nil
}

// Process handles one observation. The returned signal is NONE until the
// symbol's window holds Capacity prices. Only window rejections are
// returned as errors; side-effect failures are logged.
func (e *Engine) Process(ctx context.Context, obs model.PriceObservation) (model.Signal, error) {
	ctx, span := e.tracer.Start(ctx, "engine.process",
		trace.WithAttributes(
			attribute.String("symbol", obs.Symbol),
			attribute.Float64("price", obs.Price),
		),
	)
	defer span.End()

	obs.Symbol = model.NormalizeSymbol(obs.Symbol)
	if err := e.store.Append(obs); err != nil {
		metrics.RejectedTicksTotal.WithLabelValues(obs.Symbol).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "append rejected")
		return model.Signal{Symbol: obs.Symbol, Kind: model.SignalNone, CurrentPrice: obs.Price, Timestamp: obs.Timestamp},
			fmt.Errorf("process %s: %w", obs.Symbol, err)
	}
	metrics.TicksTotal.WithLabelValues(obs.Symbol).Inc()
	metrics.WindowFill.WithLabelValues(obs.Symbol).Set(float64(e.store.Len(obs.Symbol)))

	if err := e.rec.AppendPrice(ctx, obs); err != nil {
		e.log.Error().Err(err).Str("symbol", obs.Symbol).Msg("failed to persist price")
	}
	if e.latest != nil {
		if err := e.latest.SetLatest(ctx, obs); err != nil {
			e.log.Warn().Err(err).Str("symbol", obs.Symbol).Msg("failed to cache latest price")
		}
	}

	bands, ready, err := e.Bands(obs.Symbol)
	if err != nil {
		span.RecordError(err)
		return model.Signal{Symbol: obs.Symbol, Kind: model.SignalNone, CurrentPrice: obs.Price, Timestamp: obs.Timestamp}, err
	}
	if !ready {
		bands = nil
	}

	holding := e.holdings.Holding(obs.Symbol)
	sig := e.eval.Evaluate(obs, bands, holding)
	span.SetAttributes(attribute.String("signal", string(sig.Kind)))

	if sig.Actionable() {
		e.emit(ctx, sig)
	}
	return sig, nil
}

func (e *Engine) emit(ctx context.Context, sig model.Signal) {
	metrics.SignalsTotal.WithLabelValues(sig.Symbol, string(sig.Kind)).Inc()
	e.log.Info().
		Str("symbol", sig.Symbol).
		Str("kind", string(sig.Kind)).
		Float64("price", sig.CurrentPrice).
		Float64("trigger", sig.Trigger).
		Msg("signal")

	if e.notify != nil {
		if err := e.notify.Notify(ctx, sig); err != nil {
			e.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("failed to deliver signal")
		}
	}
	if err := e.rec.RecordSignal(ctx, sig); err != nil {
		e.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("failed to record signal")
	}
}

// Warmup refills each symbol's window from persisted history so signals
// resume without waiting for Capacity new ticks.
func (e *Engine) Warmup(ctx context.Context, symbols []string) error {
	ctx, span := e.tracer.Start(ctx, "engine.warmup")
	defer span.End()

	var errs []error
	for _, sym := range symbols {
		sym = model.NormalizeSymbol(sym)
		history, err := e.rec.LoadRecent(ctx, sym, e.store.Capacity())
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", sym, err))
			continue
		}
		if err := e.store.Load(sym, history); err != nil {
			errs = append(errs, fmt.Errorf("warm %s: %w", sym, err))
			continue
		}
		n := e.store.Len(sym)
		metrics.WindowFill.WithLabelValues(sym).Set(float64(n))
		e.log.Info().Str("symbol", sym).Int("loaded", n).Int("capacity", e.store.Capacity()).Msg("window warmed up")
	}
	return errors.Join(errs...)
}

// Bands returns the bands for the symbol's current window. ready is false
// while the window is still filling.
func (e *Engine) Bands(symbol string) (*model.BandSet, bool, error) {
	symbol = model.NormalizeSymbol(symbol)
	prices, version, ready := e.store.Snapshot(symbol)
	if !ready {
		return nil, false, nil
	}
	if b, ok := e.cache.Get(symbol, version); ok {
		return b, true, nil
	}
	b, err := e.calc.Compute(symbol, prices)
	if err != nil {
		return nil, false, err
	}
	e.cache.Put(symbol, version, *b)
	b.Version = version
	return b, true, nil
}

// Latest returns the newest price in the symbol's window.
func (e *Engine) Latest(symbol string) (float64, bool) {
	return e.store.Latest(model.NormalizeSymbol(symbol))
}

// WindowLen returns how many prices the symbol's window holds.
func (e *Engine) WindowLen(symbol string) int {
	return e.store.Len(model.NormalizeSymbol(symbol))
}

// Capacity returns the window size W.
func (e *Engine) Capacity() int { return e.store.Capacity() }

// Symbols lists every symbol with a window.
func (e *Engine) Symbols() []string { return e.store.Symbols() }
