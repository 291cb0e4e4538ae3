package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"BandSentinel/internal/metrics"
	"BandSentinel/internal/model"
)

// MockSource returns controllable fixed prices for development and testing.
// Each call advances its clock by Step so observations stay ordered.
type MockSource struct {
	mu     sync.Mutex
	Prices map[string]float64
	Start  time.Time
	Step   time.Duration
	Err    error
	calls  int
}

func (m *MockSource) Name() string { return "mock" }

// SetPrice changes the price returned for symbol on later fetches.
func (m *MockSource) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Prices == nil {
		m.Prices = make(map[string]float64)
	}
	m.Prices[model.NormalizeSymbol(symbol)] = price
}

func (m *MockSource) FetchLatest(_ context.Context, symbols []string) ([]model.PriceObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	start, step := m.Start, m.Step
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	if step == 0 {
		step = time.Minute
	}
	ts := start.Add(time.Duration(m.calls) * step)
	m.calls++

	out := make([]model.PriceObservation, 0, len(symbols))
	for _, sym := range symbols {
		sym = model.NormalizeSymbol(sym)
		if p, ok := m.Prices[sym]; ok {
			out = append(out, model.PriceObservation{Symbol: sym, Price: p, Timestamp: ts})
		}
	}
	return out, nil
}

// Collector pulls the latest observations for the configured tickers.
type Collector struct {
	Source  PriceSource
	Tickers []string
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(source PriceSource, tickers []string, log zerolog.Logger) *Collector {
	normalized := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = model.NormalizeSymbol(t); t != "" {
			normalized = append(normalized, t)
		}
	}
	return &Collector{Source: source, Tickers: normalized, log: log}
}

// Collect fetches one observation per ticker. Observations that fail
// validation or name an unrequested symbol are dropped. A partial source
// error is logged and the valid observations are still returned.
func (c *Collector) Collect(ctx context.Context) ([]model.PriceObservation, error) {
	if len(c.Tickers) == 0 {
		return nil, nil
	}
	raw, err := c.Source.FetchLatest(ctx, c.Tickers)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(c.Source.Name()).Inc()
		if len(raw) == 0 {
			return nil, fmt.Errorf("collect from %s: %w", c.Source.Name(), err)
		}
		c.log.Warn().Err(err).Str("source", c.Source.Name()).Msg("partial fetch failure")
	}

	wanted := make(map[string]bool, len(c.Tickers))
	for _, t := range c.Tickers {
		wanted[t] = true
	}

	out := make([]model.PriceObservation, 0, len(raw))
	for _, obs := range raw {
		obs.Symbol = model.NormalizeSymbol(obs.Symbol)
		if !wanted[obs.Symbol] {
			c.log.Debug().Str("symbol", obs.Symbol).Msg("ignoring unrequested symbol")
			continue
		}
		if err := obs.Validate(); err != nil {
			metrics.RejectedTicksTotal.WithLabelValues(obs.Symbol).Inc()
			c.log.Warn().Err(err).Str("symbol", obs.Symbol).Msg("dropping invalid observation")
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}
