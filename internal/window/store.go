package window

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"BandSentinel/internal/model"
)

// ErrOutOfOrder is returned when an observation is older than the newest
// one already held for its symbol.
var ErrOutOfOrder = errors.New("out-of-order observation")

// Store keeps a fixed-capacity, oldest-first price history per symbol.
type Store struct {
	capacity int

	mu      sync.RWMutex
	windows map[string]*series
}

// series is a ring buffer; start indexes the oldest entry once full.
type series struct {
	mu      sync.RWMutex
	buf     []model.PriceObservation
	start   int
	version uint64
}

// NewStore creates a Store whose windows hold at most capacity observations.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: window size %d must be positive", model.ErrInvalidInput, capacity)
	}
	return &Store{capacity: capacity, windows: make(map[string]*series)}, nil
}

// Capacity returns the configured window size.
func (s *Store) Capacity() int { return s.capacity }

// Append inserts obs as the newest entry of its symbol's window, evicting the
// oldest entry once the window is full. Equal timestamps are kept.
func (s *Store) Append(obs model.PriceObservation) error {
	if err := obs.Validate(); err != nil {
		return err
	}
	w := s.series(obs.Symbol, true)

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.push(obs, s.capacity)
}

// Load bulk-appends observations (oldest first) for one symbol. Only the
// newest Capacity entries survive.
func (s *Store) Load(symbol string, history []model.PriceObservation) error {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", model.ErrInvalidInput)
	}
	w := s.series(symbol, true)

	w.mu.Lock()
	defer w.mu.Unlock()
	for i, obs := range history {
		if model.NormalizeSymbol(obs.Symbol) != symbol {
			return fmt.Errorf("%w: observation %d belongs to %q, not %q", model.ErrInvalidInput, i, obs.Symbol, symbol)
		}
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
		if err := w.push(obs, s.capacity); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return nil
}

// Snapshot returns exactly Capacity prices, oldest first, together with the
// window version they were read at. ready is false while the window is
// still filling.
func (s *Store) Snapshot(symbol string) (prices []float64, version uint64, ready bool) {
	w := s.series(model.NormalizeSymbol(symbol), false)
	if w == nil {
		return nil, 0, false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.buf) < s.capacity {
		return nil, w.version, false
	}
	prices = make([]float64, len(w.buf))
	for i := range w.buf {
		prices[i] = w.at(i).Price
	}
	return prices, w.version, true
}

// Latest returns the newest price for symbol.
func (s *Store) Latest(symbol string) (float64, bool) {
	w := s.series(model.NormalizeSymbol(symbol), false)
	if w == nil {
		return 0, false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.buf) == 0 {
		return 0, false
	}
	return w.at(len(w.buf) - 1).Price, true
}

// History returns a copy of the window, oldest first.
func (s *Store) History(symbol string) []model.PriceObservation {
	w := s.series(model.NormalizeSymbol(symbol), false)
	if w == nil {
		return nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.PriceObservation, len(w.buf))
	for i := range w.buf {
		out[i] = w.at(i)
	}
	return out
}

// Len returns the number of observations held for symbol.
func (s *Store) Len(symbol string) int {
	w := s.series(model.NormalizeSymbol(symbol), false)
	if w == nil {
		return 0
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.buf)
}

// Symbols lists every symbol with a window, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.windows))
	for sym := range s.windows {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *Store) series(symbol string, create bool) *series {
	s.mu.RLock()
	w, ok := s.windows[symbol]
	s.mu.RUnlock()
	if ok || !create {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[symbol]; ok {
		return w
	}
	w = &series{}
	s.windows[symbol] = w
	return w
}

// push must be called with w.mu held.
func (w *series) push(obs model.PriceObservation, capacity int) error {
	if n := len(w.buf); n > 0 {
		newest := w.at(n - 1)
		if obs.Timestamp.Before(newest.Timestamp) {
			return fmt.Errorf("%w: %s at %s is older than %s",
				ErrOutOfOrder, obs.Symbol, obs.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
				newest.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
		}
	}
	if len(w.buf) < capacity {
		w.buf = append(w.buf, obs)
	} else {
		w.buf[w.start] = obs
		w.start = (w.start + 1) % capacity
	}
	w.version++
	return nil
}

func (w *series) at(i int) model.PriceObservation {
	return w.buf[(w.start+i)%len(w.buf)]
}
