package holding

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"BandSentinel/internal/model"
)

// Book supplies holding state per symbol. It is maintained by the operator
// (file edits or chat commands); the signal engine only reads it.
type Book struct {
	mu       sync.Mutex
	state    *State
	filePath string
}

// NewBook loads or initializes the holdings file. An empty filePath keeps
// holdings in memory only.
func NewBook(filePath string) (*Book, error) {
	state := &State{Positions: make(map[string]Position)}
	if filePath != "" {
		var err error
		if state, err = LoadState(filePath); err != nil {
			return nil, fmt.Errorf("load holdings: %w", err)
		}
	}
	return &Book{state: state, filePath: filePath}, nil
}

// Holding returns the state for symbol; unknown symbols are not held.
func (b *Book) Holding(symbol string) model.HoldingState {
	symbol = model.NormalizeSymbol(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.state.Positions[symbol]
	if !ok {
		return model.HoldingState{Symbol: symbol}
	}
	hs := model.HoldingState{Symbol: symbol, IsHeld: true}
	if pos.EntryPrice != nil {
		p := *pos.EntryPrice
		hs.EntryPrice = &p
	}
	return hs
}

// Hold marks symbol as held at entryPrice. A zero entryPrice records the
// position without a stop-loss reference.
func (b *Book) Hold(symbol string, entryPrice float64) error {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", model.ErrInvalidInput)
	}
	if entryPrice < 0 {
		return fmt.Errorf("%w: entry price %v must not be negative", model.ErrInvalidInput, entryPrice)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pos := Position{OpenedAt: time.Now()}
	if entryPrice > 0 {
		pos.EntryPrice = &entryPrice
	}
	b.state.Positions[symbol] = pos
	return b.save()
}

// Release marks symbol as no longer held. It reports whether it was held.
func (b *Book) Release(symbol string) (bool, error) {
	symbol = model.NormalizeSymbol(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.state.Positions[symbol]; !ok {
		return false, nil
	}
	delete(b.state.Positions, symbol)
	return true, b.save()
}

// All returns every held symbol, sorted.
func (b *Book) All() []model.HoldingState {
	b.mu.Lock()
	symbols := make([]string, 0, len(b.state.Positions))
	for sym := range b.state.Positions {
		symbols = append(symbols, sym)
	}
	b.mu.Unlock()

	sort.Strings(symbols)
	out := make([]model.HoldingState, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, b.Holding(sym))
	}
	return out
}

func (b *Book) save() error {
	if b.filePath == "" {
		return nil
	}
	return SaveState(b.filePath, b.state)
}
