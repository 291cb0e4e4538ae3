package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidInput marks programmer or configuration errors such as a
// non-positive price or an empty symbol.
var ErrInvalidInput = errors.New("invalid input")

// PriceObservation is a single trade price for a symbol.
type PriceObservation struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPriceObservation validates and builds an observation. Symbols are
// upper-cased and trimmed.
func NewPriceObservation(symbol string, price float64, ts time.Time) (PriceObservation, error) {
	obs := PriceObservation{Symbol: NormalizeSymbol(symbol), Price: price, Timestamp: ts}
	if err := obs.Validate(); err != nil {
		return PriceObservation{}, err
	}
	return obs, nil
}

// Validate reports whether the observation can enter a window.
func (o PriceObservation) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}
	if !(o.Price > 0) || math.IsInf(o.Price, 0) {
		return fmt.Errorf("%w: price %v for %s must be positive and finite", ErrInvalidInput, o.Price, o.Symbol)
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp for %s", ErrInvalidInput, o.Symbol)
	}
	return nil
}

// NormalizeSymbol returns the canonical form of a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
