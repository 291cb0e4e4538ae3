package calculator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"BandSentinel/internal/model"
)

// ErrWindowSize is returned when Compute receives anything other than a
// full window.
var ErrWindowSize = errors.New("price series does not match window size")

// BandCalculator computes Bollinger Bands over a full window.
type BandCalculator struct {
	windowSize int
	multiplier float64
}

// NewBandCalculator creates a calculator for windows of windowSize prices
// with bands at multiplier standard deviations.
func NewBandCalculator(windowSize int, multiplier float64) (*BandCalculator, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size %d must be positive", model.ErrInvalidInput, windowSize)
	}
	if !(multiplier > 0) {
		return nil, fmt.Errorf("%w: band multiplier %v must be positive", model.ErrInvalidInput, multiplier)
	}
	return &BandCalculator{windowSize: windowSize, multiplier: multiplier}, nil
}

func (c *BandCalculator) WindowSize() int     { return c.windowSize }
func (c *BandCalculator) Multiplier() float64 { return c.multiplier }

// Compute returns SMA and bands using the population standard deviation
// (divisor = window size). prices must be oldest first.
func (c *BandCalculator) Compute(symbol string, prices []float64) (*model.BandSet, error) {
	if len(prices) != c.windowSize {
		return nil, fmt.Errorf("%w: got %d prices, want %d", ErrWindowSize, len(prices), c.windowSize)
	}
	mean, std := stat.PopMeanStdDev(prices, nil)
	return &model.BandSet{
		Symbol: symbol,
		SMA:    mean,
		StdDev: std,
		Upper:  mean + c.multiplier*std,
		Lower:  mean - c.multiplier*std,
	}, nil
}
