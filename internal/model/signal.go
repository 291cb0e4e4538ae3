package model

import "time"

// SignalKind indicates what the evaluator decided.
type SignalKind string

const (
	SignalNone     SignalKind = "NONE"
	SignalBuy      SignalKind = "BUY"
	SignalSell     SignalKind = "SELL"
	SignalStopLoss SignalKind = "STOP_LOSS"
)

// BandSet holds Bollinger Bands derived from one window snapshot.
type BandSet struct {
	Symbol  string  `json:"symbol"`
	SMA     float64 `json:"sma"`
	StdDev  float64 `json:"std_dev"`
	Upper   float64 `json:"upper"`
	Lower   float64 `json:"lower"`
	Version uint64  `json:"version"` // window version the bands were computed from
}

// HoldingState is supplied from outside the core on every evaluation.
type HoldingState struct {
	Symbol     string   `json:"symbol"`
	IsHeld     bool     `json:"is_held"`
	EntryPrice *float64 `json:"entry_price,omitempty"`
}

// Signal is the output of a single evaluation call.
type Signal struct {
	Symbol       string     `json:"symbol"`
	Kind         SignalKind `json:"kind"`
	CurrentPrice float64    `json:"current_price"`
	Trigger      float64    `json:"trigger"` // band or stop-loss threshold that fired, 0 for NONE
	Timestamp    time.Time  `json:"timestamp"`
}

// Actionable reports whether the signal should reach a notifier.
func (s Signal) Actionable() bool {
	return s.Kind != "" && s.Kind != SignalNone
}
