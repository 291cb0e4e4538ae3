package recorder

import (
	"context"

	"BandSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) AppendPrice(context.Context, model.PriceObservation) error { return nil }
func (n *NoopRecorder) LoadRecent(context.Context, string, int) ([]model.PriceObservation, error) {
	return nil, nil
}
func (n *NoopRecorder) Trim(context.Context, string, int) (int64, error)     { return 0, nil }
func (n *NoopRecorder) RecordSignal(context.Context, model.Signal) error { return nil }
func (n *NoopRecorder) Close() error                                     { return nil }
