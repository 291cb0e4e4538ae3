package recorder

import (
	"context"

	"BandSentinel/internal/model"
)

// Recorder persists price history and emitted signals. Implementations must
// use parameterized statements only.
type Recorder interface {
	AppendPrice(ctx context.Context, obs model.PriceObservation) error
	// LoadRecent returns up to limit of the newest observations for symbol,
	// oldest first.
	LoadRecent(ctx context.Context, symbol string, limit int) ([]model.PriceObservation, error)
	// Trim deletes everything but the newest keep rows for symbol.
	Trim(ctx context.Context, symbol string, keep int) (int64, error)
	RecordSignal(ctx context.Context, sig model.Signal) error
	Close() error
}

func reverse(obs []model.PriceObservation) {
	for i, j := 0, len(obs)-1; i < j; i, j = i+1, j-1 {
		obs[i], obs[j] = obs[j], obs[i]
	}
}
