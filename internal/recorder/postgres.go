package recorder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"BandSentinel/internal/model"
)

// PgxPool is the subset of *pgxpool.Pool the recorder needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRecorder persists prices and signals to PostgreSQL.
type PostgresRecorder struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPostgresRecorder(pool PgxPool, tracer trace.Tracer) *PostgresRecorder {
	return &PostgresRecorder{pool: pool, tracer: tracer}
}

func (r *PostgresRecorder) RunMigrations(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_prices (
			id     BIGSERIAL PRIMARY KEY,
			symbol TEXT             NOT NULL,
			price  DOUBLE PRECISION NOT NULL,
			ts     TIMESTAMPTZ      NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_symbol_ts ON stock_prices (symbol, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id            BIGSERIAL PRIMARY KEY,
			recorded_at   TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			ts            TIMESTAMPTZ      NOT NULL,
			symbol        TEXT             NOT NULL,
			kind          TEXT             NOT NULL,
			current_price DOUBLE PRECISION,
			trigger_price DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals (symbol, ts DESC)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (r *PostgresRecorder) AppendPrice(ctx context.Context, obs model.PriceObservation) error {
	ctx, span := r.tracer.Start(ctx, "price-recorder.append-price",
		trace.WithAttributes(attribute.String("symbol", obs.Symbol)))
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock_prices (symbol, price, ts) VALUES ($1, $2, $3)`,
		obs.Symbol, obs.Price, obs.Timestamp,
	)
	return err
}

func (r *PostgresRecorder) LoadRecent(ctx context.Context, symbol string, limit int) ([]model.PriceObservation, error) {
	ctx, span := r.tracer.Start(ctx, "price-recorder.load-recent",
		trace.WithAttributes(attribute.String("symbol", symbol), attribute.Int("limit", limit)))
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, price, ts
		 FROM stock_prices
		 WHERE symbol = $1
		 ORDER BY ts DESC, id DESC
		 LIMIT $2`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var obs model.PriceObservation
		if err := rows.Scan(&obs.Symbol, &obs.Price, &obs.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func (r *PostgresRecorder) Trim(ctx context.Context, symbol string, keep int) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "price-recorder.trim",
		trace.WithAttributes(attribute.String("symbol", symbol), attribute.Int("keep", keep)))
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM stock_prices
		 WHERE symbol = $1 AND id NOT IN (
		     SELECT id FROM stock_prices
		     WHERE symbol = $1
		     ORDER BY ts DESC, id DESC
		     LIMIT $2
		 )`,
		symbol, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("trim %s: %w", symbol, err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRecorder) RecordSignal(ctx context.Context, sig model.Signal) error {
	ctx, span := r.tracer.Start(ctx, "price-recorder.record-signal")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO signals (ts, symbol, kind, current_price, trigger_price)
		 VALUES ($1, $2, $3, $4, $5)`,
		sig.Timestamp, sig.Symbol, string(sig.Kind), sig.CurrentPrice, sig.Trigger,
	)
	return err
}

// Close is a no-op; the pool is owned by the caller.
func (r *PostgresRecorder) Close() error { return nil }
