package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"BandSentinel/internal/model"
)

// SQLiteRecorder persists prices and signals to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers (dashboards, backups) run while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_prices (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol    TEXT    NOT NULL,
			price     REAL    NOT NULL,
			ts        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_symbol_ts ON stock_prices(symbol, ts)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at   INTEGER NOT NULL,
			ts            INTEGER NOT NULL,
			symbol        TEXT    NOT NULL,
			kind          TEXT    NOT NULL,
			current_price REAL,
			trigger_price REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, ts)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) AppendPrice(ctx context.Context, obs model.PriceObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stock_prices (symbol, price, ts) VALUES (?,?,?)`,
		obs.Symbol, obs.Price, obs.Timestamp.UnixNano(),
	)
	return err
}

func (r *SQLiteRecorder) LoadRecent(ctx context.Context, symbol string, limit int) ([]model.PriceObservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT price, ts FROM stock_prices
		 WHERE symbol = ?
		 ORDER BY ts DESC, id DESC
		 LIMIT ?`,
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent prices: %w", err)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var (
			price float64
			ts    int64
		)
		if err := rows.Scan(&price, &ts); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		out = append(out, model.PriceObservation{Symbol: symbol, Price: price, Timestamp: time.Unix(0, ts).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func (r *SQLiteRecorder) Trim(ctx context.Context, symbol string, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM stock_prices
		 WHERE symbol = ? AND id NOT IN (
		     SELECT id FROM stock_prices
		     WHERE symbol = ?
		     ORDER BY ts DESC, id DESC
		     LIMIT ?
		 )`,
		symbol, symbol, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("trim %s: %w", symbol, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRecorder) RecordSignal(ctx context.Context, sig model.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO signals (recorded_at, ts, symbol, kind, current_price, trigger_price)
		 VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), sig.Timestamp.UnixNano(), sig.Symbol, string(sig.Kind),
		sig.CurrentPrice, sig.Trigger,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
