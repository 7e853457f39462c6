package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// ErrRunNotFound is returned by GetRun when no run exists with the given ID.
var ErrRunNotFound = errors.New("store: run not found")

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id              TEXT PRIMARY KEY,
	strategy_id     TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	final_value     REAL NOT NULL,
	net_performance REAL NOT NULL,
	sharpe_ratio    REAL NOT NULL,
	max_drawdown    REAL NOT NULL,
	num_trades      INTEGER NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON backtest_runs (created_at);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a new run summary into the database.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, strategy_id, symbol, start_date, end_date,
			 initial_capital, final_value, net_performance,
			 sharpe_ratio, max_drawdown, num_trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StrategyID, rec.Symbol, rec.StartDate, rec.EndDate,
		rec.InitialCapital, rec.FinalValue, rec.NetPerformance,
		rec.SharpeRatio, rec.MaxDrawdown, rec.NumTrades,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetRun retrieves a single run summary by its ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy_id, symbol, start_date, end_date,
		       initial_capital, final_value, net_performance,
		       sharpe_ratio, max_drawdown, num_trades, created_at
		FROM backtest_runs WHERE id = ?`, id)

	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListRuns returns the most recent run summaries, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy_id, symbol, start_date, end_date,
		       initial_capital, final_value, net_performance,
		       sharpe_ratio, max_drawdown, num_trades, created_at
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// scanner abstracts over *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var rec RunRecord
	var createdAt string
	err := s.Scan(
		&rec.ID, &rec.StrategyID, &rec.Symbol, &rec.StartDate, &rec.EndDate,
		&rec.InitialCapital, &rec.FinalValue, &rec.NetPerformance,
		&rec.SharpeRatio, &rec.MaxDrawdown, &rec.NumTrades, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if ts, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		rec.CreatedAt = ts
	}
	return &rec, nil
}
