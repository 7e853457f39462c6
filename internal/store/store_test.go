package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tradegate/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	ts := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	got := ps.barPath("aapl", "us", ts)

	want := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.2,
			Close:      186.0,
			Volume:     52_000_000,
			TradeCount: 610_000,
			VWAP:       185.6,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       186.0,
			High:       187.0,
			Low:        183.9,
			Close:      184.3,
			Volume:     58_000_000,
			TradeCount: 655_000,
			VWAP:       185.1,
		},
	}

	if err := ps.WriteBars(ctx, "us", bars); err != nil {
		t.Fatalf("WriteBars failed: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL", "us",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 186.0 || got[1].Close != 184.3 {
		t.Errorf("closes = %v, %v, want 186.0, 184.3", got[0].Close, got[1].Close)
	}

	// Time-range filtering: only the second bar falls in [Jan 3, Jan 31].
	got, err = ps.ReadBars(ctx, "AAPL", "us",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadBars returned %d bars, want 1", len(got))
	}

	symbols, err := ps.ListSymbols(ctx, "us")
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "AAPL" {
		t.Errorf("ListSymbols = %v, want [AAPL]", symbols)
	}
}

func TestParquetStoreMergeDedup(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	first := []domain.Bar{{Symbol: "TSLA", Timestamp: ts, Close: 240.0}}
	if err := ps.WriteBars(ctx, "us", first); err != nil {
		t.Fatalf("WriteBars failed: %v", err)
	}

	// Rewriting the same bar timestamp replaces the earlier record.
	second := []domain.Bar{{Symbol: "TSLA", Timestamp: ts, Close: 242.5}}
	if err := ps.WriteBars(ctx, "us", second); err != nil {
		t.Fatalf("WriteBars (rewrite) failed: %v", err)
	}

	got, err := ps.ReadBars(ctx, "TSLA", "us", ts.AddDate(0, 0, -1), ts.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d bars after rewrite, want 1", len(got))
	}
	if got[0].Close != 242.5 {
		t.Errorf("Close = %v, want 242.5 (incoming record wins)", got[0].Close)
	}
}

func TestSQLiteRunStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	rec := RunRecord{
		ID:             "run-1",
		StrategyID:     "sma_crossover",
		Symbol:         "AAPL",
		StartDate:      "2024-01-01",
		EndDate:        "2024-06-30",
		InitialCapital: 10000,
		FinalValue:     11250,
		NetPerformance: 0.125,
		SharpeRatio:    1.4,
		MaxDrawdown:    -0.08,
		NumTrades:      6,
		CreatedAt:      time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := st.SaveRun(ctx, &rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.StrategyID != "sma_crossover" || got.Symbol != "AAPL" {
		t.Errorf("GetRun = %+v, want strategy sma_crossover symbol AAPL", got)
	}
	if got.FinalValue != 11250 || got.NumTrades != 6 {
		t.Errorf("GetRun values = %v/%v, want 11250/6", got.FinalValue, got.NumTrades)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestSQLiteRunStoreNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer st.Close()

	if _, err := st.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteRunStoreListOrder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := RunRecord{
			ID:         string(rune('a' + i)),
			StrategyID: "sma_crossover",
			Symbol:     "SPY",
			StartDate:  "2024-01-01",
			EndDate:    "2024-06-30",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := st.SaveRun(ctx, &rec); err != nil {
			t.Fatalf("SaveRun %d failed: %v", i, err)
		}
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("ListRuns order = %s, %s, want c, b (newest first)", runs[0].ID, runs[1].ID)
	}
}
