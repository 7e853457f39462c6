package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradegate/internal/domain"
	"tradegate/internal/store"
)

// stubFetcher returns canned bars and counts calls.
type stubFetcher struct {
	bars  []domain.Bar
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string, _, _ time.Time) ([]domain.Bar, error) {
	s.calls++
	return s.bars, s.err
}

func dailyBars(symbol string, start time.Time, closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestCachedFetcherMissThenHit(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)

	upstream := &stubFetcher{bars: dailyBars("AAPL", start, 10, 11, 12, 13, 14)}
	bars := store.NewParquetStore(t.TempDir())
	cf := NewCachedFetcher(upstream, bars, "us")

	// First call misses the cache and hits upstream.
	got, err := cf.Fetch(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("Fetch (miss) failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("Fetch returned %d bars, want 5", len(got))
	}
	if upstream.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", upstream.calls)
	}

	// Second call is served from the cache.
	got, err = cf.Fetch(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("Fetch (hit) failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("cached Fetch returned %d bars, want 5", len(got))
	}
	if upstream.calls != 1 {
		t.Errorf("upstream calls after cache hit = %d, want 1", upstream.calls)
	}
}

func TestCachedFetcherPartialCoverageRefetches(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	bars := store.NewParquetStore(t.TempDir())
	// Seed the cache with bars ending well before the requested end.
	if err := bars.WriteBars(ctx, "us", dailyBars("AAPL", start, 10, 11)); err != nil {
		t.Fatalf("seeding cache failed: %v", err)
	}

	end := start.AddDate(0, 0, 20)
	upstream := &stubFetcher{bars: dailyBars("AAPL", start, 10, 11, 12, 13, 14)}
	cf := NewCachedFetcher(upstream, bars, "us")

	if _, err := cf.Fetch(ctx, "AAPL", start, end); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if upstream.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (stale cache should refetch)", upstream.calls)
	}
}

func TestCachedFetcherUpstreamError(t *testing.T) {
	wantErr := errors.New("api down")
	upstream := &stubFetcher{err: wantErr}
	cf := NewCachedFetcher(upstream, store.NewParquetStore(t.TempDir()), "us")

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if _, err := cf.Fetch(context.Background(), "AAPL", start, start.AddDate(0, 0, 5)); !errors.Is(err, wantErr) {
		t.Errorf("Fetch error = %v, want %v", err, wantErr)
	}
}

func TestCovers(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)

	tests := []struct {
		name string
		bars []domain.Bar
		want bool
	}{
		{"empty", nil, false},
		{"full range", dailyBars("X", start, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11), true},
		{"weekend edges", dailyBars("X", start.AddDate(0, 0, 2), 1, 2, 3, 4, 5, 6, 7), true},
		{"stale tail", dailyBars("X", start, 1, 2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := covers(tt.bars, start, end); got != tt.want {
				t.Errorf("covers() = %v, want %v", got, tt.want)
			}
		})
	}
}
