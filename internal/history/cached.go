package history

import (
	"context"
	"log/slog"
	"time"

	"tradegate/internal/domain"
	"tradegate/internal/store"
)

// coverageSlack tolerates weekends and holidays at the edges of a cached
// range when deciding whether the cache satisfies a request.
const coverageSlack = 5 * 24 * time.Hour

// CachedFetcher reads bars from a BarStore and falls through to an upstream
// Fetcher on a miss, writing fetched bars back to the store.
type CachedFetcher struct {
	upstream Fetcher
	bars     store.BarStore
	market   string
	log      *slog.Logger
}

// NewCachedFetcher wraps upstream with a read-through cache over bars for the
// given market.
func NewCachedFetcher(upstream Fetcher, bars store.BarStore, market string) *CachedFetcher {
	return &CachedFetcher{
		upstream: upstream,
		bars:     bars,
		market:   market,
		log:      slog.Default().With("component", "history-cache"),
	}
}

// Fetch returns cached bars when they cover [start, end], otherwise fetches
// from upstream and caches the result. Cache write failures are logged, not
// surfaced: the fetched bars are still valid.
func (f *CachedFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	cached, err := f.bars.ReadBars(ctx, symbol, f.market, start, end)
	if err == nil && covers(cached, start, end) {
		f.log.Debug("cache hit", "symbol", symbol, "count", len(cached))
		return cached, nil
	}
	if err != nil {
		f.log.Warn("reading cached bars", "symbol", symbol, "error", err)
	}

	fetched, err := f.upstream.Fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(fetched) > 0 {
		if werr := f.bars.WriteBars(ctx, f.market, fetched); werr != nil {
			f.log.Warn("caching bars", "symbol", symbol, "error", werr)
		}
	}
	return fetched, nil
}

// covers reports whether cached bars span [start, end] within the weekend and
// holiday slack at both edges.
func covers(bars []domain.Bar, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	first := bars[0].Timestamp
	last := bars[len(bars)-1].Timestamp
	return first.Sub(start) <= coverageSlack && end.Sub(last) <= coverageSlack
}
