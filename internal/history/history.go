// Package history fetches daily OHLCV bar history for backtests, with an
// Alpaca-backed fetcher and a store-backed caching layer.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradegate/internal/domain"
	"tradegate/internal/util"
)

// Fetcher returns daily bars for a symbol within [start, end], ordered by
// timestamp ascending.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// Compile-time interface checks.
var _ Fetcher = (*AlpacaFetcher)(nil)
var _ Fetcher = (*CachedFetcher)(nil)

// AlpacaFetcher fetches daily bars from the Alpaca market-data API. API calls
// are rate-limited and retried with exponential backoff.
type AlpacaFetcher struct {
	client  *marketdata.Client
	feed    marketdata.Feed
	limiter *util.RateLimiter
	retries int
	log     *slog.Logger
}

// AlpacaFetcherOpts configures an AlpacaFetcher.
type AlpacaFetcherOpts struct {
	APIKey          string
	APISecret       string
	DataURL         string // empty for the default Alpaca data endpoint
	Feed            string // "iex" or "sip"
	RateLimitPerMin int    // API calls per minute (default 200)
	Retries         int    // attempts per call (default 3)
}

// NewAlpacaFetcher creates an AlpacaFetcher with the given credentials and
// limits.
func NewAlpacaFetcher(opts AlpacaFetcherOpts) *AlpacaFetcher {
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	if opts.RateLimitPerMin <= 0 {
		opts.RateLimitPerMin = 200
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	feed := marketdata.Feed(opts.Feed)
	if feed == "" {
		feed = marketdata.IEX
	}

	return &AlpacaFetcher{
		client:  marketdata.NewClient(clientOpts),
		feed:    feed,
		limiter: util.NewRateLimiter(opts.RateLimitPerMin),
		retries: opts.Retries,
		log:     slog.Default().With("component", "history"),
	}
}

// Fetch returns daily bars for symbol within [start, end].
func (f *AlpacaFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, f.retries, time.Second, func() error {
		var err error
		alpacaBars, err = f.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      f.feed,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	f.log.Debug("fetched bars", "symbol", symbol, "count", len(bars))
	return bars, nil
}
