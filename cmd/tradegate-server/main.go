package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tradegate/internal/api"
	"tradegate/internal/backtest"
	"tradegate/internal/broker"
	"tradegate/internal/config"
	"tradegate/internal/engine"
	"tradegate/internal/history"
	"tradegate/internal/store"
	"tradegate/internal/strategy"
	"tradegate/internal/stream"
	"tradegate/internal/util"
)

func main() {
	cfgPath := "config/tradegate.yaml"
	if p := os.Getenv("TRADEGATE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Bar cache backend.
	var bars store.BarStore
	switch cfg.Storage.BarStore {
	case "clickhouse":
		ch, err := store.NewClickHouseStore(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			log.Fatalf("failed to open clickhouse store: %v", err)
		}
		defer ch.Close()
		bars = ch
	default:
		bars = store.NewParquetStore(cfg.Storage.DataDir)
	}

	// Backtest run history.
	var runs store.RunStore
	if cfg.Storage.SQLitePath != "" {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open run store: %v", err)
		}
		defer db.Close()
		runs = db
	}

	fetcher := history.NewAlpacaFetcher(history.AlpacaFetcherOpts{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		Feed:            cfg.Alpaca.Feed,
		RateLimitPerMin: cfg.Backtest.RateLimitPerMin,
		Retries:         cfg.Backtest.FetchRetries,
	})
	cached := history.NewCachedFetcher(fetcher, bars, "us")

	// The Alpaca client serves quotes in both modes; in paper mode order
	// execution is simulated locally against live quotes.
	alpacaBroker := broker.NewAlpacaBroker(broker.AlpacaBrokerOpts{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		BaseURL:   cfg.Alpaca.BaseURL,
		DataURL:   cfg.Alpaca.DataURL,
		Feed:      cfg.Alpaca.Feed,
	})

	var b broker.Broker = alpacaBroker
	if cfg.Trading.PaperMode {
		b = broker.NewSimulatorBroker(cfg.Backtest.InitialCapital, alpacaBroker.LatestPrice)
	}

	eng := engine.NewEngine(b, engine.NewRiskManager(cfg.Trading.MaxPositionPct), logger)

	backtests := backtest.NewRunner(cached, runs, logger)
	registry := strategy.NewDefaultRegistry()
	strategies := strategy.NewRunner(registry, cached, eng, cfg.Trading.DefaultQty, logger)

	orderHub := stream.NewHub("orders")
	bookHub := stream.NewHub("orderbook")
	go orderHub.Run()
	go bookHub.Run()

	if !cfg.Trading.PaperMode {
		orderFeed := stream.NewOrderFeed(alpacaBroker.TradingClient(), orderHub)
		go func() {
			if err := orderFeed.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("order feed stopped", "error", err)
			}
		}()
	}
	if len(cfg.Stream.Symbols) > 0 {
		quoteFeed := stream.NewQuoteFeed(cfg.Alpaca.Feed, cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, bookHub)
		go func() {
			if err := quoteFeed.Run(ctx, cfg.Stream.Symbols); err != nil && ctx.Err() == nil {
				slog.Error("quote feed stopped", "error", err)
			}
		}()
	}

	srv := api.NewServer(eng, backtests, strategies, registry, runs, orderHub, bookHub, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("starting tradegate server",
		"addr", addr,
		"broker", b.Name(),
		"barStore", cfg.Storage.BarStore,
		"paperMode", cfg.Trading.PaperMode,
	)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
