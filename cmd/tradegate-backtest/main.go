package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tradegate/internal/backtest"
	"tradegate/internal/config"
	"tradegate/internal/history"
	"tradegate/internal/store"
	"tradegate/internal/util"
)

func main() {
	strategyID := flag.String("strategy", "sma_crossover", "strategy id (sma_crossover)")
	symbol := flag.String("symbol", "", "symbol to backtest (required)")
	from := flag.String("from", "", "start date YYYY-MM-DD (required)")
	to := flag.String("to", "", "end date YYYY-MM-DD (required)")
	capital := flag.Float64("capital", 0, "initial capital (default from config)")
	shortWindow := flag.Float64("short-window", 0, "short SMA window override")
	longWindow := flag.Float64("long-window", 0, "long SMA window override")
	save := flag.Bool("save", false, "persist the run to the run-history database")
	flag.Parse()

	if *symbol == "" || *from == "" || *to == "" {
		flag.Usage()
		os.Exit(2)
	}

	start, err := time.Parse("2006-01-02", *from)
	if err != nil {
		log.Fatalf("invalid -from date: %v", err)
	}
	end, err := time.Parse("2006-01-02", *to)
	if err != nil {
		log.Fatalf("invalid -to date: %v", err)
	}

	cfgPath := "config/tradegate.yaml"
	if p := os.Getenv("TRADEGATE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slog.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	ctx := context.Background()

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

	var runs store.RunStore
	if *save {
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
	runner := backtest.NewRunner(cached, runs, slog.Default())

	params := map[string]float64{}
	if *shortWindow > 0 {
		params["short_window"] = *shortWindow
	}
	if *longWindow > 0 {
		params["long_window"] = *longWindow
	}

	initialCapital := *capital
	if initialCapital == 0 {
		initialCapital = cfg.Backtest.InitialCapital
	}

	result, err := runner.Run(ctx, backtest.Request{
		StrategyID:     *strategyID,
		Symbol:         *symbol,
		Start:          start,
		End:            end,
		InitialCapital: initialCapital,
		Parameters:     params,
	})
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	printReport(*strategyID, *symbol, *from, *to, result)
}

// printReport writes a human-readable summary to stdout. The message printer
// formats large currency values with thousands separators.
func printReport(strategyID, symbol, from, to string, result *backtest.Result) {
	p := message.NewPrinter(language.English)
	m := result.Metrics

	p.Printf("Backtest %s on %s  [%s .. %s]\n", strategyID, symbol, from, to)
	p.Printf("  bars:              %d\n", len(result.Graph))
	p.Printf("  initial value:     $%.2f\n", m.InitialValue)
	p.Printf("  final value:       $%.2f\n", m.FinalValue)
	p.Printf("  net performance:   %+.2f%%\n", m.NetPerformance*100)
	p.Printf("  annualized return: %+.2f%%\n", m.AnnualizedReturn*100)
	p.Printf("  volatility:        %.2f%%\n", m.Volatility*100)
	p.Printf("  sharpe ratio:      %.2f\n", m.SharpeRatio)
	p.Printf("  max drawdown:      %.2f%%\n", m.MaxDrawdown*100)
	p.Printf("  trades:            %d\n", m.NumTrades)
	p.Printf("  win rate:          %.2f%%\n", m.WinRate*100)
	p.Printf("  avg profit/trade:  $%.2f\n", m.AvgProfitPerTrade)
}
