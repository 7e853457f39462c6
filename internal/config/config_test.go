package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "tradegate-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func clearEnv() {
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("TRADEGATE_PORT")
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: "0.0.0.0"
  port: 8080
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
  data_url: "https://data.alpaca.markets"
  feed: "sip"
storage:
  bar_store: "clickhouse"
  data_dir: "/tmp/tradegate/data"
  sqlite_path: "/tmp/tradegate/tradegate.db"
  clickhouse_dsn: "clickhouse://default:@localhost:9000"
logging:
  level: "warn"
  format: "json"
backtest:
  initial_capital: 25000
  rate_limit_per_min: 100
  fetch_retries: 5
trading:
  max_position_pct: 0.25
  default_qty: 50
  paper_mode: true
`)

	clearEnv()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "sip")
	}
	if cfg.Storage.BarStore != "clickhouse" {
		t.Errorf("Storage.BarStore = %q, want %q", cfg.Storage.BarStore, "clickhouse")
	}
	if cfg.Storage.SQLitePath != "/tmp/tradegate/tradegate.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/tradegate/tradegate.db")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Backtest.InitialCapital != 25000 {
		t.Errorf("Backtest.InitialCapital = %v, want %v", cfg.Backtest.InitialCapital, 25000.0)
	}
	if cfg.Trading.MaxPositionPct != 0.25 {
		t.Errorf("Trading.MaxPositionPct = %v, want %v", cfg.Trading.MaxPositionPct, 0.25)
	}
	if !cfg.Trading.PaperMode {
		t.Error("Trading.PaperMode = false, want true")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, `
alpaca:
  api_key: "k"
  api_secret: "s"
`)

	clearEnv()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.BarStore != "parquet" {
		t.Errorf("default Storage.BarStore = %q, want %q", cfg.Storage.BarStore, "parquet")
	}
	if cfg.Alpaca.Feed != "iex" {
		t.Errorf("default Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "iex")
	}
	if cfg.Backtest.InitialCapital != 10000 {
		t.Errorf("default Backtest.InitialCapital = %v, want 10000", cfg.Backtest.InitialCapital)
	}
	if cfg.Trading.DefaultQty != 100 {
		t.Errorf("default Trading.DefaultQty = %v, want 100", cfg.Trading.DefaultQty)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	clearEnv()
	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Setenv("TRADEGATE_PORT", "9999")
	defer clearEnv()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
}
