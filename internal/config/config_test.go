package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "ALPACA_DATA_URL",
		"LOG_LEVEL", "NATS_URL", "TELEGRAM_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeTemp(t, "strategy.yaml", []byte(`
storage:
  data_dir: "/tmp/isd/data"
  sqlite_path: "/tmp/isd/isd.db"
server:
  host: "0.0.0.0"
  port: 8081
  grpc_port: 9091
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  feed: "sip"
logging:
  level: "debug"
  format: "text"
backtest:
  dca_acceleration: 0.2
  top_drawdowns: 3
monitor:
  telegram_chat_id: 42
`))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/isd/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/isd/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/isd/isd.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/isd/isd.db")
	}

	// -- Server --
	if got := cfg.Server.Addr(); got != "0.0.0.0:8081" {
		t.Errorf("Server.Addr() = %q, want %q", got, "0.0.0.0:8081")
	}
	if got := cfg.Server.GRPCAddr(); got != "0.0.0.0:9091" {
		t.Errorf("Server.GRPCAddr() = %q, want %q", got, "0.0.0.0:9091")
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "sip")
	}
	if cfg.Alpaca.RateLimitPerMin != 200 {
		t.Errorf("Alpaca.RateLimitPerMin = %d, want %d", cfg.Alpaca.RateLimitPerMin, 200)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	// -- Backtest --
	if cfg.Backtest.DCAAcceleration == nil || *cfg.Backtest.DCAAcceleration != 0.2 {
		t.Errorf("Backtest.DCAAcceleration = %v, want 0.2", cfg.Backtest.DCAAcceleration)
	}
	if cfg.Backtest.TopDrawdowns != 3 {
		t.Errorf("Backtest.TopDrawdowns = %d, want %d", cfg.Backtest.TopDrawdowns, 3)
	}

	// -- Monitor --
	if cfg.Monitor.LookbackDays != 550 {
		t.Errorf("Monitor.LookbackDays = %d, want %d", cfg.Monitor.LookbackDays, 550)
	}
	if cfg.Monitor.TelegramChatID != 42 {
		t.Errorf("Monitor.TelegramChatID = %d, want %d", cfg.Monitor.TelegramChatID, 42)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	if cfg.Storage.SQLitePath != filepath.Join("data", "strategies.db") {
		t.Errorf("Storage.SQLitePath = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Market.VIXSymbol != "^VIX" {
		t.Errorf("Market.VIXSymbol = %q, want %q", cfg.Market.VIXSymbol, "^VIX")
	}
	if cfg.Monitor.StaleAfterDays != 5 {
		t.Errorf("Monitor.StaleAfterDays = %d, want %d", cfg.Monitor.StaleAfterDays, 5)
	}
	if cfg.Backtest.DCAAcceleration != nil {
		t.Errorf("Backtest.DCAAcceleration = %v, want nil", *cfg.Backtest.DCAAcceleration)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeTemp(t, "env.yaml", []byte(`
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`))

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("NATS_URL", "nats://localhost:4222")

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
	if cfg.Monitor.NATSURL != "nats://localhost:4222" {
		t.Errorf("Monitor.NATSURL = %q", cfg.Monitor.NATSURL)
	}

	t.Setenv("APCA_API_KEY_ID", "apca-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "apca-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (APCA priority)", cfg.Alpaca.APIKey, "apca-key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadStrategyYAMLAndJSON(t *testing.T) {
	yamlPath := writeTemp(t, "qqq.yaml", []byte(`
etfSymbol: QQQ
startDate: "2020-01-01"
endDate: "2020-12-31"
initialCapital: 100000
triggers:
  - condition:
      type: drawdownFromPeak
      params:
        days: 60
        percentage: 10
    action:
      type: buy
      value:
        type: cashPercent
        amount: 50
    cooldown:
      days: 5
`))
	jsonPath := writeTemp(t, "qqq.json", []byte(`{
  "etfSymbol": "QQQ",
  "startDate": "2020-01-01",
  "endDate": "2020-12-31",
  "initialCapital": 100000,
  "triggers": [{
    "condition": {"type": "drawdownFromPeak", "params": {"days": 60, "percentage": 10}},
    "action": {"type": "buy", "value": {"type": "cashPercent", "amount": 50}},
    "cooldown": {"days": 5}
  }]
}`))

	for _, path := range []string{yamlPath, jsonPath} {
		cfg, err := LoadStrategy(path)
		if err != nil {
			t.Fatalf("LoadStrategy(%s) returned error: %v", filepath.Base(path), err)
		}
		if cfg.Symbol != "QQQ" || cfg.InitialCapital != 100000 {
			t.Errorf("%s: got symbol=%q capital=%v", filepath.Base(path), cfg.Symbol, cfg.InitialCapital)
		}
		if len(cfg.Triggers) != 1 {
			t.Fatalf("%s: got %d triggers, want 1", filepath.Base(path), len(cfg.Triggers))
		}
		tr := cfg.Triggers[0]
		dd, ok := tr.Condition.(domain.DrawdownFromPeak)
		if !ok {
			t.Fatalf("%s: condition type %T, want DrawdownFromPeak", filepath.Base(path), tr.Condition)
		}
		if dd.Days != 60 || dd.Percentage != 10 {
			t.Errorf("%s: condition = %+v", filepath.Base(path), dd)
		}
		if tr.Cooldown == nil || tr.Cooldown.Days != 5 || tr.Action.Value.Amount != 50 {
			t.Errorf("%s: trigger = %+v", filepath.Base(path), tr)
		}
	}
}

func TestParseStrategyInvalid(t *testing.T) {
	if _, err := ParseStrategy([]byte("{not json"), ".json"); err == nil {
		t.Error("expected JSON error")
	}
	if _, err := ParseStrategy([]byte("a: [unclosed"), ".yaml"); err == nil {
		t.Error("expected YAML error")
	}
}
