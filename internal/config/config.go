package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// DefaultPath is used when ISD_CONFIG is unset.
const DefaultPath = "config/strategy.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the strategy designer.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Server   Server   `yaml:"server"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
	Market   Market   `yaml:"market"`
	Backtest Backtest `yaml:"backtest"`
	Monitor  Monitor  `yaml:"monitor"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Addr returns the HTTP listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GRPCAddr returns the gRPC listen address.
func (s Server) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GRPCPort)
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	DataURL         string `yaml:"data_url"`
	Feed            string `yaml:"feed"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Market names the auxiliary series and cache behaviour.
type Market struct {
	VIXSymbol          string `yaml:"vix_symbol"`
	TNXSymbol          string `yaml:"tnx_symbol"`
	HistoryDays        int    `yaml:"history_days"`
	CacheToleranceDays int    `yaml:"cache_tolerance_days"`
}

// Backtest holds engine tuning.
type Backtest struct {
	DCAAcceleration *float64 `yaml:"dca_acceleration"`
	TopDrawdowns    int      `yaml:"top_drawdowns"`
}

// Monitor configures the daily signal check and its notifiers.
type Monitor struct {
	LookbackDays   int    `yaml:"lookback_days"`
	StaleAfterDays int    `yaml:"stale_after_days"`
	NATSURL        string `yaml:"nats_url"`
	NATSSubject    string `yaml:"nats_subject"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config path from ISD_CONFIG, or DefaultPath.
func Path() string {
	if p := os.Getenv("ISD_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, fills defaults and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Default returns a configuration with only defaults and environment
// overrides applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "strategies.db")
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.GRPCPort == 0 {
		cfg.Server.GRPCPort = 9090
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}
	if cfg.Alpaca.RateLimitPerMin == 0 {
		cfg.Alpaca.RateLimitPerMin = 200
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Market.VIXSymbol == "" {
		cfg.Market.VIXSymbol = "^VIX"
	}
	if cfg.Market.TNXSymbol == "" {
		cfg.Market.TNXSymbol = "^TNX"
	}
	if cfg.Market.HistoryDays == 0 {
		cfg.Market.HistoryDays = 365 * 20
	}
	if cfg.Market.CacheToleranceDays == 0 {
		cfg.Market.CacheToleranceDays = 4
	}
	if cfg.Monitor.LookbackDays == 0 {
		cfg.Monitor.LookbackDays = 550
	}
	if cfg.Monitor.StaleAfterDays == 0 {
		cfg.Monitor.StaleAfterDays = 5
	}
	if cfg.Monitor.NATSSubject == "" {
		cfg.Monitor.NATSSubject = "strategy.signals"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Monitor.NATSURL = v
	}

	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Monitor.TelegramToken = v
	}

	// Standard Alpaca env vars take priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Strategy files
// ---------------------------------------------------------------------------

// LoadStrategy reads a strategy definition from a .json, .yaml or .yml file.
// YAML is decoded generically and re-encoded as JSON so both formats share
// the tagged condition decoding.
func LoadStrategy(path string) (domain.StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StrategyConfig{}, err
	}
	return ParseStrategy(data, filepath.Ext(path))
}

// ParseStrategy decodes a strategy definition. ext selects the format; any
// value other than ".json" is treated as YAML.
func ParseStrategy(data []byte, ext string) (domain.StrategyConfig, error) {
	var cfg domain.StrategyConfig
	if !strings.EqualFold(ext, ".json") {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return cfg, fmt.Errorf("parsing strategy yaml: %w", err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return cfg, fmt.Errorf("converting strategy yaml: %w", err)
		}
		data = converted
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing strategy: %w", err)
	}
	return cfg, nil
}
