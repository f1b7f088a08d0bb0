// Package config handles application configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Bot        BotConfig        `yaml:"bot"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Risk       RiskConfig       `yaml:"risk"`
	Database   DatabaseConfig   `yaml:"database"`
	DBWriter   DBWriterConfig   `yaml:"db_writer"`
	Alert      AlertConfig      `yaml:"alert"`
	Tasks      []TaskConfig     `yaml:"tasks"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	LogLevel  string `yaml:"log_level"`
	HTTPAddr  string `yaml:"http_addr"`
	StatePath string `yaml:"state_path"`
}

// BotConfig controls the evaluation loop.
type BotConfig struct {
	IntervalSeconds  int     `yaml:"interval_seconds"`
	CommissionRate   float64 `yaml:"commission_rate"`
	StreamIntervalMs int     `yaml:"stream_interval_ms"`
}

// MarketDataConfig selects and tunes the tick source.
type MarketDataConfig struct {
	Provider            string  `yaml:"provider"` // synthetic, yahoo, binance, replay
	Seed                int64   `yaml:"seed"`
	TickIntervalSeconds float64 `yaml:"tick_interval_seconds"`
	YahooBaseURL        string  `yaml:"yahoo_base_url"`
	BinanceBaseURL      string  `yaml:"binance_base_url"`
	BinanceAPIKey       string  `yaml:"-"` // Loaded from env
	BinanceAPISecret    string  `yaml:"-"` // Loaded from env
	RequestTimeoutMs    int     `yaml:"request_timeout_ms"`
}

// AnalyzerConfig holds indicator window sizes.
type AnalyzerConfig struct {
	HistorySize int     `yaml:"history_size"`
	RSIPeriod   int     `yaml:"rsi_period"`
	ShortWindow int     `yaml:"short_window"`
	LongWindow  int     `yaml:"long_window"`
	MACDFast    int     `yaml:"macd_fast"`
	MACDSlow    int     `yaml:"macd_slow"`
	MACDSignal  int     `yaml:"macd_signal"`
	EWMALambda  float64 `yaml:"ewma_lambda"`
}

// RiskConfig holds account-wide guard rails applied on top of the tier table.
type RiskConfig struct {
	MaxDailyLoss float64 `yaml:"max_daily_loss"` // fraction of the day's opening balance, 0 disables
}

// DatabaseConfig holds the optional PostgreSQL journal connection.
type DatabaseConfig struct {
	Enabled  FlexBool `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"-"` // Loaded from env
	Name     string   `yaml:"name"`
	SSLMode  string   `yaml:"sslmode"`
}

// DSN renders a postgres connection URL with the credentials escaped.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// DBWriterConfig tunes journal batching.
type DBWriterConfig struct {
	BatchSize            int `yaml:"batch_size"`
	WriteIntervalSeconds int `yaml:"write_interval_seconds"`
}

// AlertConfig toggles task lifecycle notifications.
type AlertConfig struct {
	Enabled               FlexBool `yaml:"enabled"`
	BufferIntervalSeconds int      `yaml:"buffer_interval_seconds"` // 0 delivers immediately
}

// TaskConfig describes a task created at startup.
type TaskConfig struct {
	Name            string   `yaml:"name"`
	InitialCapital  float64  `yaml:"initial_capital"`
	TargetAmount    float64  `yaml:"target_amount"`
	TargetPercent   float64  `yaml:"target_percent"`
	AssetClass      string   `yaml:"asset_class"`
	Symbols         []string `yaml:"symbols"`
	RiskTier        string   `yaml:"risk_tier"`
	DurationMinutes int      `yaml:"duration_minutes"`
	AutoStart       FlexBool `yaml:"auto_start"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		App: AppConfig{
			LogLevel:  "info",
			HTTPAddr:  ":8080",
			StatePath: "data/state.json",
		},
		Bot: BotConfig{
			IntervalSeconds:  300,
			CommissionRate:   0.001,
			StreamIntervalMs: 2000,
		},
		MarketData: MarketDataConfig{
			Provider:            "synthetic",
			Seed:                1,
			TickIntervalSeconds: 300,
			YahooBaseURL:        "https://query1.finance.yahoo.com",
			BinanceBaseURL:      "https://api.binance.com",
			RequestTimeoutMs:    5000,
		},
		Analyzer: AnalyzerConfig{
			HistorySize: 50,
			RSIPeriod:   14,
			ShortWindow: 5,
			LongWindow:  20,
			MACDFast:    12,
			MACDSlow:    26,
			MACDSignal:  9,
			EWMALambda:  0.94,
		},
		Risk: RiskConfig{MaxDailyLoss: 0.05},
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		DBWriter: DBWriterConfig{
			BatchSize:            100,
			WriteIntervalSeconds: 5,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file path
// and environment variables. A .env file next to the working directory is
// loaded first when present.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	// Read YAML file
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv loads sensitive data and overrides from environment variables.
func applyEnv(cfg *Config) {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.App.HTTPAddr = addr
	}
	if provider := os.Getenv("MARKET_DATA_PROVIDER"); provider != "" {
		cfg.MarketData.Provider = provider
	}
	if apiKey := os.Getenv("BINANCE_API_KEY"); apiKey != "" {
		cfg.MarketData.BinanceAPIKey = apiKey
	}
	if apiSecret := os.Getenv("BINANCE_API_SECRET"); apiSecret != "" {
		cfg.MarketData.BinanceAPISecret = apiSecret
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}
}

// Validate rejects configurations the bot cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Bot.IntervalSeconds <= 0 {
		problems = append(problems, "bot.interval_seconds must be positive")
	}
	if c.Bot.CommissionRate < 0 || c.Bot.CommissionRate >= 0.1 {
		problems = append(problems, "bot.commission_rate must be in [0, 0.1)")
	}
	switch strings.ToLower(c.MarketData.Provider) {
	case "synthetic", "yahoo", "binance", "replay":
	default:
		problems = append(problems, fmt.Sprintf("market_data.provider %q is not supported", c.MarketData.Provider))
	}
	a := c.Analyzer
	if a.RSIPeriod <= 0 || a.ShortWindow <= 0 || a.LongWindow <= 0 {
		problems = append(problems, "analyzer periods must be positive")
	}
	if a.ShortWindow >= a.LongWindow {
		problems = append(problems, "analyzer.short_window must be smaller than analyzer.long_window")
	}
	if a.HistorySize < a.LongWindow || a.HistorySize < a.RSIPeriod+1 {
		problems = append(problems, "analyzer.history_size must hold the long window and rsi period")
	}
	if a.EWMALambda <= 0 || a.EWMALambda >= 1 {
		problems = append(problems, "analyzer.ewma_lambda must be in (0, 1)")
	}
	if c.Risk.MaxDailyLoss < 0 || c.Risk.MaxDailyLoss >= 1 {
		problems = append(problems, "risk.max_daily_loss must be in [0, 1)")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
