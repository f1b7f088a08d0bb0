// Package config_test tests the config package.
package config_test

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/shadow-trading-bot/internal/config"
	"gopkg.in/yaml.v3"
)

// writeConfig writes a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
  http_addr: ":9000"
bot:
  interval_seconds: 60
  commission_rate: 0.002
market_data:
  provider: replay
  seed: 7
analyzer:
  history_size: 60
risk:
  max_daily_loss: 0.1
database:
  enabled: "yes"
  host: db.local
  name: shadow
alert:
  enabled: 1
tasks:
  - name: crypto-run
    initial_capital: 1000
    target_percent: 10
    asset_class: crypto
    symbols: [BTC-USD, ETH-USD]
    risk_tier: medium
    duration_minutes: 120
    auto_start: true
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, 60, cfg.Bot.IntervalSeconds)
	assert.Equal(t, 0.002, cfg.Bot.CommissionRate)
	assert.Equal(t, "replay", cfg.MarketData.Provider)
	assert.Equal(t, int64(7), cfg.MarketData.Seed)
	assert.Equal(t, 60, cfg.Analyzer.HistorySize)
	assert.Equal(t, 14, cfg.Analyzer.RSIPeriod, "defaults survive partial sections")
	assert.Equal(t, 0.1, cfg.Risk.MaxDailyLoss)
	assert.True(t, cfg.Database.Enabled.Bool())
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Alert.Enabled.Bool())

	require.Len(t, cfg.Tasks, 1)
	task := cfg.Tasks[0]
	assert.Equal(t, "crypto-run", task.Name)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, task.Symbols)
	assert.Equal(t, 120, task.DurationMinutes)
	assert.True(t, task.AutoStart.Bool())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "bot:\n  interval_seconds: 30\n")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("MARKET_DATA_PROVIDER", "yahoo")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.App.LogLevel)
	assert.Equal(t, ":7070", cfg.App.HTTPAddr)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "yahoo", cfg.MarketData.Provider)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero interval", func(c *config.Config) { c.Bot.IntervalSeconds = 0 }},
		{"negative commission", func(c *config.Config) { c.Bot.CommissionRate = -0.01 }},
		{"unknown provider", func(c *config.Config) { c.MarketData.Provider = "bloomberg" }},
		{"short window not below long", func(c *config.Config) { c.Analyzer.ShortWindow = 20 }},
		{"history too small", func(c *config.Config) { c.Analyzer.HistorySize = 10 }},
		{"bad lambda", func(c *config.Config) { c.Analyzer.EWMALambda = 1.5 }},
		{"daily loss out of range", func(c *config.Config) { c.Risk.MaxDailyLoss = 1 }},
	}

	require.NoError(t, config.Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := config.DatabaseConfig{Host: "localhost", Port: 5432, User: "bot", Password: "pw", Name: "shadow"}
	assert.Equal(t, "postgres://bot:pw@localhost:5432/shadow?sslmode=disable", db.DSN())

	db.User = "bot@ops"
	db.Password = "p@ss:w/rd?#"
	db.SSLMode = "require"
	u, err := url.Parse(db.DSN())
	require.NoError(t, err)
	assert.Equal(t, "bot@ops", u.User.Username())
	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss:w/rd?#", pw)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/shadow", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestFlexBool(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"v: true", true, false},
		{"v: false", false, false},
		{"v: \"on\"", true, false},
		{"v: \"off\"", false, false},
		{"v: \"TRUE\"", true, false},
		{"v: 1", true, false},
		{"v: 0.0", false, false},
		{"v: \"maybe\"", false, true},
		{"v: [1]", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out struct {
				V config.FlexBool `yaml:"v"`
			}
			err := yaml.Unmarshal([]byte(tt.input), &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.V.Bool())
		})
	}
}
