package marketdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/config"
)

// NewProvider builds the provider selected by cfg.Provider. opts apply to the
// synthetic provider only. The replay provider starts empty; callers load
// sequences into it directly.
func NewProvider(cfg config.MarketDataConfig, opts ...SyntheticOption) (Provider, error) {
	timeout := time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	switch strings.ToLower(cfg.Provider) {
	case "synthetic", "":
		step := time.Duration(cfg.TickIntervalSeconds * float64(time.Second))
		return NewSyntheticProvider(cfg.Seed, append([]SyntheticOption{WithTickInterval(step)}, opts...)...), nil
	case "yahoo":
		return NewYahooProvider(cfg.YahooBaseURL, timeout), nil
	case "binance":
		return NewBinanceProvider(cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceBaseURL, timeout), nil
	case "replay":
		return NewReplayProvider(nil), nil
	default:
		return nil, fmt.Errorf("unsupported market data provider %q", cfg.Provider)
	}
}
