package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/datastore"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/indicator"
	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/risk"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

// buildProvider returns the configured tick source. The replay provider is
// filled from the price CSV at pricesPath. Synthetic and replayed ticks are
// stamped from now.
func buildProvider(cfg config.MarketDataConfig, pricesPath string, now func() time.Time) (marketdata.Provider, error) {
	if pricesPath != "" || strings.EqualFold(cfg.Provider, "replay") {
		if pricesPath == "" {
			return nil, fmt.Errorf("the replay provider needs a price CSV (--prices)")
		}
		series, err := datastore.LoadPriceSeriesCSV(pricesPath)
		if err != nil {
			return nil, err
		}
		logger.Infof("Replaying %d symbols from %s", len(series), pricesPath)
		step := time.Duration(cfg.TickIntervalSeconds * float64(time.Second))
		return marketdata.NewReplayProvider(series).WithTimeline(now().UTC(), step), nil
	}
	return marketdata.NewProvider(cfg, marketdata.WithClock(now))
}

func analyzerConfig(a config.AnalyzerConfig) indicator.Config {
	return indicator.Config{
		HistorySize: a.HistorySize,
		RSIPeriod:   a.RSIPeriod,
		ShortWindow: a.ShortWindow,
		LongWindow:  a.LongWindow,
		MACDFast:    a.MACDFast,
		MACDSlow:    a.MACDSlow,
		MACDSignal:  a.MACDSignal,
		EWMALambda:  a.EWMALambda,
	}
}

// botOptions translates the shared configuration into engine options.
func botOptions(cfg *config.Config) []engine.Option {
	return []engine.Option{
		engine.WithAnalyzerConfig(analyzerConfig(cfg.Analyzer)),
		engine.WithCommissionRate(cfg.Bot.CommissionRate),
		engine.WithRiskLimits(risk.Limits{MaxDailyLoss: cfg.Risk.MaxDailyLoss}),
	}
}

func taskParams(tc config.TaskConfig) (engine.TaskParams, error) {
	var tier risk.Tier
	if tc.RiskTier != "" {
		t, err := risk.ParseTier(tc.RiskTier)
		if err != nil {
			return engine.TaskParams{}, fmt.Errorf("task %q: %w", tc.Name, err)
		}
		tier = t
	}
	return engine.TaskParams{
		Name:            tc.Name,
		InitialCapital:  tc.InitialCapital,
		TargetAmount:    tc.TargetAmount,
		TargetPercent:   tc.TargetPercent,
		AssetClass:      marketdata.AssetClass(tc.AssetClass),
		Symbols:         tc.Symbols,
		RiskTier:        tier,
		DurationMinutes: tc.DurationMinutes,
	}, nil
}

// seedTasks creates the configured tasks and starts the auto-start ones.
func seedTasks(bot *engine.Bot, tasks []config.TaskConfig) error {
	for _, tc := range tasks {
		params, err := taskParams(tc)
		if err != nil {
			return err
		}
		id, err := bot.CreateTask(params)
		if err != nil {
			return fmt.Errorf("task %q: %w", tc.Name, err)
		}
		if tc.AutoStart.Bool() {
			if err := bot.Start(id); err != nil {
				return fmt.Errorf("task %q: %w", tc.Name, err)
			}
		}
	}
	return nil
}
