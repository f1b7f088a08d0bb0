package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/csvwriter"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/report"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

type simulateOptions struct {
	Cycles        int
	Seed          int64
	PricesPath    string
	Capital       float64
	TargetPercent float64
	Tier          string
	AssetClass    string
	Symbols       []string
	StatePath     string
	OrdersPath    string
	Start         time.Time
}

// simulationResult is printed as JSON when a simulation ends.
type simulationResult struct {
	Cycles      int            `json:"cycles"`
	Performance report.Summary `json:"performance"`
	Tasks       []taskResult   `json:"tasks"`
}

type taskResult struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Status         engine.Status `json:"status"`
	StatusReason   string        `json:"status_reason,omitempty"`
	InitialCapital float64       `json:"initial_capital"`
	CurrentBalance float64       `json:"current_balance"`
	Orders         int           `json:"orders"`
	ClosedTrades   int           `json:"closed_trades"`
}

func simulateCmd() *cobra.Command {
	opts := simulateOptions{}
	var start string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run tasks offline for a fixed number of cycles and print a summary",
		Long: `simulate runs the configured tasks, or one task built from the flags
when --symbols is given, against synthetic or replayed prices without
waiting between cycles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cmd.Flags().Changed("config") {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if start != "" {
				t, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				opts.Start = t
			}
			logger.SetGlobalLogLevel(cfg.App.LogLevel)
			defer logger.Sync()
			return runSimulation(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.Cycles, "cycles", "n", 500, "Number of evaluation cycles")
	f.Int64Var(&opts.Seed, "seed", 1, "Seed of the synthetic provider")
	f.StringVar(&opts.PricesPath, "prices", "", "Price CSV (time,symbol,price) to replay")
	f.Float64Var(&opts.Capital, "capital", 10000, "Initial capital of the flag-defined task")
	f.Float64Var(&opts.TargetPercent, "target-percent", 10, "Target gain of the flag-defined task, in percent")
	f.StringVar(&opts.Tier, "tier", "medium", "Risk tier of the flag-defined task (low, medium, high)")
	f.StringVar(&opts.AssetClass, "asset-class", "", "Asset class of the flag-defined task")
	f.StringSliceVar(&opts.Symbols, "symbols", nil, "Symbols of the flag-defined task")
	f.StringVar(&opts.StatePath, "save-state", "", "Write the final state JSON to this path")
	f.StringVar(&opts.OrdersPath, "orders-csv", "", "Write every simulated order to this CSV")
	f.StringVar(&start, "start", "", "Simulated start time (RFC3339); defaults to now")
	return cmd
}

func runSimulation(ctx context.Context, cfg *config.Config, opts simulateOptions, out io.Writer) error {
	if opts.Cycles <= 0 {
		return fmt.Errorf("cycles must be positive, got %d", opts.Cycles)
	}

	mdCfg := cfg.MarketData
	mdCfg.Seed = opts.Seed
	if opts.PricesPath == "" {
		mdCfg.Provider = "synthetic"
	}

	// Simulated time advances one tick interval per cycle. The provider and
	// the bot share it so fills, deadlines and day rollovers agree.
	clock := time.Now().UTC()
	if !opts.Start.IsZero() {
		clock = opts.Start.UTC()
	}
	now := func() time.Time { return clock }
	step := time.Duration(mdCfg.TickIntervalSeconds * float64(time.Second))

	provider, err := buildProvider(mdCfg, opts.PricesPath, now)
	if err != nil {
		return err
	}
	bot := engine.NewBot(provider, append(botOptions(cfg), engine.WithClock(now))...)
	defer bot.Close()

	tasks := append([]config.TaskConfig(nil), cfg.Tasks...)
	if len(opts.Symbols) > 0 {
		tasks = []config.TaskConfig{{
			Name:           "simulation",
			InitialCapital: opts.Capital,
			TargetPercent:  opts.TargetPercent,
			AssetClass:     opts.AssetClass,
			Symbols:        opts.Symbols,
			RiskTier:       opts.Tier,
		}}
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks to simulate: configure tasks or pass --symbols")
	}
	for i := range tasks {
		tasks[i].AutoStart = true
	}
	if err := seedTasks(bot, tasks); err != nil {
		return err
	}

	cycles := 0
	for ; cycles < opts.Cycles && active(bot); cycles++ {
		if err := bot.RunCycle(ctx); err != nil {
			return err
		}
		clock = clock.Add(step)
	}
	logger.Infof("Simulation finished after %d cycles", cycles)

	if opts.StatePath != "" {
		if err := bot.SaveStateFile(opts.StatePath); err != nil {
			return err
		}
	}
	if opts.OrdersPath != "" {
		if err := writeOrders(bot, opts.OrdersPath); err != nil {
			return err
		}
	}

	result := simulationResult{Cycles: cycles, Performance: bot.Performance()}
	for _, t := range bot.Tasks() {
		result.Tasks = append(result.Tasks, taskResult{
			ID:             t.ID,
			Name:           t.Name,
			Status:         t.Status,
			StatusReason:   t.StatusReason,
			InitialCapital: t.InitialCapital,
			CurrentBalance: t.CurrentBalance,
			Orders:         len(t.Account.Orders),
			ClosedTrades:   len(t.Account.ClosedTrades),
		})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func active(bot *engine.Bot) bool {
	return bot.Performance().ActiveTasks > 0
}

func writeOrders(bot *engine.Bot, path string) error {
	w, err := csvwriter.NewWriter(path, logger.Zap())
	if err != nil {
		return err
	}
	for _, t := range bot.Tasks() {
		if err := w.WriteOrders(t.Account.Orders); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	logger.Zap().Info("Orders exported", zap.String("path", path))
	return nil
}

