package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/shadow-trading-bot/internal/alert"
	"github.com/your-org/shadow-trading-bot/internal/assistant"
	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/datastore"
	"github.com/your-org/shadow-trading-bot/internal/dbwriter"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/http/handler"
	"github.com/your-org/shadow-trading-bot/internal/metrics"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var pricesPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation loop and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), pricesPath)
		},
	}
	cmd.Flags().StringVar(&pricesPath, "prices", "", "Price CSV (time,symbol,price) to replay instead of the configured provider")
	return cmd
}

func runServe(ctx context.Context, pricesPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// --- Logger ---
	logger.SetGlobalLogLevel(cfg.App.LogLevel)
	defer logger.Sync()
	logger.Info("Shadow trading bot starting...")
	logger.Infof("Loaded configuration from: %s", configPath)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(cfg.MarketData, pricesPath, time.Now)
	if err != nil {
		return err
	}

	// --- Database journal (optional) ---
	var journal dbwriter.Journal
	var pnlSource handler.MetricsSource
	if cfg.Database.Enabled.Bool() {
		dsn := cfg.Database.DSN()
		if err := dbwriter.Migrate(dsn); err != nil {
			return err
		}
		pool, err := dbwriter.Connect(ctx, dsn)
		if err != nil {
			return err
		}
		writer, err := dbwriter.NewTimescaleWriter(pool, cfg.DBWriter, logger.Zap())
		if err != nil {
			pool.Close()
			return err
		}
		journal = writer
		pnlSource = datastore.NewRepository(pool)
		logger.Info("TimescaleDB journal initialized successfully.")
	} else {
		journal = dbwriter.NewNoOpJournal(logger.NewLogger(cfg.App.LogLevel))
	}

	m := metrics.New()
	opts := append(botOptions(cfg),
		engine.WithJournal(journal),
		engine.WithMetrics(m),
		engine.WithNotifier(alert.NewNotifier(cfg.Alert, logger.Zap())),
	)
	bot := engine.NewBot(provider, opts...)
	defer bot.Close()

	// --- Tasks: saved state wins over the configured seed tasks ---
	if _, err := os.Stat(cfg.App.StatePath); err == nil {
		if err := bot.LoadStateFile(cfg.App.StatePath); err != nil {
			return err
		}
	} else if err := seedTasks(bot, cfg.Tasks); err != nil {
		return err
	}

	// --- HTTP API ---
	srv := &http.Server{
		Addr: cfg.App.HTTPAddr,
		Handler: handler.NewRouter(handler.RouterConfig{
			Engine:         bot,
			StatePath:      cfg.App.StatePath,
			Assistant:      assistant.NewResponder(bot, nil),
			Metrics:        m.Handler(),
			PnlSource:      pnlSource,
			StreamInterval: time.Duration(cfg.Bot.StreamIntervalMs) * time.Millisecond,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API listening on %s", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Main loop ---
	interval := time.Duration(cfg.Bot.IntervalSeconds) * time.Second
	loopErr := make(chan error, 1)
	go func() { loopErr <- bot.Run(ctx, interval) }()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, initiating shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("HTTP server failed: %v", err)
		}
		stop()
	}
	if err := <-loopErr; err != nil {
		logger.Errorf("Evaluation loop exited with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP server shutdown: %v", err)
	}

	if err := bot.SaveStateFile(cfg.App.StatePath); err != nil {
		logger.Errorf("Failed to save state: %v", err)
	}
	logger.Info("Shadow trading bot shut down gracefully.")
	return nil
}
