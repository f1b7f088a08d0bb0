// Command export writes simulated orders as CSV, from a saved state file or
// from the database journal.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/csvwriter"
	"github.com/your-org/shadow-trading-bot/internal/datastore"
	"github.com/your-org/shadow-trading-bot/internal/dbwriter"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

func main() {
	// --- Argument Parsing ---
	statePath := flag.String("state", "", "State JSON written by the bot")
	fromDB := flag.Bool("from-db", false, "Read orders from the database journal instead of a state file")
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file (database settings)")
	taskID := flag.String("task", "", "Export only this task")
	outPath := flag.String("out", "", "Output CSV file (default stdout)")
	flag.Parse()

	logger.SetGlobalLogLevel("info")
	ctx := context.Background()

	var src datastore.OrderSource
	switch {
	case *fromDB:
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load configuration to get DB settings: %v", err)
		}
		pool, err := dbwriter.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			logger.Fatalf("Unable to connect to database: %v", err)
		}
		defer pool.Close()
		src = datastore.NewRepository(pool)
	case *statePath != "":
		repo, err := stateSource(*statePath)
		if err != nil {
			logger.Fatalf("Failed to read state: %v", err)
		}
		src = repo
	default:
		logger.Fatal("Either --state or --from-db is required.")
	}

	var w *csvwriter.Writer
	if *outPath != "" {
		fw, err := csvwriter.NewWriter(*outPath, logger.Zap())
		if err != nil {
			logger.Fatalf("Failed to create output: %v", err)
		}
		w = fw
	} else {
		w = csvwriter.New(os.Stdout, logger.Zap())
	}

	n, err := exportOrders(ctx, src, *taskID, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Fatalf("Export failed: %v", err)
	}
	logger.Infof("Successfully exported %d orders.", n)
}

// stateSource indexes the orders of a saved state by task.
func stateSource(path string) (*datastore.InMemRepository, error) {
	state, err := engine.ReadStateFile(path)
	if err != nil {
		return nil, err
	}
	repo := datastore.NewInMemRepository()
	for _, t := range state.Tasks {
		repo.SeedOrders(t.Account.Orders)
	}
	return repo, nil
}

// exportOrders writes the orders of taskID, or of every task when taskID is
// empty, and returns how many were written.
func exportOrders(ctx context.Context, src datastore.OrderSource, taskID string, w *csvwriter.Writer) (int, error) {
	ids := []string{taskID}
	if taskID == "" {
		var err error
		if ids, err = src.FetchTaskIDs(ctx); err != nil {
			return 0, err
		}
	}

	total := 0
	if len(ids) == 0 {
		return 0, w.WriteOrders(nil)
	}
	for _, id := range ids {
		orders, err := src.FetchOrders(ctx, id)
		if err != nil {
			return total, err
		}
		if err := w.WriteOrders(orders); err != nil {
			return total, err
		}
		total += len(orders)
	}
	if total == 0 && taskID != "" {
		return 0, errors.New("no orders for task " + taskID)
	}
	return total, nil
}

