// Command report analyses simulated orders, either from a saved state file
// or from the database journal, and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/datastore"
	"github.com/your-org/shadow-trading-bot/internal/dbwriter"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/report"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

// output is the JSON document printed by the command.
type output struct {
	Summary *report.Summary `json:"summary,omitempty"`
	Tasks   []taskReport    `json:"tasks"`
}

type taskReport struct {
	TaskID string         `json:"task_id"`
	Report *report.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func main() {
	// --- Argument Parsing ---
	statePath := flag.String("state", "", "State JSON written by the bot")
	fromDB := flag.Bool("from-db", false, "Read orders from the database journal instead of a state file")
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file (database settings)")
	save := flag.Bool("save", false, "Store each report in pnl_reports (with --from-db)")
	retainDays := flag.Int("retain-days", 0, "Delete journaled orders older than this many days after reporting (with --from-db)")
	flag.Parse()

	ctx := context.Background()
	var err error
	switch {
	case *fromDB:
		err = runFromDB(ctx, *configPath, *save, *retainDays, os.Stdout)
	case *statePath != "":
		logger.SetGlobalLogLevel("info")
		err = runFromState(ctx, *statePath, os.Stdout)
	default:
		err = errors.New("either --state or --from-db is required")
	}
	if err != nil {
		logger.Fatalf("Report failed: %v", err)
	}
}

// runFromState reports on every task of a saved state.
func runFromState(ctx context.Context, path string, w io.Writer) error {
	bot := engine.NewBot(marketdata.NewReplayProvider(nil))
	if err := bot.LoadStateFile(path); err != nil {
		return err
	}

	repo := datastore.NewInMemRepository()
	for _, t := range bot.Tasks() {
		repo.SeedOrders(t.Account.Orders)
	}
	reports, err := analyzeTasks(ctx, repo)
	if err != nil {
		return err
	}
	summary := bot.Performance()
	return writeOutput(w, output{Summary: &summary, Tasks: reports})
}

func runFromDB(ctx context.Context, configPath string, save bool, retainDays int, w io.Writer) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger.SetGlobalLogLevel(cfg.App.LogLevel)

	pool, err := dbwriter.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := datastore.NewRepository(pool)
	reports, err := analyzeTasks(ctx, repo)
	if err != nil {
		return err
	}
	if save {
		if err := saveReports(ctx, report.NewService(pool), reports); err != nil {
			return err
		}
	}
	if retainDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -retainDays)
		n, err := repo.DeleteOrdersBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		logger.Infof("Pruned %d orders older than %s", n, cutoff.Format(time.RFC3339))
	}
	return writeOutput(w, output{Tasks: reports})
}

// analyzeTasks runs the trade analysis for every task of src. A task whose
// orders cannot be analysed carries the error instead of a report.
func analyzeTasks(ctx context.Context, src datastore.OrderSource) ([]taskReport, error) {
	ids, err := src.FetchTaskIDs(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]taskReport, 0, len(ids))
	for _, id := range ids {
		orders, err := src.FetchOrders(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
		rep, err := report.AnalyzeOrders(orders)
		if err != nil {
			logger.Warnf("Skipping report for task %s: %v", id, err)
			reports = append(reports, taskReport{TaskID: id, Error: err.Error()})
			continue
		}
		reports = append(reports, taskReport{TaskID: id, Report: &rep})
	}
	return reports, nil
}

type reportSaver interface {
	SavePnlReport(ctx context.Context, r report.Report) error
}

// saveReports stores the reports with at least one completed trade.
func saveReports(ctx context.Context, svc reportSaver, reports []taskReport) error {
	saved := 0
	for _, r := range reports {
		if r.Report == nil || r.Report.TotalTrades == 0 {
			continue
		}
		if err := svc.SavePnlReport(ctx, *r.Report); err != nil {
			return err
		}
		saved++
	}
	logger.Infof("Saved %d PnL reports.", saved)
	return nil
}

func writeOutput(w io.Writer, out output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
