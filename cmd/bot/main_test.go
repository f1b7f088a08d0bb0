package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/csvwriter"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/risk"
)

// writePriceCSV writes prices for symbol, one minute apart.
func writePriceCSV(t *testing.T, symbol string, prices []float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("time,symbol,price\n")
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	for i, p := range prices {
		fmt.Fprintf(&b, "%s,%s,%g\n", start.Add(time.Duration(i)*time.Minute).Format(time.RFC3339), symbol, p)
	}
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// buyThenTakeProfit produces one entry at 90 and a take-profit exit at 200.
func buyThenTakeProfit() []float64 {
	prices := []float64{50, 50, 50, 50, 50, 100}
	for p := 99.0; p >= 87; p-- {
		prices = append(prices, p)
	}
	return append(prices, 90, 200)
}

func decodeResult(t *testing.T, buf *bytes.Buffer) simulationResult {
	t.Helper()
	var result simulationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	return result
}

func TestRunSimulation_Replay(t *testing.T) {
	dir := t.TempDir()
	opts := simulateOptions{
		Cycles:        100,
		PricesPath:    writePriceCSV(t, "AAPL", buyThenTakeProfit()),
		Capital:       100,
		TargetPercent: 10,
		Tier:          "high",
		Symbols:       []string{"AAPL"},
		StatePath:     filepath.Join(dir, "state.json"),
		OrdersPath:    filepath.Join(dir, "orders.csv"),
	}

	var out bytes.Buffer
	require.NoError(t, runSimulation(context.Background(), config.Default(), opts, &out))

	result := decodeResult(t, &out)
	assert.Equal(t, len(buyThenTakeProfit()), result.Cycles, "the run ends once no task is active")
	require.Len(t, result.Tasks, 1)
	task := result.Tasks[0]
	assert.Equal(t, engine.StatusCompleted, task.Status)
	assert.Equal(t, risk.ReasonTarget, task.StatusReason)
	assert.Equal(t, 2, task.Orders)
	assert.Equal(t, 1, task.ClosedTrades)
	assert.Greater(t, task.CurrentBalance, 110.0)
	assert.Equal(t, 1.0, result.Performance.SuccessRate)

	state, err := engine.ReadStateFile(opts.StatePath)
	require.NoError(t, err)
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, task.ID, state.Tasks[0].ID)

	f, err := os.Open(opts.OrdersPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvwriter.OrderHeader, records[0])
	assert.Equal(t, "buy", records[1][4])
	assert.Equal(t, "sell", records[2][4])
}

func TestRunSimulation_SyntheticUsesConfiguredTasks(t *testing.T) {
	cfg := config.Default()
	cfg.Tasks = []config.TaskConfig{
		{Name: "stocks", InitialCapital: 1000, TargetPercent: 50, Symbols: []string{"AAPL", "MSFT"}, RiskTier: "Low"},
		{Name: "crypto", InitialCapital: 500, TargetPercent: 50, Symbols: []string{"BTC-USD"}, AssetClass: "crypto"},
	}

	var out bytes.Buffer
	require.NoError(t, runSimulation(context.Background(), cfg, simulateOptions{Cycles: 30, Seed: 7}, &out))

	result := decodeResult(t, &out)
	assert.Equal(t, 30, result.Cycles)
	assert.Equal(t, 2, result.Performance.TaskCount)
	assert.Equal(t, 1500.0, result.Performance.TotalInitialCapital)
	for _, task := range result.Tasks {
		assert.NotEqual(t, engine.StatusError, task.Status, task.StatusReason)
	}
	assert.False(t, cfg.Tasks[0].AutoStart.Bool(), "the configuration is not modified")
}

func TestRunSimulation_Errors(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer

	err := runSimulation(context.Background(), cfg, simulateOptions{Cycles: 0, Symbols: []string{"AAPL"}}, &out)
	assert.Error(t, err)

	err = runSimulation(context.Background(), cfg, simulateOptions{Cycles: 10}, &out)
	assert.ErrorContains(t, err, "no tasks")

	err = runSimulation(context.Background(), cfg, simulateOptions{
		Cycles: 10, Capital: 100, TargetPercent: 10, Tier: "reckless", Symbols: []string{"AAPL"},
	}, &out)
	assert.ErrorIs(t, err, risk.ErrUnknownTier)

	err = runSimulation(context.Background(), cfg, simulateOptions{
		Cycles: 10, PricesPath: filepath.Join(t.TempDir(), "missing.csv"), Symbols: []string{"AAPL"},
	}, &out)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestBuildProvider(t *testing.T) {
	cfg := config.Default().MarketData
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	p, err := buildProvider(cfg, "", now)
	require.NoError(t, err)
	assert.IsType(t, &marketdata.SyntheticProvider{}, p)
	tick, err := p.Tick(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, clock, tick.Timestamp, "synthetic ticks follow the supplied clock")

	cfg.Provider = "replay"
	_, err = buildProvider(cfg, "", now)
	assert.Error(t, err, "replay without prices")

	p, err = buildProvider(cfg, writePriceCSV(t, "MSFT", []float64{400, 401}), now)
	require.NoError(t, err)
	tick, err = p.Tick(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 400.0, tick.Price)
	assert.Equal(t, clock, tick.Timestamp)
}

func TestRunSimulation_TimestampsFollowSimulatedClock(t *testing.T) {
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.Default()
	step := time.Duration(cfg.MarketData.TickIntervalSeconds * float64(time.Second))
	statePath := filepath.Join(t.TempDir(), "state.json")

	for name, pricesPath := range map[string]string{
		"replay":    writePriceCSV(t, "AAPL", buyThenTakeProfit()),
		"synthetic": "",
	} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, runSimulation(context.Background(), cfg, simulateOptions{
				Cycles:        30,
				Seed:          7,
				PricesPath:    pricesPath,
				Capital:       100,
				TargetPercent: 10,
				Tier:          "high",
				Symbols:       []string{"AAPL"},
				StatePath:     statePath,
				Start:         start,
			}, &out))

			state, err := engine.ReadStateFile(statePath)
			require.NoError(t, err)
			require.Len(t, state.Tasks, 1)
			task := state.Tasks[0]
			assert.Equal(t, start, task.StartedAt)
			for _, o := range task.Account.Orders {
				offset := o.Timestamp.Sub(start)
				assert.Zero(t, offset%step, "order %s is stamped on a cycle boundary", o.ID)
				assert.True(t, offset >= 0 && offset < 30*step, "order %s at %s", o.ID, o.Timestamp)
			}
		})
	}

	var out bytes.Buffer
	require.NoError(t, runSimulation(context.Background(), cfg, simulateOptions{
		Cycles:        100,
		PricesPath:    writePriceCSV(t, "AAPL", buyThenTakeProfit()),
		Capital:       100,
		TargetPercent: 10,
		Tier:          "high",
		Symbols:       []string{"AAPL"},
		StatePath:     statePath,
		Start:         start,
	}, &out))
	state, err := engine.ReadStateFile(statePath)
	require.NoError(t, err)
	orders := state.Tasks[0].Account.Orders
	require.Len(t, orders, 2)
	buyAt := start.Add(time.Duration(len(buyThenTakeProfit())-2) * step)
	assert.Equal(t, buyAt, orders[0].Timestamp)
	assert.Equal(t, buyAt.Add(step), orders[1].Timestamp, "fills are one simulated step apart")

	trades := state.Tasks[0].Account.ClosedTrades
	require.Len(t, trades, 1)
	assert.Equal(t, step, trades[0].ClosedAt.Sub(trades[0].OpenedAt))
}

func TestSeedTasks(t *testing.T) {
	bot := engine.NewBot(marketdata.NewReplayProvider(nil))
	err := seedTasks(bot, []config.TaskConfig{
		{Name: "a", InitialCapital: 100, TargetAmount: 120, Symbols: []string{"AAPL"}, AutoStart: true},
		{Name: "b", InitialCapital: 100, TargetPercent: 5, Symbols: []string{"GC=F"}, RiskTier: "HIGH"},
	})
	require.NoError(t, err)

	tasks := bot.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, engine.StatusRunning, tasks[0].Status)
	assert.Equal(t, risk.Medium, tasks[0].RiskTier)
	assert.Equal(t, engine.StatusCreated, tasks[1].Status)
	assert.Equal(t, risk.High, tasks[1].RiskTier)

	err = seedTasks(bot, []config.TaskConfig{{Name: "bad", InitialCapital: -1, TargetPercent: 5, Symbols: []string{"AAPL"}}})
	assert.ErrorIs(t, err, engine.ErrInvalidParams)
}
