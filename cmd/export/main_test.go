package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/shadow-trading-bot/internal/csvwriter"
	"github.com/your-org/shadow-trading-bot/internal/datastore"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/marketdata"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

func seededRepo() *datastore.InMemRepository {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := datastore.NewInMemRepository()
	repo.SeedOrders([]portfolio.Order{
		{ID: "a1", TaskID: "a", Symbol: "AAPL", Side: portfolio.Buy, Quantity: 1, Price: 100, Timestamp: ts},
		{ID: "a2", TaskID: "a", Symbol: "AAPL", Side: portfolio.Sell, Quantity: 1, Price: 105, Timestamp: ts.Add(time.Hour)},
		{ID: "b1", TaskID: "b", Symbol: "MSFT", Side: portfolio.Buy, Quantity: 2, Price: 400, Timestamp: ts},
	})
	return repo
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportOrders_AllTasks(t *testing.T) {
	var buf bytes.Buffer
	n, err := exportOrders(context.Background(), seededRepo(), "", csvwriter.New(&buf, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records := readCSV(t, &buf)
	require.Len(t, records, 4)
	assert.Equal(t, csvwriter.OrderHeader, records[0])
	assert.Equal(t, []string{"a1", "a2", "b1"}, []string{records[1][2], records[2][2], records[3][2]})
}

func TestExportOrders_SingleTask(t *testing.T) {
	var buf bytes.Buffer
	n, err := exportOrders(context.Background(), seededRepo(), "b", csvwriter.New(&buf, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, readCSV(t, &buf), 2)

	_, err = exportOrders(context.Background(), seededRepo(), "missing", csvwriter.New(&bytes.Buffer{}, nil))
	assert.Error(t, err)
}

func TestExportOrders_EmptySourceWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	n, err := exportOrders(context.Background(), datastore.NewInMemRepository(), "", csvwriter.New(&buf, nil))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, [][]string{csvwriter.OrderHeader}, readCSV(t, &buf))
}

func TestStateSource(t *testing.T) {
	bot := engine.NewBot(marketdata.NewReplayProvider(nil))
	_, err := bot.CreateTask(engine.TaskParams{InitialCapital: 100, TargetPercent: 10, Symbols: []string{"AAPL"}})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, bot.SaveStateFile(path))

	repo, err := stateSource(path)
	require.NoError(t, err)
	ids, err := repo.FetchTaskIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = stateSource(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
