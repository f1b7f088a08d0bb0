package dbwriter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

// TestJournalImplementations は各実装が Journal インターフェースを満たすことを確認します。
func TestJournalImplementations(t *testing.T) {
	assert.Implements(t, (*Journal)(nil), new(TimescaleWriter))
	assert.Implements(t, (*Journal)(nil), NewInMemWriter())
	assert.Implements(t, (*Journal)(nil), NewNoOpJournal(logger.NewLogger("error")))
}

func sampleOrder(side portfolio.Side) portfolio.Order {
	return portfolio.Order{
		ID:         "3f2504e0-4f89-11d3-9a0c-0305e82c3301",
		TaskID:     "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Symbol:     "AAPL",
		Side:       side,
		Quantity:   2,
		Price:      100,
		Notional:   200,
		Commission: 0.2,
		Timestamp:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Strategy:   "rsi_sma_macd",
		Reason:     "entry signal",
	}
}

func TestTimescaleWriter_SaveOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	writer, err := NewTimescaleWriter(mock, config.DBWriterConfig{BatchSize: 2, WriteIntervalSeconds: 60}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectCopyFrom(pgx.Identifier{"simulated_orders"}, orderColumns).WillReturnResult(2)
	writer.SaveOrder(sampleOrder(portfolio.Buy))
	writer.SaveOrder(sampleOrder(portfolio.Sell))
	require.NoError(t, mock.ExpectationsWereMet(), "a full batch is flushed immediately")

	// The remaining order is flushed on Close.
	mock.ExpectCopyFrom(pgx.Identifier{"simulated_orders"}, orderColumns).WillReturnResult(1)
	mock.ExpectClose()
	writer.SaveOrder(sampleOrder(portfolio.Buy))
	writer.Close()
	writer.Close()

	require.NoError(t, mock.ExpectationsWereMet(), "there were unfulfilled expectations")
}

func TestTimescaleWriter_SaveTaskSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	writer, err := NewTimescaleWriter(mock, config.DBWriterConfig{}, zap.NewNop())
	require.NoError(t, err)

	snap := TaskSnapshot{
		Time:          time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
		TaskID:        "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Status:        "running",
		Cash:          900,
		Balance:       1010,
		RealizedPnL:   5,
		UnrealizedPnL: 10,
		Commissions:   0.4,
		OpenPositions: 1,
		TotalOrders:   3,
	}
	mock.ExpectExec("INSERT INTO task_snapshots").
		WithArgs(snap.Time, snap.TaskID, snap.Status, snap.Cash, snap.Balance, snap.RealizedPnL,
			snap.UnrealizedPnL, snap.Commissions, snap.OpenPositions, snap.TotalOrders).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, writer.SaveTaskSnapshot(context.Background(), snap))

	mock.ExpectExec("INSERT INTO task_snapshots").WillReturnError(errors.New("disk full"))
	err = writer.SaveTaskSnapshot(context.Background(), snap)
	assert.ErrorContains(t, err, "disk full")

	mock.ExpectClose()
	writer.Close()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewTimescaleWriter_NilPool(t *testing.T) {
	_, err := NewTimescaleWriter(nil, config.DBWriterConfig{}, nil)
	assert.Error(t, err)
}

func TestInMemWriter(t *testing.T) {
	w := NewInMemWriter()
	w.SaveOrder(sampleOrder(portfolio.Buy))
	require.NoError(t, w.SaveTaskSnapshot(context.Background(), TaskSnapshot{TaskID: "t"}))

	assert.Len(t, w.Orders(), 1)
	assert.Len(t, w.Snapshots(), 1)
	w.Close()
	assert.True(t, w.IsClosed())

	w.Clear()
	assert.Empty(t, w.Orders())
	assert.False(t, w.IsClosed())
}
