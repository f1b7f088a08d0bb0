// Package dbwriter journals simulated orders and task snapshots to PostgreSQL.
package dbwriter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/your-org/shadow-trading-bot/internal/config"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

// TaskSnapshot はデータベースに保存するタスク状態の構造体です。
type TaskSnapshot struct {
	Time          time.Time `db:"time"`
	TaskID        string    `db:"task_id"`
	Status        string    `db:"status"`
	Cash          float64   `db:"cash"`
	Balance       float64   `db:"balance"`
	RealizedPnL   float64   `db:"realized_pnl"`
	UnrealizedPnL float64   `db:"unrealized_pnl"`
	Commissions   float64   `db:"commissions"`
	OpenPositions int       `db:"open_positions"`
	TotalOrders   int       `db:"total_orders"`
}

var orderColumns = []string{
	"time", "order_id", "task_id", "symbol", "side", "quantity", "price",
	"notional", "commission", "realized_pnl", "strategy", "reason",
}

// Pool is an interface that abstracts the pgxpool.Pool for testability.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Close()
}

// TimescaleWriter batches orders into simulated_orders and writes snapshots
// into task_snapshots.
type TimescaleWriter struct {
	pool         Pool
	logger       *zap.Logger
	config       config.DBWriterConfig
	orderBuffer  []portfolio.Order
	bufferMutex  sync.Mutex
	flushTicker  *time.Ticker
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewTimescaleWriter は新しいTimescaleWriterインスタンスを作成します。
// このコンストラクタは、外部から提供されたDB接続プールを使用します。
func NewTimescaleWriter(pool Pool, writerConfig config.DBWriterConfig, logger *zap.Logger) (*TimescaleWriter, error) {
	if pool == nil {
		return nil, errors.New("dbwriter: nil pool")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if writerConfig.WriteIntervalSeconds <= 0 {
		logger.Warn("WriteIntervalSeconds is zero or negative, defaulting to 1s.", zap.Int("originalValue", writerConfig.WriteIntervalSeconds))
		writerConfig.WriteIntervalSeconds = 1
	}
	if writerConfig.BatchSize <= 0 {
		logger.Warn("BatchSize is zero or negative, defaulting to 100.", zap.Int("originalValue", writerConfig.BatchSize))
		writerConfig.BatchSize = 100
	}

	w := &TimescaleWriter{
		pool:         pool,
		logger:       logger,
		config:       writerConfig,
		orderBuffer:  make([]portfolio.Order, 0, writerConfig.BatchSize),
		flushTicker:  time.NewTicker(time.Duration(writerConfig.WriteIntervalSeconds) * time.Second),
		shutdownChan: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	logger.Info("Started order journal batch writer",
		zap.Int("batchSize", writerConfig.BatchSize),
		zap.Int("writeIntervalSeconds", writerConfig.WriteIntervalSeconds))
	return w, nil
}

func (w *TimescaleWriter) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.flushTicker.C:
			w.flushBuffers()
		case <-w.shutdownChan:
			return
		}
	}
}

// SaveOrder は注文をバッファに追加します。
func (w *TimescaleWriter) SaveOrder(order portfolio.Order) {
	w.bufferMutex.Lock()
	w.orderBuffer = append(w.orderBuffer, order)
	shouldFlush := len(w.orderBuffer) >= w.config.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

func (w *TimescaleWriter) flushBuffers() {
	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()

	if len(w.orderBuffer) == 0 {
		return
	}
	w.batchInsertOrders(context.Background(), w.orderBuffer)
	w.orderBuffer = w.orderBuffer[:0]
}

func (w *TimescaleWriter) batchInsertOrders(ctx context.Context, orders []portfolio.Order) {
	w.logger.Debug("Flushing simulated orders", zap.Int("count", len(orders)))
	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"simulated_orders"},
		orderColumns,
		pgx.CopyFromRows(toOrderRows(orders)),
	)
	if err != nil {
		w.logger.Error("Failed to batch insert simulated orders", zap.Int("count", len(orders)), zap.Error(err))
	}
}

func toOrderRows(orders []portfolio.Order) [][]interface{} {
	rows := make([][]interface{}, len(orders))
	for i, o := range orders {
		rows[i] = []interface{}{
			o.Timestamp, o.ID, o.TaskID, o.Symbol, string(o.Side), o.Quantity, o.Price,
			o.Notional, o.Commission, o.RealizedPnL, o.Strategy, o.Reason,
		}
	}
	return rows
}

// SaveTaskSnapshot は単一のタスク状態をデータベースに保存します。
func (w *TimescaleWriter) SaveTaskSnapshot(ctx context.Context, s TaskSnapshot) error {
	query := `INSERT INTO task_snapshots (time, task_id, status, cash, balance, realized_pnl, unrealized_pnl, commissions, open_positions, total_orders)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := w.pool.Exec(ctx, query,
		s.Time, s.TaskID, s.Status,
		s.Cash, s.Balance, s.RealizedPnL, s.UnrealizedPnL, s.Commissions,
		s.OpenPositions, s.TotalOrders,
	)
	if err != nil {
		w.logger.Error("Failed to insert task snapshot", zap.Error(err), zap.String("taskID", s.TaskID))
		return fmt.Errorf("failed to insert task snapshot: %w", err)
	}
	return nil
}

// Close はバッファをフラッシュし、データベース接続プールをクローズします。
func (w *TimescaleWriter) Close() {
	w.closeOnce.Do(func() {
		w.logger.Info("Closing order journal...")
		close(w.shutdownChan)
		w.wg.Wait()
		w.flushTicker.Stop()

		w.flushBuffers()

		w.pool.Close()
		w.logger.Info("Order journal connection pool closed")
	})
}
