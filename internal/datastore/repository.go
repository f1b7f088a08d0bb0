// Package datastore reads journaled simulation data back for reporting and
// loads recorded price series for replays.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("datastore: not found")

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// OrderSource yields journaled orders for one task.
type OrderSource interface {
	FetchOrders(ctx context.Context, taskID string) ([]portfolio.Order, error)
	FetchTaskIDs(ctx context.Context) ([]string, error)
}

// PerformanceMetrics holds the headline figures of the latest stored report.
type PerformanceMetrics struct {
	Time         time.Time       `json:"time"`
	SharpeRatio  float64         `json:"sharpe_ratio"`
	ProfitFactor float64         `json:"profit_factor"`
	MaxDrawdown  decimal.Decimal `json:"max_drawdown"`
	TotalPnL     decimal.Decimal `json:"total_pnl"`
}

// Repository handles database reads of simulation output.
type Repository struct {
	db Querier
}

// NewRepository creates a new Repository.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// FetchOrders returns a task's journaled orders, oldest first.
func (r *Repository) FetchOrders(ctx context.Context, taskID string) ([]portfolio.Order, error) {
	query := `
        SELECT time, order_id::text, task_id::text, symbol, side, quantity, price, notional, commission, realized_pnl, strategy, reason
        FROM simulated_orders
        WHERE task_id = $1
        ORDER BY time ASC;
    `
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []portfolio.Order
	for rows.Next() {
		var o portfolio.Order
		var side string
		if err := rows.Scan(&o.Timestamp, &o.ID, &o.TaskID, &o.Symbol, &side, &o.Quantity, &o.Price,
			&o.Notional, &o.Commission, &o.RealizedPnL, &o.Strategy, &o.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Side = portfolio.Side(side)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// FetchTaskIDs lists every task with at least one journaled order.
func (r *Repository) FetchTaskIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT task_id::text FROM simulated_orders ORDER BY 1;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query task ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FetchLatestPerformanceMetrics は最新のパフォーマンス指標を取得します。
func (r *Repository) FetchLatestPerformanceMetrics(ctx context.Context, taskID string) (*PerformanceMetrics, error) {
	query := `
        SELECT time, sharpe_ratio, profit_factor, max_drawdown, total_pnl
        FROM pnl_reports
        WHERE task_id = $1
        ORDER BY time DESC
        LIMIT 1;
    `
	var m PerformanceMetrics
	err := r.db.QueryRow(ctx, query, taskID).Scan(&m.Time, &m.SharpeRatio, &m.ProfitFactor, &m.MaxDrawdown, &m.TotalPnL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch performance metrics: %w", err)
	}
	return &m, nil
}

// DeleteOrdersBefore prunes journaled orders older than cutoff and returns
// how many rows were removed.
func (r *Repository) DeleteOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM simulated_orders WHERE time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune orders: %w", err)
	}
	return tag.RowsAffected(), nil
}
