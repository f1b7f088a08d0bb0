// Package report analyses simulated fills and aggregates task performance.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/your-org/shadow-trading-bot/internal/portfolio"
)

// ErrNoTrades is returned when there is nothing to analyse.
var ErrNoTrades = errors.New("no trades to analyze")

// Report は損益分析の結果を保持します。
type Report struct {
	TaskID                             string          `json:"task_id"`
	StartDate                          time.Time       `json:"start_date"`
	EndDate                            time.Time       `json:"end_date"`
	TotalOrders                        int             `json:"total_orders"`
	TotalTrades                        int             `json:"total_trades"` // matched round trips
	WinningTrades                      int             `json:"winning_trades"`
	LosingTrades                       int             `json:"losing_trades"`
	WinRate                            float64         `json:"win_rate"`
	TotalPnL                           decimal.Decimal `json:"total_pnl"`
	TotalCommission                    decimal.Decimal `json:"total_commission"`
	AverageProfit                      decimal.Decimal `json:"average_profit"`
	AverageLoss                        decimal.Decimal `json:"average_loss"`
	RiskRewardRatio                    float64         `json:"risk_reward_ratio"`
	ProfitFactor                       float64         `json:"profit_factor"`
	MaxDrawdown                        decimal.Decimal `json:"max_drawdown"`
	RecoveryFactor                     float64         `json:"recovery_factor"`
	SharpeRatio                        float64         `json:"sharpe_ratio"`
	SortinoRatio                       float64         `json:"sortino_ratio"`
	MaxConsecutiveWins                 int             `json:"max_consecutive_wins"`
	MaxConsecutiveLosses               int             `json:"max_consecutive_losses"`
	AverageHoldingPeriodSeconds        float64         `json:"average_holding_period_seconds"`
	AverageWinningHoldingPeriodSeconds float64         `json:"average_winning_holding_period_seconds"`
	AverageLosingHoldingPeriodSeconds  float64         `json:"average_losing_holding_period_seconds"`

	// OpenQuantity is the unmatched buy quantity per symbol.
	OpenQuantity map[string]float64 `json:"open_quantity,omitempty"`
}

// lot is an unmatched buy waiting in the FIFO queue of its symbol.
type lot struct {
	time       time.Time
	price      decimal.Decimal
	size       decimal.Decimal
	commission decimal.Decimal // remaining entry commission of the lot
}

// AnalyzeOrders はトレードリストを分析してレポートを作成します。
// Sells are matched against earlier buys of the same symbol, first in first
// out, and each match counts as one trade with its PnL net of the entry and
// exit commissions it carries.
func AnalyzeOrders(orders []portfolio.Order) (Report, error) {
	if len(orders) == 0 {
		return Report{}, ErrNoTrades
	}

	sorted := append([]portfolio.Order(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	queues := make(map[string][]lot)
	var totalPnL, totalProfit, totalLoss, totalCommission decimal.Decimal
	var pnlHistory []decimal.Decimal
	var holdingPeriods, winningHoldingPeriods, losingHoldingPeriods []float64
	var winningTrades, losingTrades int
	var consecutiveWins, consecutiveLosses, maxConsecutiveWins, maxConsecutiveLosses int

	for _, o := range sorted {
		size := decimal.NewFromFloat(o.Quantity)
		price := decimal.NewFromFloat(o.Price)
		commission := decimal.NewFromFloat(o.Commission)
		totalCommission = totalCommission.Add(commission)

		switch o.Side {
		case portfolio.Buy:
			queues[o.Symbol] = append(queues[o.Symbol], lot{time: o.Timestamp, price: price, size: size, commission: commission})

		case portfolio.Sell:
			queue := queues[o.Symbol]
			remaining := size
			for len(queue) > 0 && remaining.IsPositive() {
				buy := queue[0]
				matchSize := decimal.Min(buy.size, remaining)

				entryComm := buy.commission.Mul(matchSize).Div(buy.size)
				exitComm := commission.Mul(matchSize).Div(size)
				pnl := price.Sub(buy.price).Mul(matchSize).Sub(entryComm).Sub(exitComm)

				totalPnL = totalPnL.Add(pnl)
				pnlHistory = append(pnlHistory, pnl)
				holdingPeriod := o.Timestamp.Sub(buy.time).Seconds()
				holdingPeriods = append(holdingPeriods, holdingPeriod)

				if pnl.IsPositive() {
					winningTrades++
					totalProfit = totalProfit.Add(pnl)
					winningHoldingPeriods = append(winningHoldingPeriods, holdingPeriod)
					consecutiveWins++
					consecutiveLosses = 0
					if consecutiveWins > maxConsecutiveWins {
						maxConsecutiveWins = consecutiveWins
					}
				} else if pnl.IsNegative() {
					losingTrades++
					totalLoss = totalLoss.Add(pnl)
					losingHoldingPeriods = append(losingHoldingPeriods, holdingPeriod)
					consecutiveLosses++
					consecutiveWins = 0
					if consecutiveLosses > maxConsecutiveLosses {
						maxConsecutiveLosses = consecutiveLosses
					}
				}

				buy.commission = buy.commission.Sub(entryComm)
				buy.size = buy.size.Sub(matchSize)
				remaining = remaining.Sub(matchSize)
				if buy.size.IsZero() {
					queue = queue[1:]
				} else {
					queue[0] = buy
				}
			}
			queues[o.Symbol] = queue
		}
	}

	totalTrades := winningTrades + losingTrades

	winRate := 0.0
	if totalTrades > 0 {
		winRate = float64(winningTrades) / float64(totalTrades) * 100
	}

	avgProfit := decimal.Zero
	if winningTrades > 0 {
		avgProfit = totalProfit.Div(decimal.NewFromInt(int64(winningTrades)))
	}

	avgLoss := decimal.Zero
	if losingTrades > 0 {
		avgLoss = totalLoss.Div(decimal.NewFromInt(int64(losingTrades)))
	}

	riskRewardRatio := 0.0
	if !avgLoss.IsZero() {
		riskRewardRatio = avgProfit.Div(avgLoss.Abs()).InexactFloat64()
	}

	profitFactor := 0.0
	if totalLoss.IsNegative() {
		profitFactor = totalProfit.Div(totalLoss.Abs()).InexactFloat64()
	}

	maxDrawdown := maxDrawdownOf(pnlHistory)
	recoveryFactor := 0.0
	if maxDrawdown.IsPositive() {
		recoveryFactor = totalPnL.Div(maxDrawdown).InexactFloat64()
	}

	pnlFloats := make([]float64, len(pnlHistory))
	for i, pnl := range pnlHistory {
		pnlFloats[i] = pnl.InexactFloat64()
	}

	open := make(map[string]float64)
	for sym, queue := range queues {
		var qty decimal.Decimal
		for _, l := range queue {
			qty = qty.Add(l.size)
		}
		if qty.IsPositive() {
			open[sym] = qty.InexactFloat64()
		}
	}
	if len(open) == 0 {
		open = nil
	}

	return Report{
		TaskID:                             sorted[0].TaskID,
		StartDate:                          sorted[0].Timestamp,
		EndDate:                            sorted[len(sorted)-1].Timestamp,
		TotalOrders:                        len(sorted),
		TotalTrades:                        totalTrades,
		WinningTrades:                      winningTrades,
		LosingTrades:                       losingTrades,
		WinRate:                            winRate,
		TotalPnL:                           totalPnL,
		TotalCommission:                    totalCommission,
		AverageProfit:                      avgProfit,
		AverageLoss:                        avgLoss,
		RiskRewardRatio:                    riskRewardRatio,
		ProfitFactor:                       profitFactor,
		MaxDrawdown:                        maxDrawdown,
		RecoveryFactor:                     recoveryFactor,
		SharpeRatio:                        calculateSharpeRatio(pnlFloats, 0.0),
		SortinoRatio:                       calculateSortinoRatio(pnlFloats, 0.0),
		MaxConsecutiveWins:                 maxConsecutiveWins,
		MaxConsecutiveLosses:               maxConsecutiveLosses,
		AverageHoldingPeriodSeconds:        mean(holdingPeriods),
		AverageWinningHoldingPeriodSeconds: mean(winningHoldingPeriods),
		AverageLosingHoldingPeriodSeconds:  mean(losingHoldingPeriods),
		OpenQuantity:                       open,
	}, nil
}

// maxDrawdownOf は累積損益曲線の最大ドローダウンを計算します。
func maxDrawdownOf(pnlHistory []decimal.Decimal) decimal.Decimal {
	maxDrawdown := decimal.Zero
	peak := decimal.Zero
	equity := decimal.Zero
	for _, pnl := range pnlHistory {
		equity = equity.Add(pnl)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if drawdown := peak.Sub(equity); drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStandardDeviation はリターンの標準偏差を計算します。
func calculateStandardDeviation(returns []float64, mean float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-mean, 2)
	}
	return math.Sqrt(variance / float64(len(returns)))
}

// calculateDownsideDeviation は下方偏差を計算します。
func calculateDownsideDeviation(returns []float64, target float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	downsideVariance := 0.0
	downsideCount := 0
	for _, r := range returns {
		if r < target {
			downsideVariance += math.Pow(r-target, 2)
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return 0.0
	}
	return math.Sqrt(downsideVariance / float64(downsideCount))
}

// calculateSharpeRatio はシャープレシオを計算します。
func calculateSharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	m := mean(returns)
	stdDev := calculateStandardDeviation(returns, m)
	if stdDev == 0 {
		return 0.0
	}
	return (m - riskFreeRate) / stdDev
}

// calculateSortinoRatio はソルティノレシオを計算します。
func calculateSortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	downsideDev := calculateDownsideDeviation(returns, 0) // ターゲットリターンを0と仮定
	if downsideDev == 0 {
		return 0.0
	}
	return (mean(returns) - riskFreeRate) / downsideDev
}

// Execer is the part of a pgx pool the report service writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Service persists reports.
type Service struct {
	db Execer
}

// NewService creates a new report service.
func NewService(db Execer) *Service {
	return &Service{db: db}
}

// SavePnlReport は分析レポートをデータベースに保存します。
func (s *Service) SavePnlReport(ctx context.Context, report Report) error {
	query := `
        INSERT INTO pnl_reports (
            time, task_id, start_date, end_date, total_orders, total_trades,
            winning_trades, losing_trades, win_rate, total_pnl, total_commission,
            average_profit, average_loss, risk_reward_ratio, profit_factor,
            max_drawdown, recovery_factor, sharpe_ratio, sortino_ratio,
            max_consecutive_wins, max_consecutive_losses,
            average_holding_period_seconds, average_winning_holding_period_seconds,
            average_losing_holding_period_seconds
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
            $17, $18, $19, $20, $21, $22, $23, $24
        );
    `
	_, err := s.db.Exec(ctx, query,
		time.Now().UTC(), report.TaskID, report.StartDate, report.EndDate, report.TotalOrders, report.TotalTrades,
		report.WinningTrades, report.LosingTrades, report.WinRate, report.TotalPnL, report.TotalCommission,
		report.AverageProfit, report.AverageLoss, report.RiskRewardRatio, report.ProfitFactor,
		report.MaxDrawdown, report.RecoveryFactor, report.SharpeRatio, report.SortinoRatio,
		report.MaxConsecutiveWins, report.MaxConsecutiveLosses,
		report.AverageHoldingPeriodSeconds, report.AverageWinningHoldingPeriodSeconds,
		report.AverageLosingHoldingPeriodSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to save pnl report for task %s: %w", report.TaskID, err)
	}
	return nil
}
