package report

// TaskView is the per-task input of a performance summary.
type TaskView struct {
	ID             string
	Active         bool
	InitialCapital float64
	Balance        float64
	Orders         int
	ClosedTrades   int
	WinningTrades  int
	OpenPositions  int
}

// Summary aggregates performance across tasks.
type Summary struct {
	TaskCount           int     `json:"task_count"`
	ActiveTasks         int     `json:"active_tasks"`
	TotalInitialCapital float64 `json:"total_initial_capital"`
	TotalCurrentBalance float64 `json:"total_current_balance"`
	TotalPnL            float64 `json:"total_pnl"`
	TotalPnLPercent     float64 `json:"total_pnl_percent"`
	TotalTrades         int     `json:"total_trades"`
	ClosedPositions     int     `json:"closed_positions"`
	WinningPositions    int     `json:"winning_positions"`
	SuccessRate         float64 `json:"success_rate"` // winning closed positions / closed positions, in [0,1]
	OpenPositions       int     `json:"open_positions"`
}

// Summarize aggregates task views. Ratios are zero when their denominator
// is zero.
func Summarize(tasks []TaskView) Summary {
	var s Summary
	for _, t := range tasks {
		s.TaskCount++
		if t.Active {
			s.ActiveTasks++
		}
		s.TotalInitialCapital += t.InitialCapital
		s.TotalCurrentBalance += t.Balance
		s.TotalTrades += t.Orders
		s.ClosedPositions += t.ClosedTrades
		s.WinningPositions += t.WinningTrades
		s.OpenPositions += t.OpenPositions
	}

	s.TotalPnL = s.TotalCurrentBalance - s.TotalInitialCapital
	if s.TotalInitialCapital > 0 {
		s.TotalPnLPercent = s.TotalPnL / s.TotalInitialCapital * 100
	}
	if s.ClosedPositions > 0 {
		s.SuccessRate = float64(s.WinningPositions) / float64(s.ClosedPositions)
	}
	return s
}
