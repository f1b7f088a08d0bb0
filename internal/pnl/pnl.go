// Package pnl aggregates realized profit and commission costs.
package pnl

// Calculator accumulates realized PnL and commissions of one account.
type Calculator struct {
	Realized    float64 `json:"realized"`
	Commissions float64 `json:"commissions"`
}

// NewCalculator creates a new PnL Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// UpdateRealizedPnL adds realized PnL from a closing fill.
func (c *Calculator) UpdateRealizedPnL(pnl float64) {
	c.Realized += pnl
}

// AddCommission records a commission charge.
func (c *Calculator) AddCommission(commission float64) {
	c.Commissions += commission
}

// Net is realized PnL after commissions.
func (c *Calculator) Net() float64 {
	return c.Realized - c.Commissions
}

// CalculateUnrealizedPnL calculates the unrealized PnL of a long holding.
func CalculateUnrealizedPnL(positionSize, avgEntryPrice, currentPrice float64) float64 {
	if positionSize == 0 {
		return 0
	}
	return (currentPrice - avgEntryPrice) * positionSize
}
