// Package position tracks a single long holding in one symbol.
package position

import (
	"errors"
	"fmt"
	"time"
)

// Epsilon is the quantity below which a holding counts as flat.
const Epsilon = 1e-9

// ErrOversell is returned when a sell exceeds the held quantity.
var ErrOversell = errors.New("sell quantity exceeds position")

// Position holds the state of a long position. It is not safe for concurrent
// use; the owning account serialises access.
type Position struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	AvgEntryPrice float64   `json:"avg_entry_price"`
	CurrentPrice  float64   `json:"current_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl"`
	Commission    float64   `json:"commission"` // entry commission not yet charged to a closed trade
	OpenedAt      time.Time `json:"opened_at"`
}

// NewPosition creates an empty position for symbol.
func NewPosition(symbol string) *Position {
	return &Position{Symbol: symbol}
}

// Buy adds qty at price to the position and averages the entry price.
func (p *Position) Buy(qty, price, commission float64, ts time.Time) error {
	if qty <= 0 || price <= 0 {
		return fmt.Errorf("invalid buy of %v at %v for %s", qty, price, p.Symbol)
	}
	if p.IsFlat() {
		p.Quantity = qty
		p.AvgEntryPrice = price
		p.OpenedAt = ts
	} else {
		currentValue := p.Quantity * p.AvgEntryPrice
		tradeValue := qty * price
		p.Quantity += qty
		p.AvgEntryPrice = (currentValue + tradeValue) / p.Quantity
	}
	p.Commission += commission
	p.Mark(price)
	return nil
}

// Sell reduces the position by qty at price and returns the realized PnL,
// before commissions, along with the share of entry commission attributable
// to the sold quantity.
func (p *Position) Sell(qty, price float64) (realized, entryCommission float64, err error) {
	if qty <= 0 || price <= 0 {
		return 0, 0, fmt.Errorf("invalid sell of %v at %v for %s", qty, price, p.Symbol)
	}
	if qty > p.Quantity+Epsilon {
		return 0, 0, fmt.Errorf("%w: selling %v of %v %s", ErrOversell, qty, p.Quantity, p.Symbol)
	}
	if qty > p.Quantity {
		qty = p.Quantity
	}

	realized = (price - p.AvgEntryPrice) * qty
	entryCommission = p.Commission * qty / p.Quantity

	p.RealizedPnL += realized
	p.Commission -= entryCommission
	p.Quantity -= qty
	if p.Quantity <= Epsilon {
		p.Quantity = 0
		p.Commission = 0
	}
	p.Mark(price)
	return realized, entryCommission, nil
}

// Mark revalues the position at price.
func (p *Position) Mark(price float64) {
	p.CurrentPrice = price
	p.UnrealizedPnL = (price - p.AvgEntryPrice) * p.Quantity
	if p.IsFlat() {
		p.UnrealizedPnL = 0
	}
}

// IsFlat reports whether nothing is held.
func (p *Position) IsFlat() bool { return p.Quantity <= Epsilon }

// MarketValue is the quantity valued at the last marked price.
func (p *Position) MarketValue() float64 { return p.Quantity * p.CurrentPrice }

// CostBasis is the quantity valued at the average entry price.
func (p *Position) CostBasis() float64 { return p.Quantity * p.AvgEntryPrice }

// PnLPercent is the price change since entry as a fraction of the entry price.
func (p *Position) PnLPercent() float64 {
	if p.AvgEntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.AvgEntryPrice) / p.AvgEntryPrice
}

// String returns a string representation of the position.
func (p *Position) String() string {
	return fmt.Sprintf("Position{%s Qty: %.6f, AvgEntryPrice: %.4f, Current: %.4f}", p.Symbol, p.Quantity, p.AvgEntryPrice, p.CurrentPrice)
}
