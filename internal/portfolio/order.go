package portfolio

import (
	"time"

	"github.com/google/uuid"
)

// Side is the direction of a simulated fill.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Order is an executed simulated fill. Orders are append-only.
type Order struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Notional    float64   `json:"notional"`
	Commission  float64   `json:"commission"`
	RealizedPnL float64   `json:"realized_pnl"` // sells only, before commissions
	Timestamp   time.Time `json:"timestamp"`
	Strategy    string    `json:"strategy"`
	Reason      string    `json:"reason"`
}

// ClosedTrade records a completed exit. PnL is net of the entry and exit
// commissions attributable to the sold quantity.
type ClosedTrade struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
	Reason     string    `json:"reason"`
}

// Won reports whether the trade closed with a positive net PnL.
func (c ClosedTrade) Won() bool { return c.PnL > 0 }

func newOrderID() string { return uuid.NewString() }
