// Package portfolio simulates the cash, holdings and fills of one paper account.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/pnl"
	"github.com/your-org/shadow-trading-bot/internal/position"
)

var (
	// ErrInsufficientCash is returned when a buy would overdraw the account.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrInsufficientPosition is returned when selling more than is held.
	ErrInsufficientPosition = errors.New("insufficient position")
	// ErrInvalidFill is returned for non-positive prices, quantities or budgets.
	ErrInvalidFill = errors.New("invalid fill")
)

const cashEpsilon = 1e-9

// Account is a long-only paper account with a fixed-percentage commission.
// It is not safe for concurrent use.
type Account struct {
	TaskID         string                        `json:"task_id"`
	InitialCapital float64                       `json:"initial_capital"`
	Cash           float64                       `json:"cash"`
	CommissionRate float64                       `json:"commission_rate"`
	PnL            pnl.Calculator                `json:"pnl"`
	Positions      map[string]*position.Position `json:"positions"`
	Orders         []Order                       `json:"orders"`
	ClosedTrades   []ClosedTrade                 `json:"closed_trades"`
}

// NewAccount creates an account holding capital in cash.
func NewAccount(taskID string, capital, commissionRate float64) *Account {
	return &Account{
		TaskID:         taskID,
		InitialCapital: capital,
		Cash:           capital,
		CommissionRate: commissionRate,
		Positions:      make(map[string]*position.Position),
	}
}

// Buy spends up to budget on symbol at price, commission included, and
// returns the resulting order.
func (a *Account) Buy(symbol string, budget, price float64, ts time.Time, strategy, reason string) (Order, error) {
	if budget <= 0 || price <= 0 || math.IsNaN(budget) || math.IsNaN(price) {
		return Order{}, fmt.Errorf("%w: buy %s budget %v at %v", ErrInvalidFill, symbol, budget, price)
	}
	if budget > a.Cash+cashEpsilon {
		return Order{}, fmt.Errorf("%w: need %.4f, have %.4f", ErrInsufficientCash, budget, a.Cash)
	}

	qty := budget / (price * (1 + a.CommissionRate))
	notional := qty * price
	commission := notional * a.CommissionRate

	pos, ok := a.Positions[symbol]
	if !ok {
		pos = position.NewPosition(symbol)
		a.Positions[symbol] = pos
	}
	if err := pos.Buy(qty, price, commission, ts); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrInvalidFill, err)
	}

	a.Cash -= notional + commission
	if a.Cash < 0 && a.Cash > -cashEpsilon {
		a.Cash = 0
	}
	a.PnL.AddCommission(commission)

	order := Order{
		ID:         newOrderID(),
		TaskID:     a.TaskID,
		Symbol:     symbol,
		Side:       Buy,
		Quantity:   qty,
		Price:      price,
		Notional:   notional,
		Commission: commission,
		Timestamp:  ts,
		Strategy:   strategy,
		Reason:     reason,
	}
	a.Orders = append(a.Orders, order)
	return order, nil
}

// Sell sells qty of symbol at price. A sell that empties the holding removes
// the position. Every sell appends a ClosedTrade.
func (a *Account) Sell(symbol string, qty, price float64, ts time.Time, strategy, reason string) (Order, error) {
	if qty <= 0 || price <= 0 || math.IsNaN(qty) || math.IsNaN(price) {
		return Order{}, fmt.Errorf("%w: sell %s qty %v at %v", ErrInvalidFill, symbol, qty, price)
	}
	pos, ok := a.Positions[symbol]
	if !ok || pos.IsFlat() {
		return Order{}, fmt.Errorf("%w: no %s held", ErrInsufficientPosition, symbol)
	}
	if qty > pos.Quantity {
		if qty > pos.Quantity+position.Epsilon {
			return Order{}, fmt.Errorf("%w: selling %v of %v %s", ErrInsufficientPosition, qty, pos.Quantity, symbol)
		}
		qty = pos.Quantity
	}

	entryPrice := pos.AvgEntryPrice
	openedAt := pos.OpenedAt
	realized, entryCommission, err := pos.Sell(qty, price)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrInsufficientPosition, err)
	}

	notional := qty * price
	commission := notional * a.CommissionRate
	a.Cash += notional - commission
	a.PnL.UpdateRealizedPnL(realized)
	a.PnL.AddCommission(commission)

	if pos.IsFlat() {
		delete(a.Positions, symbol)
	}

	order := Order{
		ID:          newOrderID(),
		TaskID:      a.TaskID,
		Symbol:      symbol,
		Side:        Sell,
		Quantity:    qty,
		Price:       price,
		Notional:    notional,
		Commission:  commission,
		RealizedPnL: realized,
		Timestamp:   ts,
		Strategy:    strategy,
		Reason:      reason,
	}
	a.Orders = append(a.Orders, order)
	a.ClosedTrades = append(a.ClosedTrades, ClosedTrade{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: entryPrice,
		ExitPrice:  price,
		PnL:        realized - entryCommission - commission,
		OpenedAt:   openedAt,
		ClosedAt:   ts,
		Reason:     reason,
	})
	return order, nil
}

// Close sells the whole holding of symbol.
func (a *Account) Close(symbol string, price float64, ts time.Time, strategy, reason string) (Order, error) {
	pos, ok := a.Positions[symbol]
	if !ok {
		return Order{}, fmt.Errorf("%w: no %s held", ErrInsufficientPosition, symbol)
	}
	return a.Sell(symbol, pos.Quantity, price, ts, strategy, reason)
}

// CloseAll liquidates every holding at its last marked price, in symbol order.
func (a *Account) CloseAll(ts time.Time, strategy, reason string) ([]Order, error) {
	var orders []Order
	for _, sym := range a.Symbols() {
		pos := a.Positions[sym]
		price := pos.CurrentPrice
		if price <= 0 {
			price = pos.AvgEntryPrice
		}
		o, err := a.Close(sym, price, ts, strategy, reason)
		if err != nil {
			return orders, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Mark revalues holdings with the given prices. Symbols without a price keep
// their last mark.
func (a *Account) Mark(prices map[string]float64) {
	for sym, pos := range a.Positions {
		if p, ok := prices[sym]; ok && p > 0 {
			pos.Mark(p)
		}
	}
}

// MarkSymbol revalues one holding.
func (a *Account) MarkSymbol(symbol string, price float64) {
	if pos, ok := a.Positions[symbol]; ok && price > 0 {
		pos.Mark(price)
	}
}

// Position returns the open holding of symbol.
func (a *Account) Position(symbol string) (*position.Position, bool) {
	pos, ok := a.Positions[symbol]
	return pos, ok
}

// Symbols lists the symbols with an open holding, sorted.
func (a *Account) Symbols() []string {
	out := make([]string, 0, len(a.Positions))
	for sym := range a.Positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// MarketValue is the marked value of all holdings.
func (a *Account) MarketValue() float64 {
	var total float64
	for _, pos := range a.Positions {
		total += pos.MarketValue()
	}
	return total
}

// CostBasis is the entry value of all holdings, commissions excluded.
func (a *Account) CostBasis() float64 {
	var total float64
	for _, pos := range a.Positions {
		total += pos.CostBasis()
	}
	return total
}

// Balance is cash plus the marked value of holdings.
func (a *Account) Balance() float64 {
	return a.Cash + a.MarketValue()
}

// UnrealizedPnL sums the open holdings' unrealized PnL.
func (a *Account) UnrealizedPnL() float64 {
	var total float64
	for _, pos := range a.Positions {
		total += pos.UnrealizedPnL
	}
	return total
}

// WinningTrades counts closed trades with a positive net PnL.
func (a *Account) WinningTrades() int {
	n := 0
	for _, t := range a.ClosedTrades {
		if t.Won() {
			n++
		}
	}
	return n
}

// Snapshot is a read-only copy of the account.
type Snapshot struct {
	Cash          float64             `json:"cash"`
	Balance       float64             `json:"balance"`
	RealizedPnL   float64             `json:"realized_pnl"`
	UnrealizedPnL float64             `json:"unrealized_pnl"`
	Commissions   float64             `json:"commissions"`
	Positions     []position.Position `json:"positions"`
	OrderCount    int                 `json:"order_count"`
	ClosedTrades  int                 `json:"closed_trades"`
	WinningTrades int                 `json:"winning_trades"`
}

// Snapshot copies the account state.
func (a *Account) Snapshot() Snapshot {
	positions := make([]position.Position, 0, len(a.Positions))
	for _, sym := range a.Symbols() {
		positions = append(positions, *a.Positions[sym])
	}
	return Snapshot{
		Cash:          a.Cash,
		Balance:       a.Balance(),
		RealizedPnL:   a.PnL.Realized,
		UnrealizedPnL: a.UnrealizedPnL(),
		Commissions:   a.PnL.Commissions,
		Positions:     positions,
		OrderCount:    len(a.Orders),
		ClosedTrades:  len(a.ClosedTrades),
		WinningTrades: a.WinningTrades(),
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.Positions = make(map[string]*position.Position, len(a.Positions))
	for sym, pos := range a.Positions {
		p := *pos
		c.Positions[sym] = &p
	}
	c.Orders = append([]Order(nil), a.Orders...)
	c.ClosedTrades = append([]ClosedTrade(nil), a.ClosedTrades...)
	return &c
}
