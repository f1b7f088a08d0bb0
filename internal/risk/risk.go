// Package risk maps risk tiers to sizing and exit thresholds and enforces
// account-wide limits.
package risk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTier is returned for a risk tier outside low, medium and high.
var ErrUnknownTier = errors.New("unknown risk tier")

// Tier is the user-selected risk appetite of a task.
type Tier string

const (
	Low    Tier = "low"
	Medium Tier = "medium"
	High   Tier = "high"
)

// ParseTier converts a tier name, case-insensitively.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tiers[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// UnmarshalJSON accepts any casing of a known tier name.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Params are the fractions a tier trades with.
type Params struct {
	PositionSize float64 `json:"position_size"` // fraction of the current balance committed per entry
	StopLoss     float64 `json:"stop_loss"`     // loss fraction from entry that forces an exit
	TakeProfit   float64 `json:"take_profit"`   // gain fraction from entry that forces an exit
}

var tiers = map[Tier]Params{
	Low:    {PositionSize: 0.10, StopLoss: 0.02, TakeProfit: 0.03},
	Medium: {PositionSize: 0.25, StopLoss: 0.03, TakeProfit: 0.05},
	High:   {PositionSize: 0.50, StopLoss: 0.05, TakeProfit: 0.08},
}

// ParamsFor returns the parameters of tier.
func ParamsFor(tier Tier) (Params, error) {
	p, ok := tiers[tier]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return p, nil
}

// PositionBudget is the cash to commit to a new entry: the tier fraction of
// the balance, capped by the cash on hand.
func (p Params) PositionBudget(balance, cash float64) float64 {
	budget := p.PositionSize * balance
	if budget > cash {
		budget = cash
	}
	if budget < 0 {
		return 0
	}
	return budget
}

// Exit reasons recorded on sell orders.
const (
	ReasonTakeProfit   = "take profit"
	ReasonStopLoss     = "stop loss"
	ReasonSignal       = "signal reversal"
	ReasonTarget       = "target reached"
	ReasonEntry        = "entry signal"
	ReasonManualClose  = "manual close"
	ReasonDurationDone = "duration elapsed"
)

// ExitReason reports whether a position opened at entry must be closed at
// current because it crossed the take-profit or stop-loss threshold.
// It returns an empty string when the position should be kept.
func (p Params) ExitReason(entry, current float64) string {
	if entry <= 0 {
		return ""
	}
	change := (current - entry) / entry
	switch {
	case change >= p.TakeProfit:
		return ReasonTakeProfit
	case change <= -p.StopLoss:
		return ReasonStopLoss
	}
	return ""
}

// Limits are account-wide guard rails applied on top of the tier.
type Limits struct {
	MaxDailyLoss float64 // fraction of the day's opening balance; 0 disables
}

// AllowEntry reports whether a new position may be opened given the balance
// at the start of the trading day and the current balance.
func (l Limits) AllowEntry(dayStartBalance, balance float64) bool {
	if l.MaxDailyLoss <= 0 || dayStartBalance <= 0 {
		return true
	}
	drawdown := (dayStartBalance - balance) / dayStartBalance
	return drawdown <= l.MaxDailyLoss
}
