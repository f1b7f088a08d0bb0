// Package signal turns indicator readings into a trading decision.
package signal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type represents the overall trading signal for a symbol.
type Type int

const (
	// Hold indicates no action.
	Hold Type = iota
	// Buy indicates an oversold reading with price above both moving averages.
	Buy
	// StrongBuy is a Buy confirmed by a positive MACD histogram.
	StrongBuy
	// Sell indicates an overbought reading with price below both moving averages.
	Sell
	// StrongSell is a Sell confirmed by a negative MACD histogram.
	StrongSell
)

// Default RSI bands.
const (
	OversoldRSI   = 30.0
	OverboughtRSI = 70.0
)

// String returns the string representation of Type.
func (t Type) String() string {
	switch t {
	case Hold:
		return "hold"
	case Buy:
		return "buy"
	case StrongBuy:
		return "strong_buy"
	case Sell:
		return "sell"
	case StrongSell:
		return "strong_sell"
	default:
		return "unknown"
	}
}

// IsBuy reports whether the signal opens a position.
func (t Type) IsBuy() bool { return t == Buy || t == StrongBuy }

// IsSell reports whether the signal closes a position.
func (t Type) IsSell() bool { return t == Sell || t == StrongSell }

// Parse converts a name produced by String back into a Type.
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hold", "":
		return Hold, nil
	case "buy":
		return Buy, nil
	case "strong_buy", "strong-buy":
		return StrongBuy, nil
	case "sell":
		return Sell, nil
	case "strong_sell", "strong-sell":
		return StrongSell, nil
	}
	return Hold, fmt.Errorf("unknown signal %q", s)
}

// MarshalJSON encodes the signal by name.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a signal name.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Inputs holds the indicator readings the decision is made from.
type Inputs struct {
	Price         float64
	RSI           float64
	SMAShort      float64
	SMALong       float64
	MACDHistogram float64
	MACDValid     bool
	Ready         bool // false until the window holds enough prices
}

// Evaluate applies the composite rule:
// RSI below 30 with price above both averages is a buy, RSI above 70 with
// price below both averages is a sell, everything else holds.
func Evaluate(in Inputs) Type {
	if !in.Ready {
		return Hold
	}

	aboveBoth := in.Price > in.SMAShort && in.Price > in.SMALong
	belowBoth := in.Price < in.SMAShort && in.Price < in.SMALong

	switch {
	case in.RSI < OversoldRSI && aboveBoth:
		if in.MACDValid && in.MACDHistogram > 0 {
			return StrongBuy
		}
		return Buy
	case in.RSI > OverboughtRSI && belowBoth:
		if in.MACDValid && in.MACDHistogram < 0 {
			return StrongSell
		}
		return Sell
	default:
		return Hold
	}
}
