// Package marketdata provides market ticks from synthetic, replayed or live sources.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownSymbol is returned when a provider has no data for a symbol.
// Callers skip the symbol for the current cycle.
var ErrUnknownSymbol = errors.New("unknown symbol")

// MarketTick is a single quote for a symbol.
type MarketTick struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume    float64   `json:"volume"`
}

// Provider fetches the latest tick for a symbol.
type Provider interface {
	Tick(ctx context.Context, symbol string) (MarketTick, error)
}

// ClassSetter is implemented by providers whose quotes depend on the asset
// class of a symbol. Symbols without a class fall back to ClassOf.
type ClassSetter interface {
	SetAssetClass(symbol string, class AssetClass)
}

// AssetClass groups symbols that share volatility and spread characteristics.
type AssetClass string

const (
	Stocks      AssetClass = "stocks"
	Crypto      AssetClass = "crypto"
	Forex       AssetClass = "forex"
	Commodities AssetClass = "commodities"
)

// ParseAssetClass accepts the class names, case-insensitively.
// An empty string means stocks.
func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(strings.ToLower(strings.TrimSpace(s))) {
	case Stocks, "":
		return Stocks, nil
	case Crypto:
		return Crypto, nil
	case Forex:
		return Forex, nil
	case Commodities:
		return Commodities, nil
	}
	return "", fmt.Errorf("unknown asset class %q", s)
}

// classProfile is the daily volatility range and quoted spread of an asset class.
type classProfile struct {
	minVol float64
	maxVol float64
	spread float64 // fraction of mid
}

var profiles = map[AssetClass]classProfile{
	Stocks:      {minVol: 0.015, maxVol: 0.05, spread: 0.0005},
	Crypto:      {minVol: 0.03, maxVol: 0.08, spread: 0.001},
	Forex:       {minVol: 0.003, maxVol: 0.015, spread: 0.0002},
	Commodities: {minVol: 0.01, maxVol: 0.03, spread: 0.0008},
}

func profileFor(class AssetClass) classProfile {
	if p, ok := profiles[class]; ok {
		return p
	}
	return profiles[Stocks]
}

// Spread returns the quoted spread of the class as a fraction of mid.
func (c AssetClass) Spread() float64 { return profileFor(c).spread }

// VolatilityRange returns the daily volatility bounds of the class.
func (c AssetClass) VolatilityRange() (min, max float64) {
	p := profileFor(c)
	return p.minVol, p.maxVol
}

// ClassOf guesses the asset class of a symbol from its shape:
// "BTC-USD" style pairs of known coins are crypto, "EURUSD=X" is forex,
// "GC=F" is a commodity future and everything else is a stock.
func ClassOf(symbol string) AssetClass {
	s := strings.ToUpper(symbol)
	switch {
	case strings.HasSuffix(s, "=X"):
		return Forex
	case strings.HasSuffix(s, "=F"):
		return Commodities
	case strings.HasSuffix(s, "-USD"), strings.HasSuffix(s, "USDT"):
		return Crypto
	}
	return Stocks
}

// quote derives bid and ask around mid with the given spread fraction.
func quote(mid, spread float64) (bid, ask float64) {
	half := mid * spread / 2
	return mid - half, mid + half
}
