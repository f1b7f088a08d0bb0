// Copyright (c) 2024 Shadow-Trading-Bot
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package indicator maintains rolling per-symbol price history and derives
// technical indicators and the composite trading signal from it.
package indicator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/signal"
	"github.com/your-org/shadow-trading-bot/pkg/series"
)

// ErrNoData is returned when a symbol has no recorded prices.
var ErrNoData = errors.New("no price history for symbol")

// Config holds the analyzer window sizes.
type Config struct {
	HistorySize int
	RSIPeriod   int
	ShortWindow int
	LongWindow  int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	EWMALambda  float64
}

// DefaultConfig returns the standard 50-point history with RSI(14),
// SMA(5)/SMA(20) and MACD(12,26,9).
func DefaultConfig() Config {
	return Config{
		HistorySize: 50,
		RSIPeriod:   14,
		ShortWindow: 5,
		LongWindow:  20,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		EWMALambda:  0.94,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.ShortWindow <= 0 {
		c.ShortWindow = d.ShortWindow
	}
	if c.LongWindow <= 0 {
		c.LongWindow = d.LongWindow
	}
	if c.MACDFast <= 0 {
		c.MACDFast = d.MACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = d.MACDSlow
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = d.MACDSignal
	}
	if c.EWMALambda <= 0 || c.EWMALambda >= 1 {
		c.EWMALambda = d.EWMALambda
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if min := c.MinHistory(); c.HistorySize < min {
		c.HistorySize = min
	}
	return c
}

// MinHistory is the number of prices needed before a signal other than hold
// can be produced.
func (c Config) MinHistory() int {
	n := c.LongWindow
	if c.RSIPeriod+1 > n {
		n = c.RSIPeriod + 1
	}
	if c.ShortWindow > n {
		n = c.ShortWindow
	}
	return n
}

// Snapshot is the indicator state of one symbol at its latest price.
type Snapshot struct {
	Symbol     string      `json:"symbol"`
	Timestamp  time.Time   `json:"timestamp"`
	Price      float64     `json:"price"`
	RSI        float64     `json:"rsi"`
	SMAShort   float64     `json:"sma_short"`
	SMALong    float64     `json:"sma_long"`
	MACD       MACDResult  `json:"macd"`
	Volatility float64     `json:"volatility"`
	Samples    int         `json:"samples"`
	Ready      bool        `json:"ready"`
	Overall    signal.Type `json:"overall_signal"`
}

// Analyzer keeps a bounded price window per symbol. It is not safe for
// concurrent use; the owner serialises access.
type Analyzer struct {
	cfg     Config
	windows map[string]*series.Window
}

// NewAnalyzer creates an Analyzer. Zero fields of cfg take their defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{
		cfg:     cfg.withDefaults(),
		windows: make(map[string]*series.Window),
	}
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// AddPrice records a price observation for symbol.
func (a *Analyzer) AddPrice(symbol string, price float64, ts time.Time) error {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("invalid price %v for %s", price, symbol)
	}
	w, ok := a.windows[symbol]
	if !ok {
		w = series.NewWindow(a.cfg.HistorySize)
		a.windows[symbol] = w
	}
	w.Add(series.Point{Time: ts, Price: price})
	return nil
}

// Signal computes the indicators and overall signal from the retained window.
// It is deterministic for a given window.
func (a *Analyzer) Signal(symbol string) (Snapshot, error) {
	w, ok := a.windows[symbol]
	if !ok || w.Len() == 0 {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	prices := w.Prices()
	last, _ := w.Last()

	snap := Snapshot{
		Symbol:    symbol,
		Timestamp: last.Time,
		Price:     last.Price,
		RSI:       50,
		Samples:   len(prices),
	}

	rsi, rsiOK := RSI(prices, a.cfg.RSIPeriod)
	if rsiOK {
		snap.RSI = rsi
	}
	short, shortOK := SMA(prices, a.cfg.ShortWindow)
	if shortOK {
		snap.SMAShort = short
	}
	long, longOK := SMA(prices, a.cfg.LongWindow)
	if longOK {
		snap.SMALong = long
	}
	snap.MACD = MACD(prices, a.cfg.MACDFast, a.cfg.MACDSlow, a.cfg.MACDSignal)
	snap.Volatility = EWMVolatility(prices, a.cfg.EWMALambda)
	snap.Ready = rsiOK && shortOK && longOK

	snap.Overall = signal.Evaluate(signal.Inputs{
		Price:         snap.Price,
		RSI:           snap.RSI,
		SMAShort:      snap.SMAShort,
		SMALong:       snap.SMALong,
		MACDHistogram: snap.MACD.Histogram,
		MACDValid:     snap.MACD.Valid,
		Ready:         snap.Ready,
	})
	return snap, nil
}

// History returns the retained points for symbol, oldest first.
func (a *Analyzer) History(symbol string) []series.Point {
	w, ok := a.windows[symbol]
	if !ok {
		return nil
	}
	return w.Points()
}

// Symbols lists the symbols with recorded history.
func (a *Analyzer) Symbols() []string {
	out := make([]string, 0, len(a.windows))
	for sym := range a.windows {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Reset discards the history of symbol.
func (a *Analyzer) Reset(symbol string) {
	delete(a.windows, symbol)
}
