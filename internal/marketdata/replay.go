package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReplayProvider serves fixed price sequences. Once a sequence is exhausted
// the last price repeats. Bid and ask equal the price unless a spread is set.
type ReplayProvider struct {
	mu     sync.Mutex
	series map[string][]float64
	pos    map[string]int
	spread float64
	start  time.Time
	step   time.Duration
}

// NewReplayProvider creates a provider over the given per-symbol sequences.
func NewReplayProvider(series map[string][]float64) *ReplayProvider {
	copied := make(map[string][]float64, len(series))
	for sym, prices := range series {
		copied[sym] = append([]float64(nil), prices...)
	}
	return &ReplayProvider{
		series: copied,
		pos:    make(map[string]int),
		start:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		step:   time.Minute,
	}
}

// WithSpread sets the quoted spread as a fraction of mid.
func (p *ReplayProvider) WithSpread(spread float64) *ReplayProvider {
	p.spread = spread
	return p
}

// WithTimeline sets the timestamp of the first tick and the distance between ticks.
func (p *ReplayProvider) WithTimeline(start time.Time, step time.Duration) *ReplayProvider {
	p.start = start
	p.step = step
	return p
}

// Tick returns the next price of symbol.
func (p *ReplayProvider) Tick(ctx context.Context, symbol string) (MarketTick, error) {
	if err := ctx.Err(); err != nil {
		return MarketTick{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	prices, ok := p.series[symbol]
	if !ok || len(prices) == 0 {
		return MarketTick{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	i := p.pos[symbol]
	idx := i
	if idx >= len(prices) {
		idx = len(prices) - 1
	}
	p.pos[symbol] = i + 1

	price := prices[idx]
	bid, ask := quote(price, p.spread)
	return MarketTick{
		Symbol:    symbol,
		Timestamp: p.start.Add(time.Duration(i) * p.step),
		Price:     price,
		Bid:       bid,
		Ask:       ask,
		Volume:    1,
	}, nil
}

// Remaining reports how many unserved prices are left for symbol.
func (p *ReplayProvider) Remaining(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.series[symbol]) - p.pos[symbol]
	if n < 0 {
		return 0
	}
	return n
}
