package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Base prices of the symbols the synthetic feed knows out of the box.
var basePrices = map[string]float64{
	"AAPL":     190,
	"MSFT":     410,
	"GOOGL":    160,
	"AMZN":     180,
	"TSLA":     240,
	"NVDA":     900,
	"META":     480,
	"SPY":      520,
	"BTC-USD":  65000,
	"ETH-USD":  3400,
	"SOL-USD":  150,
	"DOGE-USD": 0.15,
	"EURUSD=X": 1.08,
	"GBPUSD=X": 1.27,
	"USDJPY=X": 151,
	"GC=F":     2300,
	"SI=F":     27,
	"CL=F":     80,
}

type walk struct {
	class    AssetClass
	base     float64
	price    float64
	dailyVol float64
}

// SyntheticProvider generates a bounded random walk per symbol.
// The sequence is reproducible for a given seed and call order.
type SyntheticProvider struct {
	mu       sync.Mutex
	rng      *rand.Rand
	step     time.Duration
	now      func() time.Time
	walks    map[string]*walk
	bases    map[string]float64
	override map[string]AssetClass
}

// SyntheticOption configures a SyntheticProvider.
type SyntheticOption func(*SyntheticProvider)

// WithTickInterval sets the simulated time between two ticks of a symbol.
// It scales the per-tick volatility.
func WithTickInterval(d time.Duration) SyntheticOption {
	return func(p *SyntheticProvider) {
		if d > 0 {
			p.step = d
		}
	}
}

// WithClock replaces time.Now for tick timestamps.
func WithClock(now func() time.Time) SyntheticOption {
	return func(p *SyntheticProvider) { p.now = now }
}

// NewSyntheticProvider creates a provider seeded with seed.
func NewSyntheticProvider(seed int64, opts ...SyntheticOption) *SyntheticProvider {
	p := &SyntheticProvider{
		rng:      rand.New(rand.NewSource(seed)),
		step:     5 * time.Minute,
		now:      time.Now,
		walks:    make(map[string]*walk),
		bases:    make(map[string]float64, len(basePrices)),
		override: make(map[string]AssetClass),
	}
	for sym, price := range basePrices {
		p.bases[sym] = price
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddSymbol registers a symbol that is not in the built-in table.
func (p *SyntheticProvider) AddSymbol(symbol string, basePrice float64, class AssetClass) error {
	if basePrice <= 0 {
		return fmt.Errorf("base price for %s must be positive", symbol)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sym := strings.ToUpper(symbol)
	p.bases[sym] = basePrice
	p.override[sym] = class
	delete(p.walks, sym)
	return nil
}

// SetAssetClass makes symbol walk and quote as class. A walk already in
// progress keeps its price and draws a new volatility when the class changes.
func (p *SyntheticProvider) SetAssetClass(symbol string, class AssetClass) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sym := strings.ToUpper(symbol)
	p.override[sym] = class
	if w, ok := p.walks[sym]; ok && w.class != class {
		w.class = class
		w.dailyVol = p.drawVol(class)
	}
}

func (p *SyntheticProvider) drawVol(class AssetClass) float64 {
	lo, hi := class.VolatilityRange()
	return lo + p.rng.Float64()*(hi-lo)
}

// Tick advances the walk of symbol by one step and returns the new quote.
func (p *SyntheticProvider) Tick(ctx context.Context, symbol string) (MarketTick, error) {
	if err := ctx.Err(); err != nil {
		return MarketTick{}, err
	}
	sym := strings.ToUpper(symbol)

	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.walks[sym]
	if !ok {
		base, known := p.bases[sym]
		if !known {
			return MarketTick{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
		class, forced := p.override[sym]
		if !forced {
			class = ClassOf(sym)
		}
		w = &walk{
			class:    class,
			base:     base,
			price:    base,
			dailyVol: p.drawVol(class),
		}
		p.walks[sym] = w
	} else {
		sigma := w.dailyVol * math.Sqrt(p.step.Hours()/24)
		z := p.rng.NormFloat64()
		if z > 3 {
			z = 3
		} else if z < -3 {
			z = -3
		}
		w.price *= 1 + sigma*z
		if floor := w.base * 0.01; w.price < floor {
			w.price = floor
		}
	}

	bid, ask := quote(w.price, w.class.Spread())
	ts := p.now().UTC()
	return MarketTick{
		Symbol:    symbol,
		Timestamp: ts,
		Price:     w.price,
		Bid:       bid,
		Ask:       ask,
		Volume:    1000 + p.rng.Float64()*99000,
	}, nil
}

// Symbols lists every symbol the provider can quote.
func (p *SyntheticProvider) Symbols() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.bases))
	for s := range p.bases {
		out = append(out, s)
	}
	return out
}
