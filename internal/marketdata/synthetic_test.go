package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestSyntheticProvider_Reproducible(t *testing.T) {
	a := NewSyntheticProvider(42, WithClock(fixedClock))
	b := NewSyntheticProvider(42, WithClock(fixedClock))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		ta, err := a.Tick(ctx, "AAPL")
		require.NoError(t, err)
		tb, err := b.Tick(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, ta, tb)
	}
}

func TestSyntheticProvider_QuoteShape(t *testing.T) {
	p := NewSyntheticProvider(7)
	ctx := context.Background()

	first, err := p.Tick(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 65000.0, first.Price, "first tick starts at the base price")

	for i := 0; i < 500; i++ {
		tick, err := p.Tick(ctx, "BTC-USD")
		require.NoError(t, err)
		assert.Greater(t, tick.Price, 0.0)
		assert.GreaterOrEqual(t, tick.Price, 650.0, "price floor is 1% of base")
		assert.Less(t, tick.Bid, tick.Ask)
		assert.InDelta(t, tick.Price*Crypto.Spread(), tick.Ask-tick.Bid, 1e-6)
		assert.Greater(t, tick.Volume, 0.0)
	}
}

func TestSyntheticProvider_SetAssetClass(t *testing.T) {
	p := NewSyntheticProvider(11, WithClock(fixedClock))
	ctx := context.Background()

	first, err := p.Tick(ctx, "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, first.Price*Stocks.Spread(), first.Ask-first.Bid, 1e-9)

	p.SetAssetClass("aapl", Forex)
	tick, err := p.Tick(ctx, "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, tick.Price*Forex.Spread(), tick.Ask-tick.Bid, 1e-9)
	lo, hi := Forex.VolatilityRange()
	vol := p.walks["AAPL"].dailyVol
	assert.True(t, vol >= lo && vol <= hi, "volatility %v follows the new class", vol)
}

func TestSyntheticProvider_StepIsBounded(t *testing.T) {
	p := NewSyntheticProvider(3, WithTickInterval(24*time.Hour))
	ctx := context.Background()

	prev, err := p.Tick(ctx, "EURUSD=X")
	require.NoError(t, err)
	_, maxVol := Forex.VolatilityRange()
	for i := 0; i < 200; i++ {
		tick, err := p.Tick(ctx, "EURUSD=X")
		require.NoError(t, err)
		move := math.Abs(tick.Price/prev.Price - 1)
		assert.LessOrEqual(t, move, 3*maxVol+1e-12, "steps are clamped to three sigma")
		prev = tick
	}
}

func TestSyntheticProvider_UnknownSymbol(t *testing.T) {
	p := NewSyntheticProvider(1)
	_, err := p.Tick(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, ErrUnknownSymbol))

	require.NoError(t, p.AddSymbol("NOPE", 12.5, Stocks))
	tick, err := p.Tick(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Equal(t, 12.5, tick.Price)

	assert.Error(t, p.AddSymbol("BAD", 0, Stocks))
}

func TestSyntheticProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSyntheticProvider(1).Tick(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, Crypto, ClassOf("btc-usd"))
	assert.Equal(t, Crypto, ClassOf("ETHUSDT"))
	assert.Equal(t, Forex, ClassOf("EURUSD=X"))
	assert.Equal(t, Commodities, ClassOf("GC=F"))
	assert.Equal(t, Stocks, ClassOf("AAPL"))
}

func TestParseAssetClass(t *testing.T) {
	c, err := ParseAssetClass("Crypto")
	require.NoError(t, err)
	assert.Equal(t, Crypto, c)

	c, err = ParseAssetClass("")
	require.NoError(t, err)
	assert.Equal(t, Stocks, c)

	_, err = ParseAssetClass("bonds")
	assert.Error(t, err)
}
