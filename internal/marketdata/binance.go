package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"
)

// BinanceProvider quotes crypto pairs from the Binance spot book ticker.
type BinanceProvider struct {
	client  *binance.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewBinanceProvider creates a provider. Keys may be empty for public market data.
// A non-empty baseURL replaces the public API host.
func NewBinanceProvider(apiKey, secretKey, baseURL string, timeout time.Duration) *BinanceProvider {
	client := binance.NewClient(apiKey, secretKey)
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}

	return &BinanceProvider{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		now:     time.Now,
	}
}

// BinanceSymbol converts "BTC-USD" style names into Binance pairs ("BTCUSDT").
// Names that already look like exchange pairs are only upper-cased.
func BinanceSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	base, quoteCcy, found := strings.Cut(s, "-")
	if !found {
		return s
	}
	if quoteCcy == "USD" {
		quoteCcy = "USDT"
	}
	return base + quoteCcy
}

// Tick fetches the best bid and ask for symbol and reports their midpoint as price.
func (p *BinanceProvider) Tick(ctx context.Context, symbol string) (MarketTick, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return MarketTick{}, err
	}

	pair := BinanceSymbol(symbol)
	tickers, err := p.client.NewListBookTickersService().Symbol(pair).Do(ctx)
	if err != nil {
		return MarketTick{}, fmt.Errorf("failed to fetch book ticker for %s: %w", pair, err)
	}
	if len(tickers) == 0 {
		return MarketTick{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	t := tickers[0]
	bid, err := strconv.ParseFloat(t.BidPrice, 64)
	if err != nil {
		return MarketTick{}, fmt.Errorf("invalid bid price %q for %s: %w", t.BidPrice, pair, err)
	}
	ask, err := strconv.ParseFloat(t.AskPrice, 64)
	if err != nil {
		return MarketTick{}, fmt.Errorf("invalid ask price %q for %s: %w", t.AskPrice, pair, err)
	}
	if bid <= 0 || ask <= 0 {
		return MarketTick{}, fmt.Errorf("%w: %s has an empty book", ErrUnknownSymbol, symbol)
	}
	bidQty, _ := strconv.ParseFloat(t.BidQuantity, 64)
	askQty, _ := strconv.ParseFloat(t.AskQuantity, 64)

	return MarketTick{
		Symbol:    symbol,
		Timestamp: p.now().UTC(),
		Price:     (bid + ask) / 2,
		Bid:       bid,
		Ask:       ask,
		Volume:    bidQty + askQty,
	}, nil
}
