package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider reads the latest quote from the Yahoo Finance chart endpoint.
type YahooProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.RWMutex
	classes map[string]AssetClass
}

// NewYahooProvider creates a provider. An empty baseURL selects the public endpoint.
func NewYahooProvider(baseURL string, timeout time.Duration) *YahooProvider {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		// The public endpoint throttles aggressively; 2 requests per second with a small burst.
		limiter: rate.NewLimiter(rate.Limit(2), 5),
		classes: make(map[string]AssetClass),
	}
}

// SetAssetClass sets the class whose spread is quoted around symbol's price.
func (p *YahooProvider) SetAssetClass(symbol string, class AssetClass) {
	p.mu.Lock()
	p.classes[strings.ToUpper(symbol)] = class
	p.mu.Unlock()
}

func (p *YahooProvider) classFor(symbol string) AssetClass {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if c, ok := p.classes[strings.ToUpper(symbol)]; ok {
		return c
	}
	return ClassOf(symbol)
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol              string  `json:"symbol"`
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				RegularMarketVolume float64 `json:"regularMarketVolume"`
				RegularMarketTime   int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Tick fetches the regular market price of symbol.
func (p *YahooProvider) Tick(ctx context.Context, symbol string) (MarketTick, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return MarketTick{}, err
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d", p.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return MarketTick{}, fmt.Errorf("failed to create chart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "shadow-trading-bot/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return MarketTick{}, fmt.Errorf("failed to execute chart request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MarketTick{}, fmt.Errorf("failed to read chart response (status: %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return MarketTick{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return MarketTick{}, fmt.Errorf("chart request for %s failed with status %d: %s", symbol, resp.StatusCode, string(body))
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return MarketTick{}, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return MarketTick{}, fmt.Errorf("%w: %s (%s)", ErrUnknownSymbol, symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || chart.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return MarketTick{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	meta := chart.Chart.Result[0].Meta
	ts := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		ts = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	bid, ask := quote(meta.RegularMarketPrice, p.classFor(symbol).Spread())
	return MarketTick{
		Symbol:    symbol,
		Timestamp: ts,
		Price:     meta.RegularMarketPrice,
		Bid:       bid,
		Ask:       ask,
		Volume:    meta.RegularMarketVolume,
	}, nil
}
