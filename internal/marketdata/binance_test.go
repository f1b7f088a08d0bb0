package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", BinanceSymbol("BTC-USD"))
	assert.Equal(t, "ETHBTC", BinanceSymbol("eth-btc"))
	assert.Equal(t, "SOLUSDT", BinanceSymbol("SOLUSDT"))
}

func TestBinanceProvider_Tick(t *testing.T) {
	var gotSymbol string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/bookTicker", r.URL.Path)
		gotSymbol = r.URL.Query().Get("symbol")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"100.00","bidQty":"1.5","askPrice":"102.00","askQty":"2.5"}`))
	}))
	defer server.Close()

	p := NewBinanceProvider("", "", server.URL, time.Second)
	tick, err := p.Tick(context.Background(), "BTC-USD")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", gotSymbol)
	assert.Equal(t, "BTC-USD", tick.Symbol)
	assert.Equal(t, 100.0, tick.Bid)
	assert.Equal(t, 102.0, tick.Ask)
	assert.Equal(t, 101.0, tick.Price)
	assert.Equal(t, 4.0, tick.Volume)
}

func TestBinanceProvider_EmptyBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"XUSDT","bidPrice":"0","bidQty":"0","askPrice":"0","askQty":"0"}`))
	}))
	defer server.Close()

	_, err := NewBinanceProvider("", "", server.URL, time.Second).Tick(context.Background(), "X-USD")
	assert.True(t, errors.Is(err, ErrUnknownSymbol))
}
