package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-rebalancer/rebalance"
)

func TestStaticResolvesKnownSymbolsOnly(t *testing.T) {
	provider := NewStatic(rebalance.PriceMap{"AAPL": 100, "BAD": 0})

	prices, err := provider.ResolvePrices(context.Background(), []string{"AAPL", "BAD", "UNKNOWN"})
	require.NoError(t, err)

	assert.Equal(t, rebalance.PriceMap{"AAPL": 100}, prices)
}

func TestAlphaVantageResolvePrices(t *testing.T) {
	quotes := map[string]string{
		"AAPL": "189.84",
		"TSLA": "244.50",
	}
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		symbol := r.URL.Query().Get("symbol")
		price, ok := quotes[symbol]
		if !ok {
			// Alpha Vantage answers unknown symbols with an empty quote.
			fmt.Fprint(w, `{"Global Quote": {}}`)
			return
		}
		fmt.Fprintf(w, `{"Global Quote": {"05. price": "%s"}}`, price)
	}))
	defer server.Close()

	provider := &AlphaVantage{
		APIKey:  "demo",
		BaseURL: server.URL,
		Client:  server.Client(),
	}

	prices, err := provider.ResolvePrices(context.Background(), []string{"AAPL", "TSLA", "UNKNOWN"})
	require.NoError(t, err)

	assert.Equal(t, rebalance.PriceMap{"AAPL": 189.84, "TSLA": 244.50}, prices)
	assert.Equal(t, 3, requests)
}

func TestAlphaVantageTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider := &AlphaVantage{
		APIKey:  "demo",
		BaseURL: server.URL,
		Client:  http.DefaultClient,
	}

	_, err := provider.ResolvePrices(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PRICE_PROVIDER", "static")
	_, ok := FromEnv(nil, nil).(*Static)
	assert.True(t, ok)

	t.Setenv("PRICE_PROVIDER", "")
	_, ok = FromEnv(nil, nil).(*AlphaVantage)
	assert.True(t, ok)
}
