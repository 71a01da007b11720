// Package pricing resolves current stock prices for the rebalance
// pipeline. Two providers exist: a live Alpha Vantage lookup with a
// Redis cache, and a fixed-table provider for offline use and tests.
// Selection happens through the PRICE_PROVIDER environment variable.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"portfolio-rebalancer/database"
	"portfolio-rebalancer/rebalance"
)

// Provider resolves prices for a set of symbols. Symbols without a
// usable quote are simply absent from the returned map; the calculator
// reports them as unpriceable. A non-nil error means the lookup itself
// failed.
type Provider interface {
	ResolvePrices(ctx context.Context, symbols []string) (rebalance.PriceMap, error)
}

const cacheExpiration = 5 * time.Minute

type alphaVantageQuote struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

// AlphaVantage fetches live quotes, caching each one in Redis for five
// minutes and recording it as a StockPrice row. Cache and store are
// optional; a nil client skips that step.
type AlphaVantage struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	Cache   *redis.Client
	Store   *database.Store
}

func NewAlphaVantage(cache *redis.Client, store *database.Store) *AlphaVantage {
	return &AlphaVantage{
		APIKey:  os.Getenv("ALPHA_VANTAGE_API_KEY"),
		BaseURL: "https://www.alphavantage.co",
		Client:  &http.Client{Timeout: 10 * time.Second},
		Cache:   cache,
		Store:   store,
	}
}

func (a *AlphaVantage) ResolvePrices(ctx context.Context, symbols []string) (rebalance.PriceMap, error) {
	prices := make(rebalance.PriceMap, len(symbols))
	for _, symbol := range symbols {
		if _, ok := prices[symbol]; ok {
			continue
		}

		if a.Cache != nil {
			cached, err := a.Cache.Get(ctx, cacheKey(symbol)).Result()
			if err == nil {
				if price, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil && price > 0 {
					prices[symbol] = price
					continue
				}
			}
		}

		price, err := a.fetchQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if price <= 0 {
			// No usable quote; leave the symbol out of the map.
			continue
		}
		prices[symbol] = price

		if a.Cache != nil {
			a.Cache.Set(ctx, cacheKey(symbol), strconv.FormatFloat(price, 'f', -1, 64), cacheExpiration)
		}
		if a.Store != nil {
			if err := a.Store.SavePrice(symbol, price); err != nil {
				return nil, fmt.Errorf("persist price for %s: %w", symbol, err)
			}
		}
	}
	return prices, nil
}

func (a *AlphaVantage) fetchQuote(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", a.BaseURL, symbol, a.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	var quote alphaVantageQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("parse quote for %s: %w", symbol, err)
	}
	if quote.GlobalQuote.Price == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(quote.GlobalQuote.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quote for %s: %w", symbol, err)
	}
	return price, nil
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("stock:%s:price", symbol)
}

// Static serves prices from a fixed table. It backs the sample-data
// configuration and the tests.
type Static struct {
	Prices rebalance.PriceMap
}

func NewStatic(prices rebalance.PriceMap) *Static {
	return &Static{Prices: prices}
}

func (s *Static) ResolvePrices(_ context.Context, symbols []string) (rebalance.PriceMap, error) {
	prices := make(rebalance.PriceMap, len(symbols))
	for _, symbol := range symbols {
		if price, ok := s.Prices[symbol]; ok && price > 0 {
			prices[symbol] = price
		}
	}
	return prices, nil
}

// SamplePrices mirrors the demo portfolio the project ships with.
func SamplePrices() rebalance.PriceMap {
	return rebalance.PriceMap{
		"AAPL":  150.50,
		"MSFT":  320.10,
		"GOOGL": 2800.00,
		"TSLA":  410.20,
	}
}

// FromEnv picks the provider named by PRICE_PROVIDER: "static" for the
// sample table, anything else for the live Alpha Vantage lookup.
func FromEnv(cache *redis.Client, store *database.Store) Provider {
	if os.Getenv("PRICE_PROVIDER") == "static" {
		return NewStatic(SamplePrices())
	}
	return NewAlphaVantage(cache, store)
}
