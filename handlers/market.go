package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"portfolio-rebalancer/database"
	"portfolio-rebalancer/models"
	"portfolio-rebalancer/pricing"
)

// MarketHandler serves quote and price-history lookups.
type MarketHandler struct {
	Prices pricing.Provider
	Store  *database.Store
	Cache  *redis.Client
}

type timeSeriesResponse struct {
	TimeSeriesDaily map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
}

// GetStockPrice resolves the current price for one symbol through the
// configured provider.
func (h *MarketHandler) GetStockPrice(c *gin.Context) {
	symbol := c.Param("symbol")

	prices, err := h.Prices.ResolvePrices(c.Request.Context(), []string{symbol})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch stock data"})
		return
	}
	price, ok := prices[symbol]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}

// GetHistoricalData returns the daily close series for a symbol,
// persisting it and caching the response for a day.
func (h *MarketHandler) GetHistoricalData(c *gin.Context) {
	symbol := c.Param("symbol")
	ctx := c.Request.Context()
	cacheKey := fmt.Sprintf("stock:%s:history", symbol)

	if h.Cache != nil {
		if cached, err := h.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var history []models.StockPrice
			if json.Unmarshal([]byte(cached), &history) == nil {
				c.JSON(http.StatusOK, history)
				return
			}
		}
	}

	apiKey := os.Getenv("ALPHA_VANTAGE_API_KEY")
	url := fmt.Sprintf("https://www.alphavantage.co/query?function=TIME_SERIES_DAILY&symbol=%s&apikey=%s", symbol, apiKey)

	resp, err := http.Get(url)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch historical data"})
		return
	}
	defer resp.Body.Close()

	var result timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse historical data"})
		return
	}
	if len(result.TimeSeriesDaily) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Historical data not found"})
		return
	}

	history := make([]models.StockPrice, 0, len(result.TimeSeriesDaily))
	for date, day := range result.TimeSeriesDaily {
		closePrice, err := strconv.ParseFloat(day.Close, 64)
		if err != nil {
			continue
		}
		timestamp, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		history = append(history, models.StockPrice{
			Symbol:    symbol,
			Price:     closePrice,
			Timestamp: timestamp,
		})
	}

	if err := h.Store.SavePriceHistory(history, 100); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store historical data"})
		return
	}

	if h.Cache != nil {
		if data, err := json.Marshal(history); err == nil {
			h.Cache.Set(ctx, cacheKey, data, 24*time.Hour)
		}
	}

	c.JSON(http.StatusOK, history)
}
