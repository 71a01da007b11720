package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-rebalancer/database"
	"portfolio-rebalancer/models"
	"portfolio-rebalancer/pricing"
	"portfolio-rebalancer/rebalance"
)

// PortfolioHandler serves the rebalance and performance endpoints.
type PortfolioHandler struct {
	Store  *database.Store
	Prices pricing.Provider
}

// RebalanceInput is the request body for POST /rebalance and
// PUT /portfolios/:id.
type RebalanceInput struct {
	UserID            *uint                        `json:"user_id"`
	Holdings          []rebalance.Holding          `json:"holdings" binding:"required,dive"`
	Targets           []rebalance.TargetAllocation `json:"targets" binding:"required,dive"`
	CashBufferPercent float64                      `json:"cash_buffer" binding:"min=0,max=100"`
}

type portfolioResponse struct {
	ID              uint                     `json:"id"`
	UserID          *uint                    `json:"user_id"`
	TotalValue      float64                  `json:"total_value"`
	CashBuffer      float64                  `json:"cash_buffer"`
	Recommendations models.RecommendationMap `json:"recommendations"`
}

// Rebalance creates a portfolio from the submitted holdings and targets
// and records its first performance snapshot.
func (h *PortfolioHandler) Rebalance(c *gin.Context) {
	var input RebalanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, result, ok := h.computeAndStore(c, nil, input)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"portfolio_id":    portfolio.ID,
		"total_value":     rebalance.Round2(result.TotalValue),
		"recommendations": portfolio.Recommendations,
	})
}

// UpdatePortfolio recomputes an existing portfolio against fresh prices,
// replacing its recommendation set wholesale and appending one snapshot.
func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	portfolioID, ok := parseUint(c, "id")
	if !ok {
		return
	}

	var input RebalanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, result, ok := h.computeAndStore(c, &portfolioID, input)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"portfolio_id":    portfolio.ID,
		"updated_value":   rebalance.Round2(result.TotalValue),
		"recommendations": portfolio.Recommendations,
	})
}

// computeAndStore runs the shared pipeline: resolve prices, compute
// recommendations, persist. Validation failures are rejected before
// anything is written.
func (h *PortfolioHandler) computeAndStore(c *gin.Context, portfolioID *uint, input RebalanceInput) (models.Portfolio, *rebalance.Result, bool) {
	symbols := make([]string, 0, len(input.Holdings)+len(input.Targets))
	for _, holding := range input.Holdings {
		symbols = append(symbols, holding.Symbol)
	}
	for _, target := range input.Targets {
		symbols = append(symbols, target.Symbol)
	}

	prices, err := h.Prices.ResolvePrices(c.Request.Context(), symbols)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return models.Portfolio{}, nil, false
	}

	result, err := rebalance.Compute(rebalance.Request{
		Holdings:          input.Holdings,
		Targets:           input.Targets,
		CashBufferPercent: input.CashBufferPercent,
	}, prices)
	if err != nil {
		respondError(c, err)
		return models.Portfolio{}, nil, false
	}

	portfolio, err := h.Store.CreateOrUpdate(
		portfolioID,
		ownerID(c, input.UserID),
		rebalance.Round2(result.TotalValue),
		input.CashBufferPercent,
		models.HoldingList(input.Holdings),
		models.TargetList(input.Targets),
		models.RecommendationMap(result.Recommendations),
	)
	if err != nil {
		respondError(c, err)
		return models.Portfolio{}, nil, false
	}
	return portfolio, result, true
}

// GetPerformance returns the valuation time series for one portfolio,
// ascending by timestamp.
func (h *PortfolioHandler) GetPerformance(c *gin.Context) {
	portfolioID, ok := parseUint(c, "id")
	if !ok {
		return
	}

	snapshots, err := h.Store.GetPerformance(portfolioID)
	if err != nil {
		respondError(c, err)
		return
	}

	series := make([]gin.H, len(snapshots))
	for i, snapshot := range snapshots {
		series[i] = gin.H{
			"timestamp":   snapshot.Timestamp.Format(time.RFC3339),
			"total_value": snapshot.TotalValue,
		}
	}
	c.JSON(http.StatusOK, series)
}

// ListPortfolios returns every stored portfolio.
func (h *PortfolioHandler) ListPortfolios(c *gin.Context) {
	portfolios, err := h.Store.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(portfolios))
}

// ListByUser returns the portfolios owned by the user in the path.
func (h *PortfolioHandler) ListByUser(c *gin.Context) {
	userID, ok := parseUint(c, "user_id")
	if !ok {
		return
	}
	h.listFor(c, userID)
}

// ListMine returns the authenticated caller's portfolios.
func (h *PortfolioHandler) ListMine(c *gin.Context) {
	h.listFor(c, c.MustGet("user_id").(uint))
}

func (h *PortfolioHandler) listFor(c *gin.Context, userID uint) {
	portfolios, err := h.Store.ListByUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(portfolios))
}

func toResponses(portfolios []models.Portfolio) []portfolioResponse {
	out := make([]portfolioResponse, len(portfolios))
	for i, p := range portfolios {
		out[i] = portfolioResponse{
			ID:              p.ID,
			UserID:          p.UserID,
			TotalValue:      p.TotalValue,
			CashBuffer:      p.CashBufferPercent,
			Recommendations: p.Recommendations,
		}
	}
	return out
}

// ownerID prefers the authenticated user over the one named in the body.
func ownerID(c *gin.Context, fromBody *uint) *uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return &id
		}
	}
	return fromBody
}

func parseUint(c *gin.Context, param string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return uint(value), true
}

// respondError maps the error taxonomy to HTTP statuses: unpriceable
// symbols and missing rows are 404, allocation violations are 400,
// everything else is 500.
func respondError(c *gin.Context, err error) {
	var priceErr *rebalance.PriceError
	var allocErr *rebalance.AllocationError
	switch {
	case errors.As(err, &priceErr):
		c.JSON(http.StatusNotFound, gin.H{"error": priceErr.Error()})
	case errors.As(err, &allocErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": allocErr.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
