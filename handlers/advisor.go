package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-rebalancer/advisor"
)

// AdvisorHandler serves target-allocation suggestions.
type AdvisorHandler struct {
	Suggester advisor.Suggester
}

// SuggestTargets proposes target allocations for a free-text query. The
// result is advisory only; callers feed it back through /rebalance.
func (h *AdvisorHandler) SuggestTargets(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter required"})
		return
	}

	suggestions, err := h.Suggester.SuggestTargets(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "suggestions": suggestions})
}
