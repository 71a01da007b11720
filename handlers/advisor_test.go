package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-rebalancer/advisor"
)

func TestSuggestTargets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &AdvisorHandler{Suggester: advisor.NewStatic()}
	router := gin.New()
	router.GET("/suggest_targets", handler.SuggestTargets)

	w := doRequest(router, http.MethodGet, "/suggest_targets", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/suggest_targets?query=dividend+stocks", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "dividend stocks", body["query"])
	assert.NotEmpty(t, body["suggestions"])
}
