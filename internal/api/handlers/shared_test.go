package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/testutil"
)

// TestParseJSON tests request body decoding.
// This is an internal test (package handlers, not handlers_test) because
// parseJSON is unexported.
func TestParseJSON(t *testing.T) {
	t.Run("decodes decimals from strings and numbers", func(t *testing.T) {
		req := testutil.NewJSONRequest(http.MethodPost, "/", `{"symbol":"BTC","quantity":"0.5","buyPrice":1000000}`, nil)

		got, err := parseJSON[request.CreateItemRequest](req)
		require.NoError(t, err)
		assert.Equal(t, "0.5", got.Quantity.String())
		assert.Equal(t, "1000000", got.BuyPrice.String())
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := testutil.NewJSONRequest(http.MethodPost, "/", `{"type":"crypto","name":"x"}`, nil)

		_, err := parseJSON[request.CreatePortfolioRequest](req)
		assert.Error(t, err)
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		req := testutil.NewJSONRequest(http.MethodPost, "/", `{"type":"crypto"}{"type":"stock"}`, nil)

		_, err := parseJSON[request.CreatePortfolioRequest](req)
		assert.Error(t, err)
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		body := `{"type":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		req := testutil.NewJSONRequest(http.MethodPost, "/", body, nil)

		_, err := parseJSON[request.CreatePortfolioRequest](req)
		assert.Error(t, err)
	})
}

func TestRequireOwner(t *testing.T) {
	w := httptest.NewRecorder()
	_, ok := requireOwner(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	owner, ok := requireOwner(w, testutil.AsOwner(httptest.NewRequest(http.MethodGet, "/", nil), "o1"))
	assert.True(t, ok)
	assert.Equal(t, "o1", owner)
}
