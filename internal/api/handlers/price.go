package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// PriceProvider returns a single live quote.
type PriceProvider interface {
	GetPrice(ctx context.Context, symbol string, class model.AssetClass) model.PriceQuote
}

// PriceHandler serves ad-hoc price lookups.
type PriceHandler struct {
	prices PriceProvider
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(prices PriceProvider) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// Price handles GET requests for the current local-currency price of a symbol.
// The price is returned as a decimal string inside the standard envelope; a
// failed lookup is a success=false envelope with the reason as message.
//
// Endpoint: GET /api/price/{symbol}/{assetClass}
// Response: 200 OK with Envelope[string]
func (h *PriceHandler) Price(w http.ResponseWriter, r *http.Request) {
	class, err := model.ParseAssetClass(chi.URLParam(r, "assetClass"))
	if err != nil {
		response.RespondEnvelope(w, model.Fail[string](err.Error()))
		return
	}

	q := h.prices.GetPrice(r.Context(), chi.URLParam(r, "symbol"), class)
	if !q.OK() {
		response.RespondEnvelope(w, model.Fail[string](quoteMessage(q)))
		return
	}

	response.RespondEnvelope(w, model.Ok(q.Value.String(), ""))
}

func quoteMessage(q model.PriceQuote) string {
	switch q.Outcome {
	case model.OutcomeNotFound:
		return "symbol not found: " + q.Symbol
	default:
		if q.Reason != "" {
			return "price source error: " + q.Reason
		}
		return "price source error"
	}
}
