package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/service"
)

// SymbolHandler serves the symbol catalog used by the asset picker.
type SymbolHandler struct {
	symbolService *service.SymbolService
}

// NewSymbolHandler creates a new SymbolHandler
func NewSymbolHandler(symbolService *service.SymbolService) *SymbolHandler {
	return &SymbolHandler{symbolService: symbolService}
}

// Symbols handles GET requests for every listed symbol of an asset class.
//
// Endpoint: GET /api/symbol/{assetClass}
// Response: 200 OK with Envelope[[]Symbol]
// Error: 500 Internal Server Error if the catalog cannot be read
func (h *SymbolHandler) Symbols(w http.ResponseWriter, r *http.Request) {
	class, err := model.ParseAssetClass(chi.URLParam(r, "assetClass"))
	if err != nil {
		response.RespondEnvelope(w, model.Fail[[]model.Symbol](err.Error()))
		return
	}

	symbols, err := h.symbolService.List(r.Context(), class)
	if err != nil {
		log.Error().Err(err).Str("asset_class", string(class)).Msg("failed to list symbols")
		response.RespondError(w, http.StatusInternalServerError, "failed to list symbols", err.Error())
		return
	}
	response.RespondEnvelope(w, model.Ok(symbols, ""))
}

// Search handles GET requests for listed symbols containing a fragment.
//
// Endpoint: GET /api/symbol/{assetClass}/search/{q}
// Response: 200 OK with Envelope[[]Symbol]
// Error: 500 Internal Server Error if the catalog cannot be read
func (h *SymbolHandler) Search(w http.ResponseWriter, r *http.Request) {
	class, err := model.ParseAssetClass(chi.URLParam(r, "assetClass"))
	if err != nil {
		response.RespondEnvelope(w, model.Fail[[]model.Symbol](err.Error()))
		return
	}

	symbols, err := h.symbolService.Search(r.Context(), class, chi.URLParam(r, "q"))
	if errors.Is(err, apperrors.ErrInvalidSymbol) {
		response.RespondEnvelope(w, model.Fail[[]model.Symbol](err.Error()))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("asset_class", string(class)).Msg("failed to search symbols")
		response.RespondError(w, http.StatusInternalServerError, "failed to search symbols", err.Error())
		return
	}
	response.RespondEnvelope(w, model.Ok(symbols, ""))
}
