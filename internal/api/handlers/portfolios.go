package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/validation"
)

// PortfolioHandler handles portfolio-related HTTP requests.
// Every route acts on the authenticated owner's data only.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	valuationService *service.ValuationService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService, valuationService *service.ValuationService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		valuationService: valuationService,
	}
}

// Portfolios handles GET requests for the owner's live valuations.
// The body has the same envelope shape as the broadcast update.
//
// Endpoint: GET /api/portfolio
// Response: 200 OK with Envelope[[]PortfolioValuation]
// Error: 500 Internal Server Error if portfolios cannot be loaded
func (h *PortfolioHandler) Portfolios(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	valuations, err := h.valuationService.ComputeValuations(r.Context(), owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoPortfolios) {
			response.RespondEnvelope(w, model.Fail[[]model.PortfolioValuation](err.Error()))
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to compute valuations", err.Error())
		return
	}

	response.RespondEnvelope(w, model.Ok(valuations, ""))
}

// Portfolio handles GET requests for a single portfolio's valuation.
//
// Endpoint: GET /api/portfolio/{uuid}
// Response: 200 OK with PortfolioValuation
// Error: 404 Not Found if the owner has no such portfolio
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	portfolioID := chi.URLParam(r, "uuid")

	v, err := h.valuationService.ComputePortfolioValuation(r.Context(), owner, portfolioID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPortfolioNotFound) {
			response.RespondError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to compute valuation", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, v)
}

// CreatePortfolio handles POST requests to create an empty portfolio.
//
// Endpoint: POST /api/portfolio
// Request Body: CreatePortfolioRequest (type: "stock" | "crypto")
// Response: 201 Created with Portfolio
// Error: 400 Bad Request if validation fails or request body is invalid
func (h *PortfolioHandler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.CreatePortfolioRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreatePortfolio(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	portfolio, err := h.portfolioService.CreatePortfolio(r.Context(), owner, req)
	if err != nil {
		respondMutationError(w, err, "failed to create portfolio")
		return
	}

	response.RespondJSON(w, http.StatusCreated, portfolio)
}

// DeletePortfolio handles DELETE requests to remove a portfolio and its items.
//
// Endpoint: DELETE /api/portfolio/{uuid}
// Response: 204 No Content on successful deletion
// Error: 404 Not Found if the owner has no such portfolio
func (h *PortfolioHandler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.portfolioService.DeletePortfolio(r.Context(), owner, chi.URLParam(r, "uuid")); err != nil {
		respondMutationError(w, err, "failed to delete portfolio")
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// AddItem handles POST requests to add a position to a portfolio.
//
// Endpoint: POST /api/portfolio/{uuid}/items
// Request Body: CreateItemRequest (symbol, quantity, buyPrice, optional purchaseDate)
// Response: 201 Created with Position
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the owner has no such portfolio
func (h *PortfolioHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.CreateItemRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateItem(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	pos, err := h.portfolioService.AddItem(r.Context(), owner, chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondMutationError(w, err, "failed to add portfolio item")
		return
	}

	response.RespondJSON(w, http.StatusCreated, pos)
}

// UpdateItem handles PUT requests to change a position. Omitted fields are kept.
//
// Endpoint: PUT /api/portfolio/items/{uuid}
// Request Body: UpdateItemRequest (all fields optional)
// Response: 200 OK with updated Position
// Error: 404 Not Found if the owner has no such item
func (h *PortfolioHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.UpdateItemRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateItem(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	pos, err := h.portfolioService.UpdateItem(r.Context(), owner, chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondMutationError(w, err, "failed to update portfolio item")
		return
	}

	response.RespondJSON(w, http.StatusOK, pos)
}

// DeleteItem handles DELETE requests to remove a position.
//
// Endpoint: DELETE /api/portfolio/items/{uuid}
// Response: 204 No Content on successful deletion
// Error: 404 Not Found if the owner has no such item
func (h *PortfolioHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.portfolioService.DeleteItem(r.Context(), owner, chi.URLParam(r, "uuid")); err != nil {
		respondMutationError(w, err, "failed to delete portfolio item")
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

func respondMutationError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, apperrors.ErrPortfolioNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrPortfolioNotFound.Error(), "")
	case errors.Is(err, apperrors.ErrItemNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrItemNotFound.Error(), "")
	case errors.Is(err, apperrors.ErrInvalidAssetClass), errors.Is(err, validation.ErrInvalidDate),
		errors.Is(err, apperrors.ErrSymbolNotListed):
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
	default:
		log.Error().Err(err).Msg(message)
		response.RespondError(w, http.StatusInternalServerError, message, err.Error())
	}
}
