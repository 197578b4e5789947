package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/hub"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/service"
)

// Dependencies are the collaborators the router mounts.
type Dependencies struct {
	System     *service.SystemService
	Portfolios *service.PortfolioService
	Symbols    *service.SymbolService
	Valuations *service.ValuationService
	Prices     handlers.PriceProvider
	Hub        *hub.Hub
	Auth       *auth.Authenticator
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(deps.System)
			r.Get("/health", systemHandler.Health)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Middleware)

			priceHandler := handlers.NewPriceHandler(deps.Prices)
			r.Get("/price/{symbol}/{assetClass}", priceHandler.Price)

			r.Route("/symbol/{assetClass}", func(r chi.Router) {
				symbolHandler := handlers.NewSymbolHandler(deps.Symbols)
				r.Get("/", symbolHandler.Symbols)
				r.Get("/search/{q}", symbolHandler.Search)
			})

			r.Route("/portfolio", func(r chi.Router) {
				portfolioHandler := handlers.NewPortfolioHandler(deps.Portfolios, deps.Valuations)
				r.Get("/", portfolioHandler.Portfolios)
				r.Post("/", portfolioHandler.CreatePortfolio)

				r.Route("/items/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Put("/", portfolioHandler.UpdateItem)
					r.Delete("/", portfolioHandler.DeleteItem)
				})

				r.Route("/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Get("/", portfolioHandler.Portfolio)
					r.Delete("/", portfolioHandler.DeletePortfolio)
					r.Post("/items", portfolioHandler.AddItem)
				})
			})
		})
	})

	// Broadcast channel. Browsers pass the token as ?access_token=.
	r.With(deps.Auth.Middleware).Get("/hub", deps.Hub.ServeWS)

	return r
}
