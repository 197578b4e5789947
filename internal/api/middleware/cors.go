package middleware

import (
	"github.com/go-chi/cors"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/config"
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization"}
)

// NewCORS builds the CORS middleware from cfg. The websocket endpoint takes
// its token from the query string, so only REST calls need Authorization.
func NewCORS(cfg config.CORSConfig) *cors.Cors {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           int(cfg.MaxAge.Seconds()),
	})
}
