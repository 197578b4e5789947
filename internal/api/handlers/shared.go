package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
)

// maxBodyBytes caps request bodies; the largest legitimate body is a single item.
const maxBodyBytes = 1 << 16

// parseJSON decodes the request body into T, rejecting unknown fields and
// trailing data.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, errors.New("request body is required")
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return v, errors.New("request body must contain a single JSON object")
	}
	return v, nil
}

// requireOwner returns the authenticated owner, or writes 401 and returns false.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		response.RespondError(w, http.StatusUnauthorized, "authentication required", "")
		return "", false
	}
	return owner, true
}
