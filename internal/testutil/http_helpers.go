package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
)

// NewRequestWithURLParams creates an HTTP request with chi URL parameters.
// This helper simplifies testing chi handlers that use chi.URLParam() to extract path parameters.
//
// Example:
//
//	req := testutil.NewRequestWithURLParams(
//	    http.MethodGet,
//	    "/api/portfolio/123-456",
//	    map[string]string{"uuid": "123-456"},
//	)
func NewRequestWithURLParams(method, path string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, nil)

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range params {
			rctx.URLParams.Add(key, value)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req
}

// NewJSONRequest creates an HTTP request whose body is body encoded as JSON,
// with optional chi URL parameters. A string body is sent verbatim so tests
// can post malformed JSON.
//
// Example:
//
//	req := testutil.NewJSONRequest(
//	    http.MethodPost,
//	    "/api/portfolio",
//	    map[string]string{"type": "crypto"},
//	    nil,
//	)
func NewJSONRequest(method, path string, body any, params map[string]string) *http.Request {
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		raw, _ = json.Marshal(b)
	}

	req := NewRequestWithURLParams(method, path, params)
	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.ContentLength = int64(len(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AsOwner returns req authenticated as ownerID, as auth.Authenticator.Middleware would.
func AsOwner(req *http.Request, ownerID string) *http.Request {
	return req.WithContext(auth.WithOwner(req.Context(), ownerID))
}
