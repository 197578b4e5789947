package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/testutil"
)

func TestValidateUUIDMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		uuid       string
		wantCalled bool
		wantStatus int
	}{
		{name: "passes through valid UUID", uuid: "550e8400-e29b-41d4-a716-446655440000", wantCalled: true, wantStatus: http.StatusOK},
		{name: "returns 400 for invalid UUID", uuid: "invalid-id", wantStatus: http.StatusBadRequest},
		{name: "returns 400 for empty UUID", uuid: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := testutil.NewRequestWithURLParams(http.MethodGet, "/test", map[string]string{"uuid": tt.uuid})
			w := httptest.NewRecorder()
			middleware.ValidateUUIDMiddleware(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCalled, handlerCalled)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
