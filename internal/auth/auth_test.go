package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
)

func newAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	a, err := New(key, time.Hour)
	require.NoError(t, err)
	return a
}

// TestAuthenticator_IssueVerify tests the token round trip and rejection paths.
//
// WHY: The owner in the token decides which group a websocket joins; a forged
// or foreign token must never resolve to an owner.
func TestAuthenticator_IssueVerify(t *testing.T) {
	a := newAuthenticator(t)

	token, err := a.Issue("owner-1")
	require.NoError(t, err)

	owner, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)

	t.Run("tampered token", func(t *testing.T) {
		tampered := []byte(token)
		tampered[len(tampered)-5] ^= 0x01
		_, err := a.Verify(string(tampered))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("token from another key", func(t *testing.T) {
		other := newAuthenticator(t)
		foreign, err := other.Issue("owner-1")
		require.NoError(t, err)

		_, err = a.Verify(foreign)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("empty owner is refused", func(t *testing.T) {
		_, err := a.Issue(" ")
		assert.Error(t, err)
	})

	t.Run("bad key", func(t *testing.T) {
		_, err := New("not-a-key", time.Hour)
		assert.Error(t, err)
	})
}

func TestAuthenticator_Middleware(t *testing.T) {
	a := newAuthenticator(t)
	token, err := a.Issue("owner-1")
	require.NoError(t, err)

	var seen string
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantOwner  string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusNoContent, "owner-1"},
		{"query parameter", func(r *http.Request) { r.URL.RawQuery = QueryParam + "=" + token }, http.StatusNoContent, "owner-1"},
		{"missing token", func(_ *http.Request) {}, http.StatusUnauthorized, ""},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized, ""},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOwner, seen)
		})
	}
}
