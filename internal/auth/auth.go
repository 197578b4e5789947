// Package auth issues and verifies opaque owner tokens.
//
// Tokens are Fernet tokens whose plaintext is the owner ID. They are accepted
// from an "Authorization: Bearer" header or, for websocket upgrades where
// browsers cannot set headers, from the access_token query parameter.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
)

// QueryParam is the query parameter checked when no Authorization header is present.
const QueryParam = "access_token"

type ownerKey struct{}

// Authenticator signs and verifies owner tokens with a single Fernet key.
type Authenticator struct {
	key *fernet.Key
	ttl time.Duration
}

// New creates an Authenticator from a base64-encoded 32-byte Fernet key.
func New(encodedKey string, ttl time.Duration) (*Authenticator, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid fernet key: %w", err)
	}
	return &Authenticator{key: key, ttl: ttl}, nil
}

// GenerateKey returns a new random base64-encoded Fernet key.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return k.Encode(), nil
}

// Issue returns a token identifying ownerID.
func (a *Authenticator) Issue(ownerID string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", errors.New("owner id is required")
	}
	tok, err := fernet.EncryptAndSign([]byte(ownerID), a.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(tok), nil
}

// Verify returns the owner ID carried by token. Expired, tampered or foreign
// tokens return apperrors.ErrUnauthorized.
func (a *Authenticator) Verify(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), a.ttl, []*fernet.Key{a.key})
	if len(msg) == 0 {
		return "", apperrors.ErrUnauthorized
	}
	return string(msg), nil
}

// Middleware rejects requests without a valid token and stores the owner ID
// in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			response.RespondError(w, http.StatusUnauthorized, "authentication required", "")
			return
		}

		owner, err := a.Verify(token)
		if err != nil {
			response.RespondError(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(QueryParam)
}

// WithOwner returns a copy of ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the authenticated owner stored by Middleware.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}
