package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

func TestTokenCmd(t *testing.T) {
	key, err := auth.GenerateKey()
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := &tokenCmd{out: &out, owner: "o1", key: key, ttl: time.Hour}
	require.Zero(t, cmd.Execute(context.Background(), nil))

	authn, err := auth.New(key, time.Hour)
	require.NoError(t, err)
	owner, err := authn.Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "o1", owner)
}

func TestPriceCmd_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			response.RespondError(w, http.StatusUnauthorized, "authentication required", "")
			return
		}
		if r.URL.Path == "/api/price/BTC/crypto" {
			response.RespondEnvelope(w, model.Ok("2000000.5", ""))
			return
		}
		response.RespondEnvelope(w, model.Fail[string]("symbol not found: NOPE"))
	}))
	t.Cleanup(srv.Close)
	cmd := &priceCmd{client: srv.Client()}

	value, err := cmd.fetch(context.Background(), srv.URL+"/", "tok", "BTC", "crypto")
	require.NoError(t, err)
	assert.Equal(t, "2000000.5", value)

	_, err = cmd.fetch(context.Background(), srv.URL, "tok", "NOPE", "crypto")
	assert.EqualError(t, err, "symbol not found: NOPE")

	_, err = cmd.fetch(context.Background(), srv.URL, "", "BTC", "crypto")
	assert.ErrorContains(t, err, "401")
}

func TestHubURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:5001/hub", hubURL("http://localhost:5001/"))
	assert.Equal(t, "wss://example.com/hub", hubURL("https://example.com"))
}

func TestParseBackoff(t *testing.T) {
	got, err := parseBackoff("0s, 2s,10s")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 10 * time.Second}, got)

	_, err = parseBackoff("5s,1s")
	assert.Error(t, err)

	_, err = parseBackoff("soon")
	assert.Error(t, err)
}
