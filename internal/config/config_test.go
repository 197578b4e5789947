package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults tests that Load works on an empty environment.
//
// WHY: The service must start with zero configuration in development; the
// defaults are also the documented refresh and reconnect behaviour.
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env file

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:5001", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.RefreshInterval)
	assert.Equal(t, 5, cfg.Channel.MaxReconnectRetries)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}, cfg.Channel.ReconnectBackoff)
	assert.Equal(t, "USDT", cfg.Price.CryptoQuoteCurrency)
	assert.Equal(t, "TRY", cfg.Price.LocalCurrency)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, []string{"Content-Type", "Authorization"}, cfg.CORS.AllowedHeaders)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, 5*time.Minute, cfg.CORS.MaxAge)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REFRESH_INTERVAL_SECONDS", "3")
	t.Setenv("RECONNECT_BACKOFF", "1s, 2s ,4s")
	t.Setenv("MAX_RECONNECT_RETRIES", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOCAL_CURRENCY", "eur")
	t.Setenv("CORS_ALLOWED_METHODS", "GET")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Scheduler.RefreshInterval)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, cfg.Channel.ReconnectBackoff)
	assert.Equal(t, 2, cfg.Channel.MaxReconnectRetries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "EUR", cfg.Price.LocalCurrency)
	assert.Equal(t, []string{"GET"}, cfg.CORS.AllowedMethods)
	assert.False(t, cfg.CORS.AllowCredentials)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero interval", "REFRESH_INTERVAL_SECONDS", "0"},
		{"non numeric interval", "REFRESH_INTERVAL_SECONDS", "ten"},
		{"decreasing backoff", "RECONNECT_BACKOFF", "5s,1s"},
		{"bad duration", "PRICE_FETCH_TIMEOUT", "soon"},
		{"negative retries", "MAX_RECONNECT_RETRIES", "-1"},
		{"bad credentials flag", "CORS_ALLOW_CREDENTIALS", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
