package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Auth      AuthConfig
	Price     PriceConfig
	Scheduler SchedulerConfig
	Channel   ChannelConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration.
// Empty method and header lists fall back to what the REST API uses.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds the key used to seal and open owner access tokens.
type AuthConfig struct {
	FernetKey string
	TokenTTL  time.Duration
}

// PriceConfig configures the price source adapters.
type PriceConfig struct {
	BinanceBaseURL      string
	YahooBaseURL        string
	YahooSymbolSuffix   string
	CryptoQuoteCurrency string
	LocalCurrency       string
	FetchTimeout        time.Duration
	Concurrency         int
}

// SchedulerConfig configures the background refresh.
type SchedulerConfig struct {
	RefreshInterval     time.Duration
	OwnerRefreshTimeout time.Duration
}

// ChannelConfig configures the broadcast channel and its clients.
type ChannelConfig struct {
	PingInterval        time.Duration
	PongWait            time.Duration
	MaxReconnectRetries int
	ReconnectBackoff    []time.Duration
}

// RedisConfig enables the cross-instance backplane when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig enables valuation snapshot publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/portfolio_valuation.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			FernetKey: getEnv("AUTH_FERNET_KEY", ""),
		},
		Price: PriceConfig{
			BinanceBaseURL:      getEnv("BINANCE_BASE_URL", "https://api.binance.com/api/v3"),
			YahooBaseURL:        getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			YahooSymbolSuffix:   getEnv("YAHOO_SYMBOL_SUFFIX", ".IS"),
			CryptoQuoteCurrency: strings.ToUpper(getEnv("CRYPTO_QUOTE_CURRENCY", "USDT")),
			LocalCurrency:       strings.ToUpper(getEnv("LOCAL_CURRENCY", "TRY")),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "portfolio-valuations"),
		},
	}

	var err error
	config.CORS.AllowCredentials, err = getEnvBool("CORS_ALLOW_CREDENTIALS", true)
	collect(err)
	config.CORS.MaxAge, err = getEnvDuration("CORS_MAX_AGE", 5*time.Minute)
	collect(err)
	config.Auth.TokenTTL, err = getEnvDuration("AUTH_TOKEN_TTL", time.Hour)
	collect(err)
	config.Price.FetchTimeout, err = getEnvDuration("PRICE_FETCH_TIMEOUT", 10*time.Second)
	collect(err)
	config.Price.Concurrency, err = getEnvInt("PRICE_CONCURRENCY", 4)
	collect(err)

	intervalSeconds, err := getEnvInt("REFRESH_INTERVAL_SECONDS", 10)
	collect(err)
	config.Scheduler.RefreshInterval = time.Duration(intervalSeconds) * time.Second
	config.Scheduler.OwnerRefreshTimeout, err = getEnvDuration("OWNER_REFRESH_TIMEOUT", 30*time.Second)
	collect(err)

	config.Channel.PingInterval, err = getEnvDuration("HUB_PING_INTERVAL", 15*time.Second)
	collect(err)
	config.Channel.PongWait, err = getEnvDuration("HUB_PONG_WAIT", 30*time.Second)
	collect(err)
	config.Channel.MaxReconnectRetries, err = getEnvInt("MAX_RECONNECT_RETRIES", 5)
	collect(err)
	config.Channel.ReconnectBackoff, err = getEnvDurations("RECONNECT_BACKOFF", []time.Duration{
		0, 2 * time.Second, 10 * time.Second, 30 * time.Second,
	})
	collect(err)

	config.Redis.DB, err = getEnvInt("REDIS_DB", 0)
	collect(err)

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	collect(config.Validate())
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return config, nil
}

// Validate checks the invariants the scheduler and channel rely on.
func (c *Config) Validate() error {
	var errs []error
	if c.Scheduler.RefreshInterval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL_SECONDS must be positive"))
	}
	if c.Price.Concurrency < 1 {
		errs = append(errs, errors.New("PRICE_CONCURRENCY must be at least 1"))
	}
	if c.Channel.MaxReconnectRetries < 0 {
		errs = append(errs, errors.New("MAX_RECONNECT_RETRIES cannot be negative"))
	}
	if len(c.Channel.ReconnectBackoff) == 0 {
		errs = append(errs, errors.New("RECONNECT_BACKOFF cannot be empty"))
	}
	for i := 1; i < len(c.Channel.ReconnectBackoff); i++ {
		if c.Channel.ReconnectBackoff[i] < c.Channel.ReconnectBackoff[i-1] {
			errs = append(errs, errors.New("RECONNECT_BACKOFF must be non-decreasing"))
			break
		}
	}
	if c.Channel.PongWait <= c.Channel.PingInterval {
		errs = append(errs, errors.New("HUB_PONG_WAIT must be longer than HUB_PING_INTERVAL"))
	}
	return errors.Join(errs...)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// getEnvDurations parses a comma separated list such as "0s,2s,10s".
func getEnvDurations(key string, defaultValue []time.Duration) ([]time.Duration, error) {
	parts := getEnvList(key, nil)
	if parts == nil {
		return defaultValue, nil
	}
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
