package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/binance"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/database"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/events"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/hub"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/logging"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/price"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/scheduler"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Str("path", cfg.Database.Path).Int("migrations_applied", applied).Msg("Connected to database")

	authn, err := newAuthenticator(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure authentication")
	}

	binanceClient := binance.NewClient(cfg.Price.BinanceBaseURL, cfg.Price.FetchTimeout)

	// Price sources
	aggregator := price.NewAggregator(
		price.NewCryptoSource(
			binanceClient,
			cfg.Price.CryptoQuoteCurrency,
			cfg.Price.LocalCurrency,
		),
		price.NewEquitySource(
			yahoo.NewFinanceClient(cfg.Price.YahooBaseURL, cfg.Price.YahooSymbolSuffix, cfg.Price.FetchTimeout),
			cfg.Price.Concurrency,
		),
	)

	// Broadcast channel
	valuationHub := hub.New(cfg.Channel)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		valuationHub.WithBackplane(hub.NewRedisBackplane(rdb))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis backplane")
	}

	// Create repositories and services
	portfolioRepo := repository.NewPortfolioRepository(db)

	// An unreachable exchange leaves the crypto catalog as it was; a class
	// that was never seeded accepts any symbol.
	symbolService := service.NewSymbolService(repository.NewSymbolRepository(db), binanceClient)
	if err := symbolService.Seed(ctx); err != nil {
		log.Warn().Err(err).Msg("Symbol catalog seeding incomplete")
	}

	systemService := service.NewSystemService(db)
	valuationService := service.NewValuationService(portfolioRepo, aggregator, valuationHub)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		valuationService.WithSnapshotSink(producer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing valuation snapshots")
	}
	portfolioService := service.NewPortfolioService(portfolioRepo, valuationService).WithCatalog(symbolService)

	refresh := scheduler.New(portfolioRepo, valuationService, cfg.Scheduler)
	systemService.WithProbes(refresh, valuationHub)

	// Create router
	router := api.NewRouter(api.Dependencies{
		System:     systemService,
		Portfolios: portfolioService,
		Symbols:    symbolService,
		Valuations: valuationService,
		Prices:     aggregator,
		Hub:        valuationHub,
		Auth:       authn,
	}, cfg)

	// Create HTTP server. No WriteTimeout: it would cut hijacked websocket
	// connections; handlers bound their own work through the fetch timeout.
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return valuationHub.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		refresh.Start()
		<-gctx.Done()

		log.Info().Msg("Shutting down server...")

		// Let an in-flight refresh pass finish its current owner.
		<-refresh.Stop().Done()
		valuationHub.Close()

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("Server exited")
}

// newAuthenticator uses the configured key, or an ephemeral one so a local
// instance starts without setup. Tokens signed with an ephemeral key do not
// survive a restart.
func newAuthenticator(cfg config.AuthConfig) (*auth.Authenticator, error) {
	key := cfg.FernetKey
	if key == "" {
		generated, err := auth.GenerateKey()
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("AUTH_FERNET_KEY not set, using an ephemeral key")
		key = generated
	}
	return auth.New(key, cfg.TokenTTL)
}
