package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/uniform-shop/internal/auth"
	"github.com/vasiliy-maslov/uniform-shop/internal/cart"
	"github.com/vasiliy-maslov/uniform-shop/internal/catalog"
	"github.com/vasiliy-maslov/uniform-shop/internal/config"
	"github.com/vasiliy-maslov/uniform-shop/internal/db"
	shopHttp "github.com/vasiliy-maslov/uniform-shop/internal/handler/http"
	"github.com/vasiliy-maslov/uniform-shop/internal/metrics"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
	"github.com/vasiliy-maslov/uniform-shop/internal/outbox"
	"github.com/vasiliy-maslov/uniform-shop/internal/telemetry"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "uniform-shop").Logger()

	log.Info().Msg("Uniform shop starting...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.App.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Debug().Interface("config_loaded", cfg).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Telemetry.SentryDSN,
			Environment: cfg.Telemetry.Environment,
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.App.Name, cfg.Telemetry.Environment, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	var lineCache order.LineCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, order detail cache will miss until it recovers")
		}
		lineCache = order.NewRedisLineCache(rdb, cfg.Redis.OrderTTL)
	}

	appMetrics := metrics.New()

	orderSvc := order.NewService(order.NewUnitOfWork(pg), order.NewRepository(pg.Pool), lineCache, order.Options{
		InitialStatus:   order.InitialStatus(cfg.Checkout.PaymentCaptured),
		CheckoutTimeout: cfg.Checkout.Timeout,
		EventTopic:      cfg.Kafka.OutboxTopic,
	})
	cartSvc := cart.NewService(cart.NewRepository(pg.Pool), catalog.NewRepository(pg.Pool))

	var wg sync.WaitGroup
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := outbox.NewKafkaPublisher(cfg.Kafka.Brokers)
		defer publisher.Close()

		relay := outbox.NewRelay(outbox.NewTransactor(pg), publisher, appMetrics, cfg.Kafka.OutboxBatchSize, cfg.Kafka.OutboxPollInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, outbox events will accumulate unpublished")
	}

	router := shopHttp.NewRouter(shopHttp.RouterConfig{
		Orders:            orderSvc,
		Cart:              cartSvc,
		Tokens:            auth.NewManager(cfg.Auth.JWTSecret, time.Hour),
		Metrics:           appMetrics,
		CheckoutRateLimit: cfg.Checkout.RateLimit,
		CheckoutRateBurst: cfg.Checkout.RateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	wg.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}
	log.Info().Msg("Server stopped")
}
