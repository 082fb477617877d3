package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Name     string
	Port     string
	LogLevel string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string `json:"-"`
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type AuthConfig struct {
	JWTSecret string `json:"-"`
}

type RedisConfig struct {
	Addr     string
	Password string `json:"-"`
	DB       int
	OrderTTL time.Duration
}

type KafkaConfig struct {
	Brokers            []string
	OutboxTopic        string
	OutboxBatchSize    int
	OutboxPollInterval time.Duration
}

type CheckoutConfig struct {
	Timeout         time.Duration
	PaymentCaptured bool
	RateLimit       float64
	RateBurst       int
}

type TelemetryConfig struct {
	OTLPEndpoint string
	SentryDSN    string `json:"-"`
	Environment  string
}

type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Checkout  CheckoutConfig
	Telemetry TelemetryConfig
}

var (
	ErrMissingDBHost    = errors.New("DB_HOST is required")
	ErrMissingDBUser    = errors.New("DB_USER is required")
	ErrMissingDBName    = errors.New("DB_NAME is required")
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "uniform-shop")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	v.SetDefault("MIGRATIONS_PATH", "migrations")

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ORDER_CACHE_TTL", 10*time.Minute)

	v.SetDefault("OUTBOX_TOPIC", "orders.placed")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_POLL_INTERVAL", time.Second)

	v.SetDefault("CHECKOUT_TIMEOUT", 5*time.Second)
	v.SetDefault("PAYMENT_CAPTURED_BEFORE_CHECKOUT", true)
	v.SetDefault("CHECKOUT_RATE_LIMIT", 1.0)
	v.SetDefault("CHECKOUT_RATE_BURST", 3)

	v.SetDefault("ENVIRONMENT", "development")
}

// NewConfig loads .env (if present) and reads the environment.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("APP_NAME"),
			Port:     v.GetString("APP_PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Postgres: PostgresConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt32("DB_MAX_CONNS"),
			MinConns:        v.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime: v.GetDuration("DB_MAX_CONN_LIFETIME"),
			MigrationsPath:  v.GetString("MIGRATIONS_PATH"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			OrderTTL: v.GetDuration("ORDER_CACHE_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers:            splitCSV(v.GetString("KAFKA_BROKERS")),
			OutboxTopic:        v.GetString("OUTBOX_TOPIC"),
			OutboxBatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
			OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		},
		Checkout: CheckoutConfig{
			Timeout:         v.GetDuration("CHECKOUT_TIMEOUT"),
			PaymentCaptured: v.GetBool("PAYMENT_CAPTURED_BEFORE_CHECKOUT"),
			RateLimit:       v.GetFloat64("CHECKOUT_RATE_LIMIT"),
			RateBurst:       v.GetInt("CHECKOUT_RATE_BURST"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SentryDSN:    v.GetString("SENTRY_DSN"),
			Environment:  v.GetString("ENVIRONMENT"),
		},
	}

	if cfg.Postgres.Host == "" {
		return nil, ErrMissingDBHost
	}
	if cfg.Postgres.User == "" {
		return nil, ErrMissingDBUser
	}
	if cfg.Postgres.DBName == "" {
		return nil, ErrMissingDBName
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
