package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	NotifierLog = "log"
	NotifierSES = "ses"
)

type Config struct {
	Env         string `env:"APP_ENV" envDefault:"dev"`
	Port        int    `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"rollcall-api"`
	LogLevel    string `env:"LOG_LEVEL"`

	Store         string `env:"STORE" envDefault:"postgres"`
	DBHost        string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBUser        string `env:"DB_USER" envDefault:"rollcall"`
	DBPassword    string `env:"DB_PASSWORD" envDefault:"rollcall"`
	DBName        string `env:"DB_NAME" envDefault:"rollcall"`
	DBSSLMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	// JSON array of events for STORE=memory
	SeedEventsFile string `env:"SEED_EVENTS_FILE"`

	// empty disables the job queue; the API then sends mail inline
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTAccessTTL time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	JWTIssuer    string        `env:"JWT_ISSUER"`

	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`

	Timezone      string `env:"TIMEZONE" envDefault:"UTC"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	Notifier     string `env:"NOTIFIER" envDefault:"log"`
	SESRegion    string `env:"SES_REGION" envDefault:"us-east-1"`
	SESAccessKey string `env:"SES_ACCESS_KEY"`
	SESSecretKey string `env:"SES_SECRET_KEY"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" envDefault:"Rollcall"`

	EventCacheTTL time.Duration `env:"EVENT_CACHE_TTL" envDefault:"30s"`

	WorkerConcurrency  int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"1s"`
	WorkerHealthPort   int           `env:"WORKER_HEALTH_PORT" envDefault:"8081"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PublicRateLimit    int      `env:"PUBLIC_RATE_LIMIT" envDefault:"60"`
	StaffRateLimit     int      `env:"STAFF_RATE_LIMIT" envDefault:"600"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	switch c.Notifier {
	case NotifierLog:
	case NotifierSES:
		if c.SESFromEmail == "" {
			return errors.New("SES_FROM_EMAIL is required when NOTIFIER=ses")
		}
	default:
		return fmt.Errorf("NOTIFIER must be %q or %q, got %q", NotifierLog, NotifierSES, c.Notifier)
	}

	if c.JWTSecret == "" {
		if c.Env != "dev" {
			return errors.New("JWT_SECRET is required outside dev")
		}
		c.JWTSecret = "dev-only-secret"
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c Config) DBURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// Location is the zone used to decide which calendar day "now" falls on.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func (c Config) Tracer(serviceName string) observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName: serviceName,
		Env:         c.Env,
		Endpoint:    c.OTelEndpoint,
		SampleRatio: c.OTelSampleRatio,
	}
}
