// Package config provides configuration loading for the SDL validation
// service. All settings come from SDL_-prefixed environment variables,
// with .env files honored in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package
// initialization. godotenv.Load does not override already-set variables,
// preserving OS env > .env precedence.
func init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the validation service.
type Config struct {
	Env  string // deployment environment (dev, staging, prod)
	Port string // HTTP server port

	DatabaseDSN string // PostgreSQL DSN; empty selects the in-memory store
	NATSURL     string // NATS server URL; empty selects the noop publisher

	// S3-compatible storage used to fetch s3:// link content.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	// JWT validation. Both empty means the API is unauthenticated.
	JWTIssuer   string
	JWTAudience string

	// Validation engine tuning.
	Workers      int           // parallel record validations per document
	RectPolicy   string        // "error" or "clamp"
	FetchTimeout time.Duration // per-URI content fetch timeout

	SchemaCacheDir string // on-disk schema cache; empty disables
}

// Default configuration values used when environment variables are not set
const (
	defaultPort         = "8080"
	defaultEnv          = "dev"
	defaultS3Region     = "us-east-1"
	defaultWorkers      = 8
	defaultRectPolicy   = "error"
	defaultFetchTimeout = 10 * time.Second
)

// Load reads environment variables and produces a Config suitable for
// wiring the service.
func Load() (Config, error) {
	cfg := Config{
		Env:            getEnv("SDL_ENV", defaultEnv),
		Port:           getEnv("SDL_PORT", defaultPort),
		DatabaseDSN:    os.Getenv("SDL_DB_DSN"),
		NATSURL:        os.Getenv("SDL_NATS_URL"),
		S3Endpoint:     os.Getenv("SDL_S3_ENDPOINT"),
		S3Region:       getEnv("SDL_S3_REGION", defaultS3Region),
		S3AccessKey:    os.Getenv("SDL_S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("SDL_S3_SECRET_KEY"),
		JWTIssuer:      os.Getenv("SDL_JWT_ISSUER"),
		JWTAudience:    os.Getenv("SDL_JWT_AUDIENCE"),
		Workers:        defaultWorkers,
		RectPolicy:     defaultRectPolicy,
		FetchTimeout:   defaultFetchTimeout,
		SchemaCacheDir: os.Getenv("SDL_SCHEMA_CACHE_DIR"),
	}

	if v, exists := os.LookupEnv("SDL_WORKERS"); exists && v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil || workers < 1 {
			return cfg, fmt.Errorf("SDL_WORKERS must be a positive integer, got %q", v)
		}
		cfg.Workers = workers
	}

	if v, exists := os.LookupEnv("SDL_RECT_POLICY"); exists && v != "" {
		policy := strings.ToLower(strings.TrimSpace(v))
		if policy != "error" && policy != "clamp" {
			return cfg, fmt.Errorf("SDL_RECT_POLICY must be \"error\" or \"clamp\", got %q", v)
		}
		cfg.RectPolicy = policy
	}

	if v, exists := os.LookupEnv("SDL_FETCH_TIMEOUT"); exists && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("SDL_FETCH_TIMEOUT must be a positive duration, got %q", v)
		}
		cfg.FetchTimeout = d
	}

	// JWT settings come as a pair or not at all.
	if (cfg.JWTIssuer == "") != (cfg.JWTAudience == "") {
		return cfg, fmt.Errorf("SDL_JWT_ISSUER and SDL_JWT_AUDIENCE must be set together")
	}

	return cfg, nil
}

// AuthEnabled reports whether JWT validation is configured.
func (c Config) AuthEnabled() bool {
	return c.JWTIssuer != ""
}

// getEnv retrieves an environment variable value, returning a fallback
// if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}
