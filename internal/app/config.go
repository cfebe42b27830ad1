package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (FALCON_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	ImageBaseURL string `default:"" usage:"Base URL prepended to relative product image paths" flag:"image-base-url"`
	Catalog      CatalogConfig
	Storage      StorageConfig
	Promo        PromoConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CatalogConfig points at the remote read-only product catalog.
type CatalogConfig struct {
	BaseURL string        `usage:"Catalog API root, e.g. https://catalog.example.com/api/v1 (FALCON_CATALOG_BASE_URL)" flag:"catalog-base-url"`
	Timeout time.Duration `default:"10s" usage:"Per-request catalog timeout"`
}

// StorageConfig selects and configures the cart snapshot store.
type StorageConfig struct {
	Backend     string `default:"file" usage:"Snapshot store backend: file, memory, postgres, redis"`
	Slot        string `default:"falcon_cart" usage:"Snapshot slot name"`
	Path        string `default:"data/cart.json" usage:"Snapshot file path (file backend)"`
	DatabaseURL string `usage:"PostgreSQL connection URL (postgres backend; FALCON_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisAddr   string `usage:"Redis address or URL (redis backend)" flag:"redis-addr"`
}

// PromoConfig configures the optional bulk promo-code set.
type PromoConfig struct {
	CodesFile string `default:"" usage:"Path to a newline-separated promo code list (.gz supported)" flag:"promo-codes-file"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "FALCON",
		Files:     []string{"config.yaml", "/etc/falcon/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Catalog.BaseURL == "" {
		return nil, errors.New("catalog base URL is required: set FALCON_CATALOG_BASE_URL")
	}
	switch cfg.Storage.Backend {
	case "file", "memory":
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return nil, errors.New("postgres backend requires FALCON_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case "redis":
		if cfg.Storage.RedisAddr == "" {
			return nil, errors.New("redis backend requires FALCON_STORAGE_REDIS_ADDR")
		}
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's FALCON_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
