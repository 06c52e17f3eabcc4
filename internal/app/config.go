package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/bookstore-catalog/internal/domain/auth"
	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CATALOG_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWT         JWTConfig
	Stock       StockConfig
	Kafka       KafkaConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// JWTConfig controls bearer token verification for mutating routes.
type JWTConfig struct {
	Secret       string `usage:"HMAC secret for bearer tokens (CATALOG_JWT_SECRET or JWT_SECRET)"`
	RequiredRole string `default:"ADMIN" usage:"Role required for product mutations"`
	// StockRole overrides RequiredRole for the stock routes.
	StockRole string `usage:"Role required for stock mutations (defaults to RequiredRole)"`
}

// StockConfig controls stock adjustments.
type StockConfig struct {
	NegativePolicy string `default:"allow" usage:"What to do when stock would drop below zero: allow, reject or clamp"`
}

// KafkaConfig controls event publishing and the stock check responder.
// Both are disabled while Brokers is empty.
type KafkaConfig struct {
	Brokers         []string      `usage:"Kafka broker addresses"`
	ProductTopic    string        `default:"catalog.product.created" usage:"Topic for product created events"`
	StockCheckTopic string        `default:"catalog.stock.check" usage:"Topic with stock check requests (empty disables the responder)"`
	StockReplyTopic string        `default:"catalog.stock.reply" usage:"Topic for stock check replies"`
	GroupID         string        `default:"bookstore-catalog" usage:"Consumer group of the stock check responder"`
	PublishTimeout  time.Duration `default:"10s" usage:"Timeout for a single event publish"`
}

// Enabled reports whether any broker is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"http://localhost:3000" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags, YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/catalog/config.yaml"},
	})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "CATALOG"
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CATALOG_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if c.JWT.RequiredRole == "" {
		c.JWT.RequiredRole = auth.AdminRole
	}
	if c.JWT.StockRole == "" {
		c.JWT.StockRole = c.JWT.RequiredRole
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CATALOG_DATABASE_URL or DATABASE_URL")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required: set CATALOG_JWT_SECRET or JWT_SECRET")
	}
	if _, err := product.ParseStockPolicy(c.Stock.NegativePolicy); err != nil {
		return errors.Wrap(err, "stock")
	}
	if c.Kafka.Enabled() && c.Kafka.ProductTopic == "" {
		return errors.New("kafka product topic is required when brokers are set")
	}
	if c.Kafka.Enabled() && c.Kafka.StockCheckTopic != "" && c.Kafka.StockReplyTopic == "" {
		return errors.New("kafka stock reply topic is required when the stock check topic is set")
	}
	return nil
}
