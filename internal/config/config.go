package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` specify the environment variable name.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	Auth       AuthConfig
	Display    DisplayConfig
	Search     SearchConfig
	// FixturePath serves a YAML catalog snapshot instead of Postgres when set.
	FixturePath string `envconfig:"CATALOG_FIXTURE"`
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	CORSOrigins  []string      `envconfig:"HTTP_CORS_ORIGINS" default:"*"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
	// Reflection is handy with grpcurl; keep it off in production.
	Reflection bool `envconfig:"GRPC_SERVER_REFLECTION" default:"true"`
}

// PostgresConfig holds PostgreSQL database connection details. Required only
// when no fixture is configured, see Validate.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

type AuthConfig struct {
	JWTSecret  string        `envconfig:"JWT_SECRET"` // Required by serve and token
	JWTIssuer  string        `envconfig:"JWT_ISSUER" default:"product-meta-viewer"`
	Capability string        `envconfig:"AUTH_CAPABILITY" default:"manage_options"`
	TokenTTL   time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"12h"`
}

// DisplayConfig mirrors the store settings that shape rendered values.
type DisplayConfig struct {
	AdminURL       string `envconfig:"ADMIN_URL" default:"http://localhost:8080/wp-admin"`
	PageURL        string `envconfig:"PAGE_URL" default:"/admin/product-meta-viewer"`
	CurrencyCode   string `envconfig:"CURRENCY_CODE" default:"USD"`
	CurrencySymbol string `envconfig:"CURRENCY_SYMBOL" default:"$"`
	CurrencyLocale string `envconfig:"CURRENCY_LOCALE" default:"en-US"`
	SymbolAfter    bool   `envconfig:"CURRENCY_SYMBOL_AFTER" default:"false"`
	WeightUnit     string `envconfig:"WEIGHT_UNIT" default:"kg"`
	DimensionUnit  string `envconfig:"DIMENSION_UNIT" default:"cm"`
	DateLayout     string `envconfig:"DATE_LAYOUT" default:"2006-01-02 15:04:05"`
}

type SearchConfig struct {
	Limit     int     `envconfig:"SEARCH_LIMIT" default:"20"`
	RateLimit float64 `envconfig:"SEARCH_RATE_LIMIT" default:"10"` // Requests per second per client
	RateBurst int     `envconfig:"SEARCH_RATE_BURST" default:"20"`
	BatchSize int     `envconfig:"SEARCH_BATCH_SIZE" default:"500"` // Products read per catalog round trip
}

// Validate checks constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	switch c.AppEnv {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid APP_ENV: %s", c.AppEnv)
	}
	if c.FixturePath == "" {
		var missing []string
		for name, v := range map[string]string{
			"POSTGRES_HOST":     c.Postgres.Host,
			"POSTGRES_USER":     c.Postgres.User,
			"POSTGRES_PASSWORD": c.Postgres.Password,
			"POSTGRES_DBNAME":   c.Postgres.DBName,
		} {
			if v == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("required key(s) %s missing value (or set CATALOG_FIXTURE)", strings.Join(missing, ", "))
		}
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("invalid SEARCH_LIMIT: %d", c.Search.Limit)
	}
	return nil
}

var (
	cfg    Config
	loaded bool
)

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	log.Debug().Msg("Loading service configuration...")
	var next Config
	if err := envconfig.Process("", &next); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	cfg, loaded = next, true

	log.Info().Str("app_env", cfg.AppEnv).Bool("fixture", cfg.FixturePath != "").Msg("Configuration loaded")
	return &cfg, nil
}

// Get returns the loaded configuration.
// Exits if Load() has not been called successfully.
func Get() *Config {
	if !loaded {
		log.Fatal().Msg("Configuration has not been loaded. Call config.Load() first.")
	}
	return &cfg
}
