package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	productsearch "github.com/hugr-lab/productsearch-go"
	"github.com/hugr-lab/productsearch-go/search"
)

// Configuration keys.
const (
	keyBackend         = "backend"
	keyDuckDBPath      = "duckdb.path"
	keyPostgresDSN     = "postgres.dsn"
	keyCreateTables    = "create_tables"
	keyAddress         = "address"
	keyMetricsAddress  = "metrics_address"
	keyLogLevel        = "log_level"
	keyMaxLimit        = "max_limit"
	keyCatalogTTL      = "catalog_ttl"
	keyCatalogTimeout  = "catalog_load_timeout"
	keyMaxMessageSize  = "max_message_size"
	keyShutdownTimeout = "shutdown_timeout"
	keyAuthTokens      = "auth.tokens"
	keyRateLimitRPS    = "rate_limit.requests_per_second"
	keyRateLimitBurst  = "rate_limit.burst"
	keyRateLimitIdle   = "rate_limit.idle_ttl"
)

const (
	backendDuckDB   = "duckdb"
	backendPostgres = "postgres"

	defaultBackend = backendDuckDB
)

var errConfig = errors.New("invalid configuration")

// Config is the command line configuration.
type Config struct {
	Backend         string          `mapstructure:"backend"`
	DuckDB          DuckDBConfig    `mapstructure:"duckdb"`
	Postgres        PostgresConfig  `mapstructure:"postgres"`
	CreateTables    bool            `mapstructure:"create_tables"`
	Address         string          `mapstructure:"address"`
	MetricsAddress  string          `mapstructure:"metrics_address"`
	LogLevel        string          `mapstructure:"log_level"`
	MaxLimit        int             `mapstructure:"max_limit"`
	CatalogTTL      time.Duration   `mapstructure:"catalog_ttl"`
	CatalogTimeout  time.Duration   `mapstructure:"catalog_load_timeout"`
	MaxMessageSize  int             `mapstructure:"max_message_size"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Auth            AuthConfig      `mapstructure:"auth"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// DuckDBConfig locates the DuckDB database. An empty path is in-memory.
type DuckDBConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds the PostgreSQL connection string.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// AuthConfig lists the accepted bearer tokens. No tokens disables authentication.
type AuthConfig struct {
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// TokenConfig maps one bearer token to the identity it authenticates.
type TokenConfig struct {
	Token    string `mapstructure:"token"`
	Identity string `mapstructure:"identity"`
}

// RateLimitConfig throttles calls per caller. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBackend, defaultBackend)
	v.SetDefault(keyDuckDBPath, "")
	v.SetDefault(keyPostgresDSN, "")
	v.SetDefault(keyCreateTables, false)
	v.SetDefault(keyAddress, ":50051")
	v.SetDefault(keyMetricsAddress, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyMaxLimit, 100)
	v.SetDefault(keyCatalogTTL, time.Minute)
	v.SetDefault(keyCatalogTimeout, 10*time.Second)
	v.SetDefault(keyMaxMessageSize, 0)
	v.SetDefault(keyShutdownTimeout, 10*time.Second)
	v.SetDefault(keyAuthTokens, []TokenConfig{})
	v.SetDefault(keyRateLimitRPS, 0.0)
	v.SetDefault(keyRateLimitBurst, 0)
	v.SetDefault(keyRateLimitIdle, 10*time.Minute)
}

// bindFlags binds each config key to the named flag of fs.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// loadConfig decodes and validates the configuration held by v.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the backend selection and numeric limits.
func (c Config) Validate() error {
	switch c.Backend {
	case backendDuckDB:
	case backendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is required for the postgres backend", errConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", errConfig, c.Backend)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.MaxLimit < 0 {
		return fmt.Errorf("%w: max_limit must not be negative, got %d", errConfig, c.MaxLimit)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: rate_limit.requests_per_second must not be negative", errConfig)
	}
	for i, t := range c.Auth.Tokens {
		if t.Token == "" || t.Identity == "" {
			return fmt.Errorf("%w: auth.tokens[%d] needs a token and an identity", errConfig, i)
		}
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level: %v", errConfig, err)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ServerConfig assembles the Flight server configuration over b.
func (c Config) ServerConfig(b *backend, logger *slog.Logger, metrics *search.Metrics) productsearch.ServerConfig {
	config := productsearch.ServerConfig{
		Catalog:        b.catalog,
		Store:          b.store,
		SQL:            b.sql,
		MaxLimit:       c.MaxLimit,
		Logger:         logger,
		Metrics:        metrics,
		MaxMessageSize: c.MaxMessageSize,
	}
	if len(c.Auth.Tokens) > 0 {
		tokens := make(map[string]string, len(c.Auth.Tokens))
		for _, t := range c.Auth.Tokens {
			tokens[t.Token] = t.Identity
		}
		config.Auth = productsearch.StaticTokens(tokens)
	}
	if c.RateLimit.RequestsPerSecond > 0 {
		config.RateLimit = &productsearch.RateLimitConfig{
			RequestsPerSecond: c.RateLimit.RequestsPerSecond,
			Burst:             c.RateLimit.Burst,
			IdleTTL:           c.RateLimit.IdleTTL,
		}
	}
	return config
}
