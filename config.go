package productsearch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/productsearch-go/auth"
	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/filter"
	"github.com/hugr-lab/productsearch-go/search"
)

// ServerConfig contains configuration for the product search Flight server.
type ServerConfig struct {
	// Catalog provides the attributes allowed per category.
	// REQUIRED: MUST NOT be nil. Wrap SQL catalogs in catalog.Cached.
	Catalog catalog.Catalog

	// Store runs the generated count and page statements.
	// REQUIRED: MUST NOT be nil.
	Store search.Store

	// SQL selects the dialect and table layout matching Store.
	// OPTIONAL: DuckDB dialect over "products p" if nil.
	SQL *filter.Options

	// MaxLimit caps the page size a client may request.
	// OPTIONAL: If 0, no cap.
	MaxLimit int

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth auth.Authenticator

	// RateLimit throttles calls per identity (or peer address without Auth).
	// OPTIONAL: If nil, no rate limiting.
	RateLimit *RateLimitConfig

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	Logger *slog.Logger

	// LogLevel sets the logging level of the default text logger.
	// OPTIONAL: If nil, uses Info level.
	LogLevel *slog.Level

	// Metrics records search outcomes and latency.
	// OPTIONAL: If nil, nothing is recorded. See search.NewMetrics.
	Metrics *search.Metrics

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int
}

// RateLimitConfig configures per-caller token buckets.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. MUST be > 0.
	RequestsPerSecond float64

	// Burst is the bucket size.
	// OPTIONAL: If <= 0, uses 1.
	Burst int

	// IdleTTL drops buckets of callers idle for longer.
	// OPTIONAL: If 0, buckets are kept.
	IdleTTL time.Duration
}

// Standard errors returned by productsearch package.
var (
	// ErrUnauthorized indicates authentication failed.
	// Return this from Authenticator.Authenticate() for invalid tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)
