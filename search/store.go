package search

import (
	"context"

	"github.com/hugr-lab/productsearch-go/filter"
)

// Store executes parameterized queries. The store packages provide
// implementations for DuckDB (store/duckstore) and Postgres (store/pgstore).
// Implementations MUST be goroutine-safe and bind params by name.
type Store interface {
	// Count runs a query returning a single integer.
	Count(ctx context.Context, query string, params filter.Params) (int64, error)

	// Query runs a row query. The caller closes the returned Rows.
	Query(ctx context.Context, query string, params filter.Params) (Rows, error)
}

// Rows iterates query results. *sql.Rows satisfies it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
