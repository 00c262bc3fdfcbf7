// Package pgstore runs product searches against PostgreSQL.
//
// The attributes column is JSONB; predicates use the filter.Postgres dialect
// and bind values through pgx.NamedArgs (@name placeholders).
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/filter"
	"github.com/hugr-lab/productsearch-go/search"
)

// Tables creates the product and attribute tables when they are missing.
var Tables = []string{
	`CREATE TABLE IF NOT EXISTS attribute_definitions (
		id SERIAL PRIMARY KEY,
		category_id BIGINT NOT NULL,
		name VARCHAR(100) NOT NULL,
		type VARCHAR(30) NOT NULL,
		is_required BOOLEAN NOT NULL DEFAULT false,
		validation_rules TEXT,
		display_order INTEGER NOT NULL DEFAULT 0,
		UNIQUE (category_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		sku VARCHAR(50) NOT NULL,
		name VARCHAR(100) NOT NULL,
		category_id BIGINT NOT NULL,
		brand VARCHAR(255) NOT NULL,
		price BIGINT NOT NULL,
		weight NUMERIC NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		attributes JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category_id)`,
	`CREATE INDEX IF NOT EXISTS products_attributes_idx ON products USING GIN (attributes)`,
}

// Store is a search.Store over a pgx connection pool. It is safe for concurrent use.
type Store struct {
	pool  *pgxpool.Pool
	owned bool
	opts  *filter.Options
}

// Connect opens a pool for dsn and pings it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: failed to parse config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgstore: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: failed to ping database: %w", err)
	}

	s := New(pool)
	s.owned = true
	return s, nil
}

// New wraps an existing pool. Close does not close pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		opts: (&filter.Options{Dialect: filter.Postgres}).WithDefaults(),
	}
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// SQLOptions returns the rendering options matching this store.
func (s *Store) SQLOptions() *filter.Options {
	return s.opts
}

// Close closes the pool if the store opened it.
func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

// CreateTables runs Tables.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, stmt := range Tables {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgstore: create tables: %w", err)
		}
	}
	return nil
}

// Count implements search.Store.
func (s *Store) Count(ctx context.Context, query string, params filter.Params) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, query, NamedArgs(params)).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Query implements search.Store.
func (s *Store) Query(ctx context.Context, query string, params filter.Params) (search.Rows, error) {
	rows, err := s.pool.Query(ctx, query, NamedArgs(params))
	if err != nil {
		return nil, classify(err)
	}
	return pgRows{rows}, nil
}

// classify marks connection failures and timeouts with search.ErrUnavailable.
func classify(err error) error {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", search.ErrUnavailable, err)
	}
	return err
}

// Catalog returns an attribute catalog reading attribute_definitions.
func (s *Store) Catalog() *Catalog {
	return &Catalog{pool: s.pool}
}

// NamedArgs converts compiled parameters to pgx named arguments.
func NamedArgs(params filter.Params) pgx.NamedArgs {
	return pgx.NamedArgs(params.Map())
}

// pgRows adapts pgx.Rows, whose Close has no result, to search.Rows.
type pgRows struct {
	pgx.Rows
}

func (r pgRows) Close() error {
	r.Rows.Close()
	return r.Rows.Err()
}

// Catalog is a catalog.Catalog over the attribute_definitions table.
type Catalog struct {
	pool *pgxpool.Pool
}

const definitionsQuery = `SELECT category_id, name, type, is_required, validation_rules, display_order
FROM attribute_definitions
WHERE category_id = @category_id
ORDER BY display_order, name`

// AttributeNames implements catalog.Catalog.
func (c *Catalog) AttributeNames(ctx context.Context, categoryID int64) (map[string]struct{}, error) {
	defs, err := c.Definitions(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return catalog.NameSet(defs), nil
}

// Definitions implements catalog.Catalog.
func (c *Catalog) Definitions(ctx context.Context, categoryID int64) ([]catalog.AttributeDefinition, error) {
	rows, err := c.pool.Query(ctx, definitionsQuery, pgx.NamedArgs{"category_id": categoryID})
	if err != nil {
		return nil, fmt.Errorf("pgstore: attribute definitions of category %d: %w", categoryID, err)
	}
	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.AttributeDefinition, error) {
		var (
			d     catalog.AttributeDefinition
			typ   string
			rules *string
		)
		if err := row.Scan(&d.CategoryID, &d.Name, &typ, &d.Required, &rules, &d.DisplayOrder); err != nil {
			return d, err
		}
		d.Type = catalog.AttributeType(typ)
		if rules != nil {
			d.ValidationRules = *rules
		}
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: attribute definitions of category %d: %w", categoryID, err)
	}
	if defs == nil {
		defs = []catalog.AttributeDefinition{}
	}
	return defs, nil
}
