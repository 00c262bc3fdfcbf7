// Package duckstore runs product searches against DuckDB.
//
// Products are stored in a table with relational columns and a JSON attributes
// column; attribute definitions live in attribute_definitions. Queries use
// DuckDB named parameters ($name) bound with sql.Named.
//
//	st, err := duckstore.Open("products.duckdb")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//	svc, err := search.NewService(search.Config{
//	    Catalog: catalog.NewCached(st.Catalog(), catalog.CacheOptions{TTL: time.Minute}),
//	    Store:   st,
//	    SQL:     st.SQLOptions(),
//	})
package duckstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/filter"
	"github.com/hugr-lab/productsearch-go/search"
)

// Tables creates the product and attribute tables when they are missing.
// Columns follow the names in the filter package.
var Tables = []string{
	`CREATE TABLE IF NOT EXISTS attribute_definitions (
		category_id BIGINT NOT NULL,
		name VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		is_required BOOLEAN NOT NULL DEFAULT false,
		validation_rules VARCHAR,
		display_order INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (category_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY,
		sku VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		category_id BIGINT NOT NULL,
		brand VARCHAR NOT NULL,
		price BIGINT NOT NULL,
		weight DOUBLE NOT NULL DEFAULT 0,
		description VARCHAR NOT NULL DEFAULT '',
		attributes JSON NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
		updated_at TIMESTAMP
	)`,
}

// Store is a search.Store over a DuckDB database. It is safe for concurrent use.
type Store struct {
	db    *sql.DB
	owned bool
	opts  *filter.Options
}

// Open opens the DuckDB database at path. An empty path opens an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckstore: open %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckstore: ping %q: %w", path, err)
	}
	s := New(db)
	s.owned = true
	return s, nil
}

// New wraps an open DuckDB handle. Close does not close db.
func New(db *sql.DB) *Store {
	return &Store{
		db:   db,
		opts: (&filter.Options{Dialect: filter.DuckDB}).WithDefaults(),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SQLOptions returns the rendering options matching this store.
func (s *Store) SQLOptions() *filter.Options {
	return s.opts
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// CreateTables runs Tables.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, stmt := range Tables {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("duckstore: create tables: %w", err)
		}
	}
	return nil
}

// Count implements search.Store.
func (s *Store) Count(ctx context.Context, query string, params filter.Params) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args(params)...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Query implements search.Store.
func (s *Store) Query(ctx context.Context, query string, params filter.Params) (search.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args(params)...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Catalog returns an attribute catalog reading attribute_definitions.
// Wrap it in catalog.Cached to avoid a query per search.
func (s *Store) Catalog() *Catalog {
	return &Catalog{db: s.db}
}

func args(params filter.Params) []any {
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = sql.Named(p.Name, p.Value)
	}
	return out
}

// Catalog is a catalog.Catalog over the attribute_definitions table.
type Catalog struct {
	db *sql.DB
}

const definitionsQuery = `SELECT category_id, name, type, is_required, validation_rules, display_order
FROM attribute_definitions
WHERE category_id = $category_id
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
	rows, err := c.db.QueryContext(ctx, definitionsQuery, sql.Named("category_id", categoryID))
	if err != nil {
		return nil, fmt.Errorf("duckstore: attribute definitions of category %d: %w", categoryID, err)
	}
	defer rows.Close()

	defs := []catalog.AttributeDefinition{}
	for rows.Next() {
		var (
			d     catalog.AttributeDefinition
			typ   string
			rules sql.NullString
		)
		if err := rows.Scan(&d.CategoryID, &d.Name, &typ, &d.Required, &rules, &d.DisplayOrder); err != nil {
			return nil, fmt.Errorf("duckstore: scan attribute definition: %w", err)
		}
		d.Type = catalog.AttributeType(typ)
		d.ValidationRules = rules.String
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckstore: attribute definitions of category %d: %w", categoryID, err)
	}
	return defs, nil
}
