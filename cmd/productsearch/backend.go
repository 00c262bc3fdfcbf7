package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/filter"
	"github.com/hugr-lab/productsearch-go/search"
	"github.com/hugr-lab/productsearch-go/store/duckstore"
	"github.com/hugr-lab/productsearch-go/store/pgstore"
)

// backend is an opened product store with its attribute catalog.
type backend struct {
	store   search.Store
	catalog *catalog.Cached
	sql     *filter.Options
	close   func() error
}

// Close releases the underlying database.
func (b *backend) Close() error {
	return b.close()
}

// Service returns a search service over b.
func (b *backend) Service(cfg Config, logger *slog.Logger, metrics *search.Metrics) (*search.Service, error) {
	return search.NewService(search.Config{
		Catalog:  b.catalog,
		Store:    b.store,
		SQL:      b.sql,
		MaxLimit: cfg.MaxLimit,
		Logger:   logger,
		Metrics:  metrics,
	})
}

// openBackend connects to the configured store, optionally creates its
// tables and wraps its catalog in a cache.
func openBackend(ctx context.Context, cfg Config, logger *slog.Logger) (*backend, error) {
	cacheOpts := catalog.CacheOptions{TTL: cfg.CatalogTTL, LoadTimeout: cfg.CatalogTimeout}

	switch cfg.Backend {
	case backendDuckDB:
		st, err := duckstore.Open(cfg.DuckDB.Path)
		if err != nil {
			return nil, err
		}
		if cfg.CreateTables {
			if err := st.CreateTables(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		logger.Info("Opened DuckDB store", "path", cfg.DuckDB.Path, "in_memory", cfg.DuckDB.Path == "")
		return &backend{
			store:   st,
			catalog: catalog.NewCached(st.Catalog(), cacheOpts),
			sql:     st.SQLOptions(),
			close:   st.Close,
		}, nil

	case backendPostgres:
		st, err := pgstore.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.CreateTables {
			if err := st.CreateTables(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		logger.Info("Connected to PostgreSQL store")
		return &backend{
			store:   st,
			catalog: catalog.NewCached(st.Catalog(), cacheOpts),
			sql:     st.SQLOptions(),
			close:   st.Close,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", errConfig, cfg.Backend)
}
