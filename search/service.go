package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/filter"
)

// Config configures a Service.
type Config struct {
	// Catalog provides the attributes allowed per category.
	// REQUIRED: MUST NOT be nil.
	Catalog catalog.Catalog

	// Store runs the generated statements.
	// REQUIRED: MUST NOT be nil.
	Store Store

	// SQL selects the dialect and table layout. It must match Store.
	// OPTIONAL: DuckDB dialect over "products p" if nil.
	SQL *filter.Options

	// MaxLimit caps the page size.
	// OPTIONAL: no cap if 0.
	MaxLimit int

	// Logger for search logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// Metrics records search outcomes.
	// OPTIONAL: nothing is recorded if nil.
	Metrics *Metrics
}

// Service validates, compiles and executes product searches.
// It is safe for concurrent use.
type Service struct {
	catalog  catalog.Catalog
	compiler *filter.Compiler
	executor *Executor
	logger   *slog.Logger
	metrics  *Metrics
}

// NewService creates a search service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("search: catalog is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("search: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := cfg.SQL.WithDefaults()

	return &Service{
		catalog:  cfg.Catalog,
		compiler: filter.NewCompiler(cfg.Catalog, opts),
		executor: NewExecutor(cfg.Store, ExecutorOptions{SQL: opts, MaxLimit: cfg.MaxLimit}),
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Catalog returns the attribute catalog the service validates against.
func (s *Service) Catalog() catalog.Catalog {
	return s.catalog
}

// Plan is a validated, compiled request with its generated statements.
type Plan struct {
	Request  Request       `json:"request" msgpack:"request"`
	Query    *filter.Query `json:"query" msgpack:"query"`
	CountSQL string        `json:"countSql" msgpack:"count_sql"`
	PageSQL  string        `json:"pageSql" msgpack:"page_sql"`
}

// Prepare applies defaults, validates sort and pagination, and compiles the
// filters. It reads the attribute catalog but never the product store.
func (s *Service) Prepare(ctx context.Context, req Request) (*Plan, error) {
	req = req.WithDefaults()
	if err := s.executor.Validate(*req.Sort, *req.Pagination); err != nil {
		return nil, err
	}

	q, err := s.compiler.Compile(ctx, req.Criteria())
	if err != nil {
		if IsInvalidRequest(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	sort, err := s.resolveSort(ctx, req.CategoryID, *req.Sort)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	req.Sort = &sort

	pageSQL, err := s.executor.PageSQL(q, sort, *req.Pagination)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Request:  req,
		Query:    q,
		CountSQL: s.executor.CountSQL(q),
		PageSQL:  pageSQL,
	}, nil
}

// resolveSort marks a sort on a number attribute as numeric so that 8 orders
// before 16. Column sorts and attributes missing from the category are left
// as they are.
func (s *Service) resolveSort(ctx context.Context, categoryID int64, sort Sort) (Sort, error) {
	if IsColumnSort(sort.Field) {
		return sort, nil
	}
	defs, err := s.catalog.Definitions(ctx, categoryID)
	if err != nil {
		return sort, err
	}
	for _, def := range defs {
		if def.Name == sort.Field {
			sort.Numeric = def.Type == catalog.AttributeNumber
			break
		}
	}
	return sort, nil
}

// Search runs req and returns one page of products.
// Request errors (filter, sort, pagination) are returned before any store query runs.
func (s *Service) Search(ctx context.Context, req Request) (*Page[Product], error) {
	start := time.Now()

	plan, err := s.Prepare(ctx, req)
	if err != nil {
		s.metrics.observe(err, time.Since(start), 0)
		s.logFailure(req, err)
		return nil, err
	}

	page, err := s.executor.Execute(ctx, plan.Query, *plan.Request.Sort, *plan.Request.Pagination)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.observe(err, elapsed, 0)
		s.logFailure(req, err)
		return nil, err
	}
	s.metrics.observe(nil, elapsed, len(page.Items))

	s.logger.Debug("Product search",
		"category_id", req.CategoryID,
		"filters", len(req.Filters),
		"page", page.Page,
		"limit", page.Limit,
		"sort", page.Sort.String(),
		"total", page.TotalCount,
		"items", len(page.Items),
		"elapsed", elapsed,
	)
	return page, nil
}

func (s *Service) logFailure(req Request, err error) {
	if IsInvalidRequest(err) {
		s.logger.Debug("Rejected product search",
			"category_id", req.CategoryID,
			"error", err,
		)
		return
	}
	s.logger.Error("Product search failed",
		"category_id", req.CategoryID,
		"error", err,
	)
}
