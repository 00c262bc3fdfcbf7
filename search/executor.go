package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hugr-lab/productsearch-go/filter"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// SQL rendering options shared with the compiler. Nil means defaults.
	SQL *filter.Options

	// MaxLimit caps Pagination.Limit. Zero means no cap.
	MaxLimit int
}

// Executor runs compiled queries as a count query followed by a page query.
// It holds no per-call state and is safe for concurrent use.
type Executor struct {
	store    Store
	opts     *filter.Options
	maxLimit int
}

// NewExecutor creates an executor over store.
func NewExecutor(store Store, opts ExecutorOptions) *Executor {
	return &Executor{
		store:    store,
		opts:     opts.SQL.WithDefaults(),
		maxLimit: opts.MaxLimit,
	}
}

// Validate checks sort and pagination without touching the store.
func (e *Executor) Validate(sort Sort, page Pagination) error {
	if err := page.Validate(); err != nil {
		return err
	}
	if e.maxLimit > 0 && page.Limit > e.maxLimit {
		return fmt.Errorf("%w: limit %d exceeds maximum %d", ErrInvalidPagination, page.Limit, e.maxLimit)
	}
	return sort.Validate()
}

// Execute counts the rows matching q, then fetches the requested page.
//
// Both statements share q.Predicate and q.Params. The two statements are not
// run in one transaction, so concurrent writes may make TotalCount and Items
// disagree slightly. A count of zero, or a page past the end, returns an empty
// page without running the row query.
func (e *Executor) Execute(ctx context.Context, q *filter.Query, sort Sort, page Pagination) (*Page[Product], error) {
	if err := e.Validate(sort, page); err != nil {
		return nil, err
	}

	result := &Page[Product]{
		Items: []Product{},
		Page:  page.Page,
		Limit: page.Limit,
		Sort:  sort,
	}

	total, err := e.store.Count(ctx, e.CountSQL(q), q.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}
	result.TotalCount = total
	if total == 0 || page.Offset() >= total {
		return result, nil
	}

	query, err := e.PageSQL(q, sort, page)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.Query(ctx, query, q.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrStorage, err)
		}
		result.Items = append(result.Items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrStorage, err)
	}
	return result, nil
}

// CountSQL renders the count statement for q.
func (e *Executor) CountSQL(q *filter.Query) string {
	return "SELECT COUNT(1) FROM " + e.opts.From() + " WHERE " + q.Predicate
}

// PageSQL renders the row statement for q: the same predicate with ordering and
// the page window applied. Rows with equal sort keys are ordered by id.
func (e *Executor) PageSQL(q *filter.Query, sort Sort, page Pagination) (string, error) {
	if err := e.Validate(sort, page); err != nil {
		return "", err
	}
	dir, _ := sort.Direction.SQL()

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(e.selectList())
	b.WriteString(" FROM ")
	b.WriteString(e.opts.From())
	b.WriteString(" WHERE ")
	b.WriteString(q.Predicate)
	b.WriteString(" ORDER BY ")
	b.WriteString(e.sortExpr(sort))
	b.WriteString(" " + dir)
	if sort.Field != filter.ColumnID {
		b.WriteString(", " + e.opts.Column(filter.ColumnID) + " " + dir)
	}
	b.WriteString(" LIMIT " + strconv.Itoa(page.Limit))
	b.WriteString(" OFFSET " + strconv.FormatInt(page.Offset(), 10))
	return b.String(), nil
}

// sortExpr resolves a validated sort field to a column or an attribute value.
func (e *Executor) sortExpr(sort Sort) string {
	if IsColumnSort(sort.Field) {
		return e.opts.Column(sort.Field)
	}
	attrs := e.opts.Column(filter.ColumnAttributes)
	if sort.Numeric {
		return e.opts.Dialect.AttributeNumeric(attrs, sort.Field)
	}
	return e.opts.Dialect.AttributeText(attrs, sort.Field)
}

// IsColumnSort reports whether field sorts by a product column rather than an
// attribute value.
func IsColumnSort(field string) bool {
	return filter.IsColumn(field) && field != filter.ColumnAttributes
}

// selectList matches the scan order of scanProduct.
func (e *Executor) selectList() string {
	cols := []string{
		e.opts.Column(filter.ColumnID),
		e.opts.Column(filter.ColumnSKU),
		e.opts.Column(filter.ColumnName),
		e.opts.Column(filter.ColumnCategoryID),
		e.opts.Column(filter.ColumnBrand),
		e.opts.Column(filter.ColumnDescription),
		e.opts.Column(filter.ColumnPrice),
		e.opts.Column(filter.ColumnWeight),
		e.opts.Dialect.Text(e.opts.Column(filter.ColumnAttributes)),
		e.opts.Column(filter.ColumnCreatedAt),
	}
	return strings.Join(cols, ", ")
}

func scanProduct(rows Rows) (Product, error) {
	var (
		p           Product
		brand, desc *string
		weight      *float64
		attrs       *string
		createdAt   *time.Time
		price       int64
	)
	if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &brand, &desc, &price, &weight, &attrs, &createdAt); err != nil {
		return Product{}, err
	}
	p.Price = Money(price)
	if brand != nil {
		p.Brand = *brand
	}
	if desc != nil {
		p.Description = *desc
	}
	if weight != nil {
		p.Weight = *weight
	}
	if createdAt != nil {
		p.CreatedAt = *createdAt
	}
	p.Attributes = map[string]any{}
	if attrs != nil && *attrs != "" {
		if err := json.Unmarshal([]byte(*attrs), &p.Attributes); err != nil {
			return Product{}, fmt.Errorf("product %d attributes: %w", p.ID, err)
		}
	}
	return p, nil
}
