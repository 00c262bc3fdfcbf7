package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/filter"
)

type countingCatalog struct {
	catalog.Catalog
	calls int
	err   error
}

func (c *countingCatalog) AttributeNames(ctx context.Context, categoryID int64) (map[string]struct{}, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.Catalog.AttributeNames(ctx, categoryID)
}

func laptopCatalog() *countingCatalog {
	return &countingCatalog{Catalog: catalog.NewStaticCatalog(
		catalog.AttributeDefinition{CategoryID: 2, Name: "RAM", Type: catalog.AttributeNumber},
		catalog.AttributeDefinition{CategoryID: 2, Name: "processor", Type: catalog.AttributeString},
		catalog.AttributeDefinition{CategoryID: 2, Name: "screen_size", Type: catalog.AttributeNumber},
		catalog.AttributeDefinition{CategoryID: 2, Name: "storage_type", Type: catalog.AttributeEnum},
	)}
}

func newTestService(t *testing.T, cat catalog.Catalog, store Store, m *Metrics) (*Service, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	svc, err := NewService(Config{
		Catalog: cat,
		Store:   store,
		Logger:  slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Metrics: m,
	})
	require.NoError(t, err)
	return svc, &logs
}

func counterValue(t *testing.T, m *Metrics, outcome string) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.SearchesTotal.WithLabelValues(outcome).Write(&pb))
	return pb.GetCounter().GetValue()
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Config{Store: &fakeStore{}})
	assert.Error(t, err)
	_, err = NewService(Config{Catalog: laptopCatalog()})
	assert.Error(t, err)
}

func TestSearchLaptops(t *testing.T) {
	cat := laptopCatalog()
	store := &fakeStore{total: 2, products: sampleProducts()}
	m := NewMetrics(prometheus.NewRegistry())
	svc, logs := newTestService(t, cat, store, m)

	var req Request
	err := json.Unmarshal([]byte(`{
		"categoryId": 2,
		"filters": {
			"RAM": {"operator": "gte", "value": 16},
			"processor": {"operator": "contains", "value": "intel"},
			"screen_size": {"operator": "between", "fromValue": 14.0, "toValue": 15.6},
			"storage_type": {"operator": "in", "values": ["SSD"]}
		},
		"sort": {"field": "price", "order": "ASC"},
		"pagination": {"page": 1, "limit": 20}
	}`), &req)
	require.NoError(t, err)

	page, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, Sort{Field: "price", Direction: Ascending}, page.Sort)

	require.Len(t, store.params, 2)
	assert.Len(t, store.params[0], 6, "category id plus five bound values")
	require.Len(t, store.queries, 1)
	assert.Contains(t, store.queries[0], "ORDER BY p.price ASC")

	assert.Equal(t, 1.0, counterValue(t, m, OutcomeOK))
	assert.Contains(t, logs.String(), "Product search")
}

func TestSearchDefaults(t *testing.T) {
	store := &fakeStore{total: 1, products: sampleProducts()[:1]}
	svc, _ := newTestService(t, laptopCatalog(), store, nil)

	page, err := svc.Search(context.Background(), Request{CategoryID: 2})
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, page.Sort)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	require.Len(t, store.queries, 1)
	assert.Contains(t, store.queries[0], "ORDER BY p.created_at DESC, p.id DESC LIMIT 20 OFFSET 0")
}

func TestSearchUnknownAttribute(t *testing.T) {
	store := &fakeStore{total: 10}
	m := NewMetrics(prometheus.NewRegistry())
	svc, _ := newTestService(t, laptopCatalog(), store, m)

	_, err := svc.Search(context.Background(), Request{
		CategoryID: 2,
		Filters: map[string]filter.Condition{
			"RAM":       {Operator: filter.OperatorGreaterOrEqual, Value: 16},
			"megapixel": {Operator: filter.OperatorGreaterThan, Value: 12},
		},
	})
	require.ErrorIs(t, err, filter.ErrUnknownAttribute)
	assert.Zero(t, store.calls(), "no query runs for an unknown attribute")
	assert.Equal(t, 1.0, counterValue(t, m, OutcomeInvalid))
}

func TestSearchIncompleteBetween(t *testing.T) {
	store := &fakeStore{total: 10}
	svc, _ := newTestService(t, laptopCatalog(), store, nil)

	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{
		"categoryId": 2,
		"filters": {"screen_size": {"operator": "between", "fromValue": null, "toValue": 15.6}}
	}`), &req))

	_, err := svc.Search(context.Background(), req)
	require.ErrorIs(t, err, filter.ErrInvalidFilter)
	assert.Zero(t, store.calls())
}

func TestSearchInvalidPaginationBeforeIO(t *testing.T) {
	cat := laptopCatalog()
	store := &fakeStore{total: 10}
	svc, _ := newTestService(t, cat, store, nil)

	_, err := svc.Search(context.Background(), Request{
		CategoryID: 2,
		Filters:    map[string]filter.Condition{"RAM": {Operator: filter.OperatorEqual, Value: 8}},
		Pagination: &Pagination{Page: 0, Limit: 20},
	})
	require.ErrorIs(t, err, ErrInvalidPagination)
	assert.Zero(t, store.calls())
	assert.Zero(t, cat.calls, "pagination is checked before the attribute lookup")
}

func TestSearchCatalogFailure(t *testing.T) {
	cat := laptopCatalog()
	cat.err = errors.New("catalog unavailable")
	m := NewMetrics(prometheus.NewRegistry())
	svc, logs := newTestService(t, cat, &fakeStore{}, m)

	_, err := svc.Search(context.Background(), Request{
		CategoryID: 2,
		Filters:    map[string]filter.Condition{"RAM": {Operator: filter.OperatorEqual, Value: 8}},
	})
	require.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "catalog unavailable")
	assert.Equal(t, 1.0, counterValue(t, m, OutcomeStorageError))
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestPrepare(t *testing.T) {
	svc, _ := newTestService(t, laptopCatalog(), &fakeStore{}, nil)

	plan, err := svc.Prepare(context.Background(), Request{
		CategoryID: 2,
		Filters:    map[string]filter.Condition{"storage_type": {Operator: filter.OperatorIn, Values: []any{"SSD", "NVMe"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(1) FROM products p WHERE "+plan.Query.Predicate, plan.CountSQL)
	assert.Contains(t, plan.PageSQL, "IN ($in_storage_type_0, $in_storage_type_1)")
	assert.Equal(t, DefaultSort, *plan.Request.Sort)
}

func TestPrepareAttributeSort(t *testing.T) {
	svc, _ := newTestService(t, laptopCatalog(), &fakeStore{}, nil)

	tests := []struct {
		field   string
		numeric bool
		orderBy string
	}{
		{"RAM", true, "ORDER BY TRY_CAST(p.attributes ->> '$.RAM' AS DOUBLE) ASC"},
		{"screen_size", true, "ORDER BY TRY_CAST(p.attributes ->> '$.screen_size' AS DOUBLE) ASC"},
		{"processor", false, "ORDER BY (p.attributes ->> '$.processor') ASC"},
		{"color", false, "ORDER BY (p.attributes ->> '$.color') ASC"},
		{"price", false, "ORDER BY p.price ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			sort := Sort{Field: tt.field, Direction: Ascending}
			plan, err := svc.Prepare(context.Background(), Request{CategoryID: 2, Sort: &sort})
			require.NoError(t, err)
			assert.Equal(t, tt.numeric, plan.Request.Sort.Numeric)
			assert.Contains(t, plan.PageSQL, tt.orderBy)
			assert.False(t, sort.Numeric, "the caller's sort is not modified")
		})
	}
}

func TestPrepareAttributeSortCatalogFailure(t *testing.T) {
	cat := &failingDefinitions{Catalog: laptopCatalog(), err: errors.New("catalog unavailable")}
	svc, _ := newTestService(t, cat, &fakeStore{}, nil)

	_, err := svc.Prepare(context.Background(), Request{CategoryID: 2, Sort: &Sort{Field: "RAM", Direction: Ascending}})
	require.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "catalog unavailable")
}

type failingDefinitions struct {
	catalog.Catalog
	err error
}

func (c *failingDefinitions) Definitions(ctx context.Context, categoryID int64) ([]catalog.AttributeDefinition, error) {
	return nil, c.err
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeInvalid, Outcome(ErrInvalidSort))
	assert.Equal(t, OutcomeInvalid, Outcome(&filter.Error{Kind: filter.ErrUnknownOperator}))
	assert.Equal(t, OutcomeStorageError, Outcome(errors.Join(ErrStorage, errors.New("x"))))
	assert.Equal(t, OutcomeError, Outcome(context.Canceled))
}
