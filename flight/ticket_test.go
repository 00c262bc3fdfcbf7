package flight

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/productsearch-go/filter"
	"github.com/hugr-lab/productsearch-go/internal/recovery"
	"github.com/hugr-lab/productsearch-go/search"
)

func TestEncodeDecodeTicket(t *testing.T) {
	brand := "Lenovo"
	minPrice := 500.0

	tests := []struct {
		name string
		req  search.Request
	}{
		{
			name: "category only",
			req:  search.Request{CategoryID: 2},
		},
		{
			name: "filters sort and pagination",
			req: search.Request{
				CategoryID: 2,
				Brand:      &brand,
				Price:      &filter.PriceRange{Min: &minPrice},
				Filters: map[string]filter.Condition{
					"processor":   {Operator: filter.OperatorContains, Value: "Intel"},
					"screen_size": {Operator: filter.OperatorBetween, From: 14.0, To: 15.6},
				},
				Sort:       &search.Sort{Field: "price", Direction: search.Ascending},
				Pagination: &search.Pagination{Page: 3, Limit: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeTicket(tt.req)
			if err != nil {
				t.Fatalf("EncodeTicket() error = %v", err)
			}

			decoded, err := DecodeTicket(encoded)
			if err != nil {
				t.Fatalf("DecodeTicket() error = %v", err)
			}

			if decoded.CategoryID != tt.req.CategoryID {
				t.Errorf("CategoryID = %v, want %v", decoded.CategoryID, tt.req.CategoryID)
			}
			if len(decoded.Filters) != len(tt.req.Filters) {
				t.Errorf("Filters = %v, want %v", decoded.Filters, tt.req.Filters)
			}
			for attr, cond := range tt.req.Filters {
				if decoded.Filters[attr].Operator != cond.Operator {
					t.Errorf("Filters[%s].Operator = %v, want %v", attr, decoded.Filters[attr].Operator, cond.Operator)
				}
			}
			if (decoded.Sort == nil) != (tt.req.Sort == nil) {
				t.Fatalf("Sort = %v, want %v", decoded.Sort, tt.req.Sort)
			}
			if tt.req.Sort != nil && *decoded.Sort != *tt.req.Sort {
				t.Errorf("Sort = %v, want %v", *decoded.Sort, *tt.req.Sort)
			}
			if tt.req.Pagination != nil && *decoded.Pagination != *tt.req.Pagination {
				t.Errorf("Pagination = %v, want %v", *decoded.Pagination, *tt.req.Pagination)
			}
			if tt.req.Brand != nil && (decoded.Brand == nil || *decoded.Brand != brand) {
				t.Errorf("Brand = %v, want %v", decoded.Brand, brand)
			}
			if tt.req.Price != nil && (decoded.Price == nil || decoded.Price.Min == nil || *decoded.Price.Min != minPrice) {
				t.Errorf("Price = %v, want min %v", decoded.Price, minPrice)
			}
		})
	}
}

func TestDecodeTicketErrors(t *testing.T) {
	noCategory, err := EncodeTicket(search.Request{})
	if err != nil {
		t.Fatalf("EncodeTicket() error = %v", err)
	}

	tests := []struct {
		name   string
		ticket []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xc1, 0x00}},
		{"no category", noCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTicket(tt.ticket); err == nil {
				t.Error("DecodeTicket() expected error")
			}
		})
	}
}

func TestBuildRecord(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	page := &search.Page[search.Product]{
		Items: []search.Product{
			{
				ID: 1, SKU: "LT-1", Name: "ThinkPad X1", CategoryID: 2, Brand: "Lenovo",
				Price: 189999, Weight: 1.1,
				Attributes: map[string]any{"RAM": 16},
				CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			{ID: 2, SKU: "LT-2", Name: "ZenBook 14", CategoryID: 2, Price: 99900},
		},
		TotalCount: 12,
		Page:       2,
		Limit:      2,
		Sort:       search.Sort{Field: "price", Direction: search.Descending},
	}

	schema := PageSchema(page)
	rec, err := BuildRecord(alloc, schema, page.Items)
	if err != nil {
		t.Fatalf("BuildRecord() error = %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", rec.NumRows())
	}
	if got := rec.Column(6).(*array.Decimal128).Value(0).ToString(2); got != "1899.99" {
		t.Errorf("price = %s, want 1899.99", got)
	}
	if got := rec.Column(8).(*array.String).Value(0); got != `{"RAM":16}` {
		t.Errorf("attributes = %s", got)
	}
	if !rec.Column(8).IsNull(1) {
		t.Error("expected null attributes for second row")
	}
	if !rec.Column(9).IsNull(1) {
		t.Error("expected null created_at for second row")
	}

	want := map[string]string{
		MetaTotalCount:    "12",
		MetaPage:          "2",
		MetaLimit:         "2",
		MetaSortField:     "price",
		MetaSortDirection: "desc",
	}
	md := schema.Metadata()
	for key, value := range want {
		idx := md.FindKey(key)
		if idx < 0 {
			t.Errorf("metadata %s missing", key)
			continue
		}
		if md.Values()[idx] != value {
			t.Errorf("metadata %s = %s, want %s", key, md.Values()[idx], value)
		}
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"unknown attribute", &filter.Error{Attribute: "color", Kind: filter.ErrUnknownAttribute}, codes.InvalidArgument},
		{"unknown operator", &filter.Error{Attribute: "RAM", Kind: filter.ErrUnknownOperator}, codes.InvalidArgument},
		{"invalid pagination", fmt.Errorf("%w: page must be >= 1", search.ErrInvalidPagination), codes.InvalidArgument},
		{"invalid sort", search.ErrInvalidSort, codes.InvalidArgument},
		{"storage", fmt.Errorf("%w: count: %w", search.ErrStorage, errors.New("io")), codes.Internal},
		{"unavailable", fmt.Errorf("%w: count: %w", search.ErrStorage, search.ErrUnavailable), codes.Unavailable},
		{"panic", fmt.Errorf("%w: DoGet: boom", recovery.ErrPanic), codes.Internal},
		{"deadline", fmt.Errorf("%w: count: %w", search.ErrStorage, context.DeadlineExceeded), codes.DeadlineExceeded},
		{"status passthrough", status.Error(codes.ResourceExhausted, "slow down"), codes.ResourceExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(statusFromError(tt.err)); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}
