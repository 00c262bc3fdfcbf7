package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/hugr-lab/productsearch-go/filter"
)

// Defaults applied to requests that omit sort or pagination.
const (
	DefaultSortField = filter.ColumnCreatedAt
	DefaultPage      = 1
	DefaultLimit     = 20
)

// Direction is the sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// UnmarshalText accepts any letter case.
func (d *Direction) UnmarshalText(text []byte) error {
	*d = Direction(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// SQL returns the ORDER BY keyword for d.
func (d Direction) SQL() (string, error) {
	switch d {
	case Ascending:
		return "ASC", nil
	case Descending:
		return "DESC", nil
	default:
		return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, string(d))
	}
}

// Sort orders search results. Field is a product column (price, created_at, ...)
// or an attribute name; either way it must be a plain identifier.
//
// Numeric orders an attribute field by its numeric value instead of its text.
// It is resolved from the category definitions by Service.Prepare and never
// travels on the wire.
type Sort struct {
	Field     string    `json:"field" msgpack:"field"`
	Direction Direction `json:"order" msgpack:"order"`
	Numeric   bool      `json:"-" msgpack:"-"`
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: DefaultSortField, Direction: Descending}

// Validate checks the field against the identifier allow-list and the direction.
func (s Sort) Validate() error {
	if !filter.IsIdentifier(s.Field) {
		return fmt.Errorf("%w: field %q is not a plain identifier", ErrInvalidSort, s.Field)
	}
	_, err := s.Direction.SQL()
	return err
}

func (s Sort) String() string {
	return s.Field + " " + string(s.Direction)
}

// Pagination selects a page window. Page is 1-based.
type Pagination struct {
	Page  int `json:"page" msgpack:"page"`
	Limit int `json:"limit" msgpack:"limit"`
}

// DefaultPagination is the first page of 20.
var DefaultPagination = Pagination{Page: DefaultPage, Limit: DefaultLimit}

// Offset returns the number of rows skipped before the page. An offset that
// does not fit in int64 saturates at math.MaxInt64, which lies past the end
// of any result.
func (p Pagination) Offset() int64 {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	pages, limit := int64(p.Page-1), int64(p.Limit)
	if pages > math.MaxInt64/limit {
		return math.MaxInt64
	}
	return pages * limit
}

// Validate rejects non-positive page or limit.
func (p Pagination) Validate() error {
	if p.Page <= 0 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPagination, p.Page)
	}
	if p.Limit <= 0 {
		return fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidPagination, p.Limit)
	}
	return nil
}

// Request is a filtered product search.
type Request struct {
	CategoryID int64                       `json:"categoryId" msgpack:"category_id"`
	Brand      *string                     `json:"brand,omitempty" msgpack:"brand,omitempty"`
	Price      *filter.PriceRange          `json:"price,omitempty" msgpack:"price,omitempty"`
	Filters    map[string]filter.Condition `json:"filters,omitempty" msgpack:"filters,omitempty"`
	Sort       *Sort                       `json:"sort,omitempty" msgpack:"sort,omitempty"`
	Pagination *Pagination                 `json:"pagination,omitempty" msgpack:"pagination,omitempty"`
}

// WithDefaults returns a copy of r with sort, pagination and filters filled in.
func (r Request) WithDefaults() Request {
	if r.Sort == nil {
		s := DefaultSort
		r.Sort = &s
	}
	if r.Pagination == nil {
		p := DefaultPagination
		r.Pagination = &p
	}
	if r.Filters == nil {
		r.Filters = map[string]filter.Condition{}
	}
	return r
}

// Criteria returns the compiler input of r.
func (r Request) Criteria() filter.Criteria {
	return filter.Criteria{
		CategoryID: r.CategoryID,
		Brand:      r.Brand,
		Price:      r.Price,
		Filters:    r.Filters,
	}
}
