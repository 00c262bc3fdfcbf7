package search

import (
	"strconv"
	"time"
)

// Product is one search result.
type Product struct {
	ID          int64          `json:"id"`
	SKU         string         `json:"sku"`
	Name        string         `json:"name"`
	CategoryID  int64          `json:"categoryId"`
	Brand       string         `json:"brand"`
	Description string         `json:"description"`
	Price       Money          `json:"price"`
	Weight      float64        `json:"weight"`
	Attributes  map[string]any `json:"attributes"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Money is an amount in minor units (cents). It renders with two decimals.
type Money int64

// String formats m as a decimal amount, e.g. 129999 as "1299.99".
func (m Money) String() string {
	n := int64(m)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	cents := n % 100
	s := sign + strconv.FormatInt(n/100, 10) + "."
	if cents < 10 {
		s += "0"
	}
	return s + strconv.FormatInt(cents, 10)
}

// Float64 returns the amount in major units.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// MarshalJSON renders m as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// Page is one window of results.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Sort       Sort  `json:"sort"`
}

// TotalPages returns the number of pages of Limit items.
func (p *Page[T]) TotalPages() int64 {
	if p.Limit <= 0 {
		return 0
	}
	return (p.TotalCount + int64(p.Limit) - 1) / int64(p.Limit)
}

// HasNext reports whether pages follow this one.
func (p *Page[T]) HasNext() bool {
	return int64(p.Page) < p.TotalPages()
}
