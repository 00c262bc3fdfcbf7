// Package catalog provides the per-category attribute schema used to validate product filters.
//
// The catalog package follows an interface-based design to support several backends:
//   - Static catalogs: built in memory with NewStaticCatalog or the root package builder
//   - SQL catalogs: provided by the store packages, reading the attribute_definitions table
//   - Cached: a decorator that memoizes any Catalog per category
//
// All implementations are goroutine-safe and support context-based cancellation.
package catalog

import (
	"context"
	"errors"
)

// ErrCategoryNotFound may be returned by Definitions when a backend tracks categories
// explicitly. AttributeNames never returns it; unknown categories have no attributes.
var ErrCategoryNotFound = errors.New("category not found")

// Catalog resolves the attributes defined for a product category.
// All methods MUST be goroutine-safe.
type Catalog interface {
	// AttributeNames returns the set of attribute names allowed in filters for the category.
	// Returns an empty (non-nil) set if the category defines no attributes.
	// Callers MUST NOT modify the returned map.
	// MUST respect context cancellation and deadlines.
	AttributeNames(ctx context.Context, categoryID int64) (map[string]struct{}, error)

	// Definitions returns the full attribute definitions of the category,
	// ordered by DisplayOrder then Name.
	// Returns an empty slice (not nil) if the category defines no attributes.
	Definitions(ctx context.Context, categoryID int64) ([]AttributeDefinition, error)
}

// AttributeType is the declared value type of an attribute.
// Backends may store other names; they are passed through unchanged.
type AttributeType string

const (
	AttributeString  AttributeType = "string"
	AttributeNumber  AttributeType = "number"
	AttributeBoolean AttributeType = "boolean"
	AttributeEnum    AttributeType = "enum"
)

// AttributeDefinition describes one attribute of a product category.
type AttributeDefinition struct {
	CategoryID int64         `json:"categoryId" msgpack:"category_id"`
	Name       string        `json:"name" msgpack:"name"`
	Type       AttributeType `json:"type" msgpack:"type"`
	Required   bool          `json:"required" msgpack:"required"`

	// ValidationRules is an opaque rule document (usually JSON) owned by the product editor.
	ValidationRules string `json:"validationRules,omitempty" msgpack:"validation_rules,omitempty"`

	DisplayOrder int `json:"displayOrder" msgpack:"display_order"`
}

// NameSet builds the attribute name set of defs.
func NameSet(defs []AttributeDefinition) map[string]struct{} {
	names := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		names[d.Name] = struct{}{}
	}
	return names
}
