package productsearch

import (
	"fmt"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/filter"
)

// AttributeDef defines one attribute of a category.
// Used with CategoryBuilder.Attribute().
type AttributeDef struct {
	// Name is the key of the attribute in the product document (e.g., "RAM").
	// REQUIRED: MUST be a plain identifier, unique within the category.
	Name string

	// Type is the declared value type.
	// OPTIONAL: catalog.AttributeString if empty.
	Type catalog.AttributeType

	// Required marks attributes every product of the category carries.
	Required bool

	// ValidationRules is an opaque rule document.
	// OPTIONAL: Empty string if no rules.
	ValidationRules string

	// DisplayOrder positions the attribute in listings.
	// OPTIONAL: If 0, the position in the builder (1-based) is used.
	DisplayOrder int
}

// CatalogBuilder builds static attribute catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	categories []*CategoryBuilder
	built      bool
}

// NewCatalogBuilder creates a new fluent catalog builder.
//
// Example:
//
//	cat, err := productsearch.NewCatalogBuilder().
//	    Category(2).
//	        Attribute(productsearch.AttributeDef{Name: "RAM", Type: catalog.AttributeNumber, Required: true}).
//	        Attribute(productsearch.AttributeDef{Name: "processor"}).
//	    Category(3).
//	        Attribute(productsearch.AttributeDef{Name: "megapixel", Type: catalog.AttributeNumber}).
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Category starts defining a new category.
func (cb *CatalogBuilder) Category(id int64) *CategoryBuilder {
	c := &CategoryBuilder{id: id, catalog: cb}
	cb.categories = append(cb.categories, c)
	return c
}

// Build finalizes the catalog and returns an immutable StaticCatalog.
// Can only be called once.
// Returns error for non-positive or duplicate category ids and for empty,
// non-identifier or duplicate attribute names.
func (cb *CatalogBuilder) Build() (*catalog.StaticCatalog, error) {
	if cb.built {
		return nil, fmt.Errorf("catalog already built")
	}

	var defs []catalog.AttributeDefinition
	seenCategories := make(map[int64]bool)
	for _, c := range cb.categories {
		if c.id <= 0 {
			return nil, fmt.Errorf("category id must be positive, got %d", c.id)
		}
		if seenCategories[c.id] {
			return nil, fmt.Errorf("duplicate category: %d", c.id)
		}
		seenCategories[c.id] = true

		names := make(map[string]bool)
		for i, a := range c.attributes {
			if a.Name == "" {
				return nil, fmt.Errorf("attribute name cannot be empty in category %d", c.id)
			}
			if !filter.IsIdentifier(a.Name) {
				return nil, fmt.Errorf("attribute name %q in category %d is not a plain identifier", a.Name, c.id)
			}
			if names[a.Name] {
				return nil, fmt.Errorf("duplicate attribute %s in category %d", a.Name, c.id)
			}
			names[a.Name] = true

			typ := a.Type
			if typ == "" {
				typ = catalog.AttributeString
			}
			order := a.DisplayOrder
			if order == 0 {
				order = i + 1
			}
			defs = append(defs, catalog.AttributeDefinition{
				CategoryID:      c.id,
				Name:            a.Name,
				Type:            typ,
				Required:        a.Required,
				ValidationRules: a.ValidationRules,
				DisplayOrder:    order,
			})
		}
	}

	cb.built = true
	return catalog.NewStaticCatalog(defs...), nil
}

// CategoryBuilder adds attributes to one category.
// Not thread-safe - use only during initialization.
type CategoryBuilder struct {
	id         int64
	attributes []AttributeDef
	catalog    *CatalogBuilder
}

// Attribute adds an attribute to the category.
func (c *CategoryBuilder) Attribute(def AttributeDef) *CategoryBuilder {
	c.attributes = append(c.attributes, def)
	return c
}

// Category finishes this category and starts the next one.
func (c *CategoryBuilder) Category(id int64) *CategoryBuilder {
	return c.catalog.Category(id)
}

// Build finalizes the whole catalog. See CatalogBuilder.Build.
func (c *CategoryBuilder) Build() (*catalog.StaticCatalog, error) {
	return c.catalog.Build()
}
