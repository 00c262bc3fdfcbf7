package catalog

import (
	"cmp"
	"context"
	"slices"
)

// StaticCatalog is an immutable in-memory catalog.
// Build it with NewStaticCatalog or the root package CatalogBuilder.
type StaticCatalog struct {
	defs  map[int64][]AttributeDefinition
	names map[int64]map[string]struct{}
}

// NewStaticCatalog creates a static catalog from definitions.
// Definitions are grouped by CategoryID; a later definition with the same
// category and name replaces the earlier one.
func NewStaticCatalog(defs ...AttributeDefinition) *StaticCatalog {
	c := &StaticCatalog{
		defs:  make(map[int64][]AttributeDefinition),
		names: make(map[int64]map[string]struct{}),
	}

	for _, d := range defs {
		list := c.defs[d.CategoryID]
		i := slices.IndexFunc(list, func(e AttributeDefinition) bool { return e.Name == d.Name })
		if i >= 0 {
			list[i] = d
		} else {
			list = append(list, d)
		}
		c.defs[d.CategoryID] = list
	}

	for id, list := range c.defs {
		SortDefinitions(list)
		c.names[id] = NameSet(list)
	}
	return c
}

// AttributeNames implements Catalog interface.
func (c *StaticCatalog) AttributeNames(ctx context.Context, categoryID int64) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, ok := c.names[categoryID]
	if !ok {
		return map[string]struct{}{}, nil
	}
	return names, nil
}

// Definitions implements Catalog interface.
func (c *StaticCatalog) Definitions(ctx context.Context, categoryID int64) ([]AttributeDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, ok := c.defs[categoryID]
	if !ok {
		return []AttributeDefinition{}, nil
	}
	return slices.Clone(list), nil
}

// Categories returns the ids of all categories with at least one attribute, ascending.
func (c *StaticCatalog) Categories() []int64 {
	ids := make([]int64, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SortDefinitions orders defs by DisplayOrder then Name.
func SortDefinitions(defs []AttributeDefinition) {
	slices.SortFunc(defs, func(a, b AttributeDefinition) int {
		return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), cmp.Compare(a.Name, b.Name))
	})
}
