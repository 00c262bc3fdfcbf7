// Package filter compiles product search criteria into parameterized SQL predicates.
//
// Products live in a hybrid table: relational columns (category_id, brand, price)
// plus a JSON document of per-category attributes. This package turns a category
// id, an optional price range and a map of attribute conditions into a predicate
// body and an ordered list of named parameters:
//
//	c := filter.NewCompiler(attributes, &filter.Options{Dialect: filter.DuckDB})
//	q, err := c.Compile(ctx, filter.Criteria{
//	    CategoryID: 2,
//	    Filters: map[string]filter.Condition{
//	        "RAM":       {Operator: filter.OperatorGreaterOrEqual, Value: 16},
//	        "processor": {Operator: filter.OperatorContains, Value: "intel"},
//	    },
//	})
//	// q.Predicate: p.category_id = $category_id AND TRY_CAST(...) >= ... AND ...
//	// q.Params:    category_id=2, gte_ram=16, contains_processor=%intel%
//
// # Operators
//
// The operator set is closed:
//   - Single value: eq, ne, gt, lt, gte, lte, contains
//   - Range: between (inclusive on both ends)
//   - Set: in
//
// # Safety
//
// Condition values never appear in predicate text. They are bound as named
// parameters whose names derive from the operator and attribute, so compiling
// the same criteria twice yields byte-identical output. Attribute names must be
// defined for the category and must be plain identifiers before they are
// written into the JSON path of the predicate.
//
// # Dialects
//
// DuckDB and Postgres are supported. Implement Dialect for other engines:
//
//	type MySQLDialect struct{}
//	func (MySQLDialect) Placeholder(name string) string { ... }
//	...
package filter
