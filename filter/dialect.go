package filter

import "strings"

// Dialect renders the engine-specific parts of a predicate.
// Implementations must be stateless and goroutine-safe.
type Dialect interface {
	// Name identifies the dialect in configuration and logs.
	Name() string

	// Placeholder renders a reference to the named parameter.
	Placeholder(name string) string

	// AttributeText renders the text value of key inside the JSON document column.
	// The key has already passed IsIdentifier.
	AttributeText(document, key string) string

	// AttributeNumeric renders the numeric value of key inside the JSON document column.
	AttributeNumeric(document, key string) string

	// NumericParam casts a placeholder to the type used by AttributeNumeric.
	NumericParam(placeholder string) string

	// Text casts an expression to the engine's text type.
	Text(expr string) string
}

// DialectByName returns the dialect registered under name ("duckdb" or "postgres").
func DialectByName(name string) (Dialect, bool) {
	switch name {
	case "duckdb":
		return DuckDB, true
	case "postgres", "postgresql":
		return Postgres, true
	}
	return nil, false
}

// Product table columns. Options.ColumnMapping can rename them.
const (
	ColumnID          = "id"
	ColumnSKU         = "sku"
	ColumnName        = "name"
	ColumnCategoryID  = "category_id"
	ColumnBrand       = "brand"
	ColumnPrice       = "price"
	ColumnWeight      = "weight"
	ColumnDescription = "description"
	ColumnAttributes  = "attributes"
	ColumnCreatedAt   = "created_at"
	ColumnUpdatedAt   = "updated_at"
)

// Columns lists the relational product columns.
var Columns = []string{
	ColumnID, ColumnSKU, ColumnName, ColumnCategoryID, ColumnBrand, ColumnPrice,
	ColumnWeight, ColumnDescription, ColumnAttributes, ColumnCreatedAt, ColumnUpdatedAt,
}

// IsColumn reports whether name is a relational product column.
func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Options configures SQL rendering for the compiler and the executor.
type Options struct {
	// Dialect renders placeholders and JSON access. Defaults to DuckDB.
	Dialect Dialect

	// Table is the product table name. Defaults to "products".
	Table string

	// Alias is the table alias used in every column reference. Defaults to "p".
	Alias string

	// ColumnMapping maps product column names to storage names.
	// Columns not in the map use their original names.
	ColumnMapping map[string]string
}

// WithDefaults returns a copy of o with empty fields defaulted. A nil receiver is allowed.
func (o *Options) WithDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.Dialect == nil {
		out.Dialect = DuckDB
	}
	if out.Table == "" {
		out.Table = "products"
	}
	if out.Alias == "" {
		out.Alias = "p"
	}
	return &out
}

// Column renders a qualified reference to a product column.
func (o *Options) Column(name string) string {
	if mapped, ok := o.ColumnMapping[name]; ok {
		name = mapped
	}
	return quoteIdentifier(o.Alias) + "." + quoteIdentifier(name)
}

// From renders the FROM target: table and alias.
func (o *Options) From() string {
	return quoteIdentifier(o.Table) + " " + quoteIdentifier(o.Alias)
}

// IsIdentifier reports whether name is a plain identifier: an ASCII letter or
// underscore followed by letters, digits or underscores. Attribute keys and
// sort fields must pass before they are written into query text.
func IsIdentifier(name string) bool {
	if len(name) == 0 || len(name) > 128 {
		return false
	}
	c := name[0]
	if !isLetter(c) && c != '_' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c = name[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

// escapeString escapes single quotes in a string value for SQL.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quoteLiteral returns a SQL string literal with proper escaping.
func quoteLiteral(s string) string {
	return "'" + escapeString(s) + "'"
}

// quoteIdentifier returns a quoted identifier if needed.
func quoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// needsQuoting returns true if the identifier needs quoting.
func needsQuoting(name string) bool {
	if !IsIdentifier(name) {
		return true
	}
	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"TABLE", "JOIN", "ON", "AS", "IN", "IS", "LIKE", "ILIKE", "BETWEEN", "CASE",
		"WHEN", "THEN", "ELSE", "END", "ORDER", "BY", "GROUP", "HAVING", "LIMIT",
		"OFFSET", "UNION", "ALL", "DISTINCT", "DEFAULT", "ASC", "DESC", "CAST",
		"USER", "DATE", "TIME", "TIMESTAMP":
		return true
	}
	return false
}

// isLetter returns true if c is an ASCII letter.
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isDigit returns true if c is an ASCII digit.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
