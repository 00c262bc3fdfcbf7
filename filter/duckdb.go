package filter

// DuckDB renders predicates for DuckDB with the JSON extension.
// Parameters use $name placeholders and bind through sql.Named.
var DuckDB Dialect = duckDBDialect{}

type duckDBDialect struct{}

func (duckDBDialect) Name() string { return "duckdb" }

func (duckDBDialect) Placeholder(name string) string { return "$" + name }

// AttributeText uses a JSONPath so keys are never confused with JSON pointers.
func (duckDBDialect) AttributeText(document, key string) string {
	return "(" + document + " ->> " + quoteLiteral("$."+key) + ")"
}

// AttributeNumeric yields NULL for values that are not numbers, so such rows
// simply do not match.
func (duckDBDialect) AttributeNumeric(document, key string) string {
	return "TRY_CAST(" + document + " ->> " + quoteLiteral("$."+key) + " AS DOUBLE)"
}

// NumericParam yields NULL for a value that does not parse as a number, so
// the comparison matches nothing. The parameter is bound as text first;
// otherwise DuckDB types it DOUBLE and rejects such a value at bind time.
func (duckDBDialect) NumericParam(placeholder string) string {
	return "TRY_CAST(CAST(" + placeholder + " AS VARCHAR) AS DOUBLE)"
}

func (duckDBDialect) Text(expr string) string {
	return "CAST(" + expr + " AS VARCHAR)"
}
