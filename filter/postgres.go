package filter

// Postgres renders predicates for PostgreSQL JSONB columns.
// Parameters use @name placeholders, the syntax of pgx.NamedArgs.
var Postgres Dialect = postgresDialect{}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(name string) string { return "@" + name }

func (postgresDialect) AttributeText(document, key string) string {
	return "(" + document + " ->> " + quoteLiteral(key) + ")"
}

func (postgresDialect) AttributeNumeric(document, key string) string {
	return "(" + document + " ->> " + quoteLiteral(key) + ")::NUMERIC"
}

func (postgresDialect) NumericParam(placeholder string) string {
	return "CAST(" + placeholder + " AS NUMERIC)"
}

func (postgresDialect) Text(expr string) string {
	return "CAST(" + expr + " AS TEXT)"
}
