package filter

import "strings"

// Operator identifies a filter comparison. The wire names are the lowercase
// constants below; any other value is rejected with ErrUnknownOperator.
type Operator string

const (
	OperatorEqual          Operator = "eq"
	OperatorNotEqual       Operator = "ne"
	OperatorGreaterThan    Operator = "gt"
	OperatorLessThan       Operator = "lt"
	OperatorGreaterOrEqual Operator = "gte"
	OperatorLessOrEqual    Operator = "lte"
	OperatorContains       Operator = "contains"
	OperatorBetween        Operator = "between"
	OperatorIn             Operator = "in"
)

// Operators lists every supported operator in declaration order.
var Operators = []Operator{
	OperatorEqual,
	OperatorNotEqual,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorGreaterOrEqual,
	OperatorLessOrEqual,
	OperatorContains,
	OperatorBetween,
	OperatorIn,
}

// Arity is the shape of values an operator consumes.
type Arity int

const (
	ArityUnknown Arity = iota
	// AritySingle reads Condition.Value.
	AritySingle
	// ArityRange reads Condition.From and Condition.To.
	ArityRange
	// AritySet reads Condition.Values.
	AritySet
)

func (a Arity) String() string {
	switch a {
	case AritySingle:
		return "single"
	case ArityRange:
		return "range"
	case AritySet:
		return "set"
	default:
		return "unknown"
	}
}

// ParseOperator resolves a wire name (case-insensitive) to an Operator.
func ParseOperator(name string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(name)))
	if op.Arity() == ArityUnknown {
		return "", &Error{Kind: ErrUnknownOperator, Reason: "unknown operator " + quote(name)}
	}
	return op, nil
}

// Arity returns the value shape required by the operator.
// Returns ArityUnknown for values outside the closed set.
func (op Operator) Arity() Arity {
	switch op {
	case OperatorEqual, OperatorNotEqual,
		OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterOrEqual, OperatorLessOrEqual,
		OperatorContains:
		return AritySingle
	case OperatorBetween:
		return ArityRange
	case OperatorIn:
		return AritySet
	default:
		return ArityUnknown
	}
}

// Numeric reports whether the operator compares attribute values as numbers.
func (op Operator) Numeric() bool {
	switch op {
	case OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterOrEqual, OperatorLessOrEqual,
		OperatorBetween:
		return true
	default:
		return false
	}
}

// Sign returns the SQL comparison sign for the six comparison operators.
// Contains, Between and In have dedicated clause shapes and no sign;
// they fail with ErrUnknownOperator like any value outside the set.
func (op Operator) Sign() (string, error) {
	switch op {
	case OperatorEqual:
		return "=", nil
	case OperatorNotEqual:
		return "!=", nil
	case OperatorGreaterThan:
		return ">", nil
	case OperatorLessThan:
		return "<", nil
	case OperatorGreaterOrEqual:
		return ">=", nil
	case OperatorLessOrEqual:
		return "<=", nil
	default:
		return "", &Error{Kind: ErrUnknownOperator, Reason: "no comparison sign for operator " + quote(string(op))}
	}
}

func (op Operator) String() string { return string(op) }

// MarshalText implements encoding.TextMarshaler.
func (op Operator) MarshalText() ([]byte, error) {
	return []byte(op), nil
}

// UnmarshalText normalizes case and surrounding space. Unknown names are kept
// so the compiler can report them together with the attribute they belong to.
func (op *Operator) UnmarshalText(text []byte) error {
	*op = Operator(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}
