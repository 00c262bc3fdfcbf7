package filter

// Condition is a single attribute filter. Only the fields required by the
// operator's arity are read; the others are ignored.
type Condition struct {
	Operator Operator `json:"operator" msgpack:"operator"`

	// Value is used by eq, ne, gt, lt, gte, lte and contains.
	Value any `json:"value,omitempty" msgpack:"value,omitempty"`

	// Values is used by in.
	Values []any `json:"values,omitempty" msgpack:"values,omitempty"`

	// From and To are the inclusive bounds used by between.
	From any `json:"fromValue,omitempty" msgpack:"from_value,omitempty"`
	To   any `json:"toValue,omitempty" msgpack:"to_value,omitempty"`
}

// PriceRange bounds the relational price column. Nil bounds are open.
type PriceRange struct {
	Min *float64 `json:"min,omitempty" msgpack:"min,omitempty"`
	Max *float64 `json:"max,omitempty" msgpack:"max,omitempty"`
}

// Valid reports whether the condition carries the values its operator needs.
// Value types are not checked; a non-numeric value for gte surfaces as a
// storage error when the query runs.
func (c Condition) Valid() bool {
	_, reason := c.check()
	return reason == ""
}

// Validate is Valid with a reason. The returned error is an *Error of kind
// ErrInvalidFilter or ErrUnknownOperator with an empty Attribute.
func (c Condition) Validate() error {
	kind, reason := c.check()
	if reason == "" {
		return nil
	}
	return &Error{Kind: kind, Reason: reason}
}

func (c Condition) check() (error, string) {
	switch c.Operator.Arity() {
	case AritySingle:
		if c.Value == nil {
			return ErrInvalidFilter, "operator " + quote(c.Operator.String()) + " requires value"
		}
	case ArityRange:
		if c.From == nil || c.To == nil {
			return ErrInvalidFilter, "operator " + quote(c.Operator.String()) + " requires fromValue and toValue"
		}
	case AritySet:
		if len(c.Values) == 0 {
			return ErrInvalidFilter, "operator " + quote(c.Operator.String()) + " requires non-empty values"
		}
	default:
		return ErrUnknownOperator, "unknown operator " + quote(c.Operator.String())
	}
	return nil, ""
}
