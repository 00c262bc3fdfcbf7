package filter

import (
	"errors"
	"strconv"
)

// Errors reported by the compiler. Match them with errors.Is.
var (
	// ErrUnknownOperator indicates an operator outside the supported set.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnknownAttribute indicates a filter key that is not defined for the category.
	// Errors of this kind also match ErrInvalidFilter.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrInvalidFilter indicates a condition that cannot be compiled,
	// e.g. a between condition without both bounds.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Error describes the first condition that failed compilation.
type Error struct {
	// Attribute is the filter key. Empty when the error is not tied to one.
	Attribute string
	// Reason is a human readable explanation.
	Reason string
	// Kind is one of ErrUnknownOperator, ErrUnknownAttribute or ErrInvalidFilter.
	Kind error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Attribute != "" {
		msg += ": attribute " + quote(e.Attribute)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap exposes the error kind. An unknown attribute is also an invalid filter.
func (e *Error) Unwrap() []error {
	if e.Kind == ErrUnknownAttribute {
		return []error{ErrUnknownAttribute, ErrInvalidFilter}
	}
	return []error{e.Kind}
}

func quote(s string) string {
	return strconv.Quote(s)
}
