package search

import "errors"

// Errors reported by the executor. Filter errors come from the filter package
// (filter.ErrUnknownOperator, filter.ErrUnknownAttribute, filter.ErrInvalidFilter).
var (
	// ErrInvalidPagination indicates a non-positive page or limit, or a limit above the configured maximum.
	ErrInvalidPagination = errors.New("invalid pagination")

	// ErrInvalidSort indicates a sort field that is not a plain identifier or an unknown direction.
	ErrInvalidSort = errors.New("invalid sort")

	// ErrStorage wraps failures of the underlying store. The store error stays reachable with errors.Is/As.
	ErrStorage = errors.New("storage failure")

	// ErrUnavailable is wrapped by stores when the backend cannot be reached.
	// It is always reported together with ErrStorage.
	ErrUnavailable = errors.New("store unavailable")
)
