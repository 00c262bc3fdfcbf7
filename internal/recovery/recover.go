// Package recovery provides panic recovery for Flight RPC handlers.
// Ensures user-provided stores and catalogs don't crash the server.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanic marks errors produced from a recovered panic.
var ErrPanic = errors.New("panic recovered")

// Do wraps a function that returns a value and an error.
// If the function panics, the panic is logged with its stack and returned as
// an error matching ErrPanic.
//
// Example:
//
//	page, err := recovery.Do(logger, "Search", func() (*search.Page[search.Product], error) {
//	    return svc.Search(ctx, req)
//	})
func Do[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			var zero T
			result = zero
			err = fmt.Errorf("%w: %s: %v", ErrPanic, operation, r)
		}
	}()

	return fn()
}

// Run is Do for functions without a result value.
func Run(logger *slog.Logger, operation string, fn func() error) error {
	_, err := Do(logger, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
