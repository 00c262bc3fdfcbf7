package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/internal/recovery"
	"github.com/hugr-lab/productsearch-go/search"
)

// ErrInvalidDescriptor is returned for descriptors that do not carry a search command.
var ErrInvalidDescriptor = errors.New("descriptor must be CMD type with a MessagePack search request")

// statusFromError maps search and catalog errors to gRPC status codes.
// Errors that already carry a status are returned unchanged.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case search.IsInvalidRequest(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, catalog.ErrCategoryNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, recovery.ErrPanic):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, search.ErrStorage):
		if errors.Is(err, search.ErrUnavailable) {
			return status.Error(codes.Unavailable, err.Error())
		}
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
