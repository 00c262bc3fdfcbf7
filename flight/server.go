// Package flight serves product searches over Arrow Flight RPC.
//
// A client sends a MessagePack encoded search.Request as the command of a
// CMD FlightDescriptor. GetFlightInfo validates and compiles it, and DoGet
// streams the resulting page as a single Arrow record batch.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/productsearch-go/internal/codec"
	"github.com/hugr-lab/productsearch-go/search"
)

// Server implements the Flight service handlers.
// Embeds BaseFlightServer so unsupported RPCs return Unimplemented.
type Server struct {
	flight.BaseFlightServer

	service    *search.Service
	allocator  memory.Allocator
	logger     *slog.Logger
	compressor *codec.Compressor
}

// NewServer creates a Flight server backed by the search service.
// The compressor encodes action payloads and is owned by the caller.
func NewServer(svc *search.Service, allocator memory.Allocator, logger *slog.Logger, compressor *codec.Compressor) *Server {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:    svc,
		allocator:  allocator,
		logger:     logger,
		compressor: compressor,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
