package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/productsearch-go/internal/recovery"
	"github.com/hugr-lab/productsearch-go/search"
)

// GetFlightInfo validates a search and returns the result schema and ticket.
//
// The descriptor must be CMD type; Cmd holds a MessagePack search.Request.
// Filters, sort and pagination are checked here so a bad request fails before
// DoGet. Returns FlightInfo with:
//   - Schema: product schema without page metadata
//   - Endpoint: one endpoint whose ticket carries the request with defaults applied
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)

	s.logger.Debug("GetFlightInfo called",
		"request_id", RequestIDFromContext(ctx),
		"type", desc.GetType(),
		"cmd_size", len(desc.GetCmd()),
	)

	if desc.GetType() != flight.DescriptorCMD {
		return nil, status.Error(codes.InvalidArgument, ErrInvalidDescriptor.Error())
	}

	req, err := DecodeTicket(desc.GetCmd())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid search request: %v", err)
	}

	plan, err := recovery.Do(s.logger, "GetFlightInfo", func() (*search.Plan, error) {
		return s.service.Prepare(ctx, req)
	})
	if err != nil {
		s.logger.Debug("Search rejected",
			"request_id", RequestIDFromContext(ctx),
			"category_id", req.CategoryID,
			"error", err,
		)
		return nil, statusFromError(err)
	}

	ticket, err := EncodeTicket(plan.Request)
	if err != nil {
		s.logger.Error("Failed to encode ticket",
			"request_id", RequestIDFromContext(ctx),
			"error", err,
		)
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	s.logger.Debug("GetFlightInfo successful",
		"request_id", RequestIDFromContext(ctx),
		"category_id", req.CategoryID,
		"params", len(plan.Query.Params),
	)

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(ProductSchema(), s.allocator),
		FlightDescriptor: desc,
		Endpoint: []*flight.FlightEndpoint{
			{Ticket: &flight.Ticket{Ticket: ticket}},
		},
		TotalRecords: -1, // Unknown until DoGet counts
		TotalBytes:   -1,
	}, nil
}
