package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/productsearch-go/internal/recovery"
	"github.com/hugr-lab/productsearch-go/search"
)

// DoGet runs the search carried by the ticket and streams the page.
//
// The page is sent as a single record batch, possibly empty. The stream schema
// carries total_count, page, limit, sort_field and sort_direction metadata.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	requestID := RequestIDFromContext(ctx)

	s.logger.Debug("DoGet called",
		"request_id", requestID,
		"ticket_size", len(ticket.GetTicket()),
	)

	req, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		s.logger.Error("Failed to decode ticket", "request_id", requestID, "error", err)
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}

	page, err := recovery.Do(s.logger, "DoGet", func() (*search.Page[search.Product], error) {
		return s.service.Search(ctx, req)
	})
	if err != nil {
		return statusFromError(err)
	}

	schema := PageSchema(page)
	record, err := BuildRecord(s.allocator, schema, page.Items)
	if err != nil {
		s.logger.Error("Failed to build record batch", "request_id", requestID, "error", err)
		return status.Errorf(codes.Internal, "failed to build record batch: %v", err)
	}
	defer record.Release()

	if err := ctx.Err(); err != nil {
		s.logger.Debug("DoGet cancelled by client", "request_id", requestID)
		return status.Error(codes.Canceled, "request cancelled")
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	if err := writer.Write(record); err != nil {
		s.logger.Error("Failed to write record batch",
			"request_id", requestID,
			"error", err,
		)
		return status.Errorf(codes.Internal, "failed to write batch: %v", err)
	}

	s.logger.Debug("DoGet completed successfully",
		"request_id", requestID,
		"category_id", req.CategoryID,
		"rows", record.NumRows(),
		"total_count", page.TotalCount,
	)
	return nil
}
