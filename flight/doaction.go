package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/productsearch-go/catalog"
	"github.com/hugr-lab/productsearch-go/internal/codec"
	"github.com/hugr-lab/productsearch-go/internal/recovery"
	"github.com/hugr-lab/productsearch-go/search"
)

// Action types served by DoAction.
const (
	ActionListAttributes = "list_attributes"
	ActionExplain        = "explain"
)

var actionTypes = []*flight.ActionType{
	{
		Type:        ActionListAttributes,
		Description: "Attribute definitions of a category. Body: MessagePack {category_id}. Result: ZStandard compressed MessagePack list.",
	},
	{
		Type:        ActionExplain,
		Description: "Compiled predicate, parameters and statements of a search. Body: MessagePack search request.",
	},
}

// ListAttributesRequest is the body of the list_attributes action.
type ListAttributesRequest struct {
	CategoryID int64 `msgpack:"category_id"`
}

// DoAction executes server actions.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoAction called",
		"request_id", RequestIDFromContext(ctx),
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
	)

	switch action.GetType() {
	case ActionListAttributes:
		return s.handleListAttributes(ctx, action, stream)
	case ActionExplain:
		return s.handleExplain(ctx, action, stream)
	default:
		return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
	}
}

// ListActions advertises the supported actions.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, at := range actionTypes {
		if err := stream.Send(at); err != nil {
			return err
		}
	}
	return nil
}

// handleListAttributes returns the category's attribute definitions in display order.
//
// Response format: codec.Compressed wrapping a MessagePack array of
// catalog.AttributeDefinition.
func (s *Server) handleListAttributes(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var req ListAttributesRequest
	if err := codec.Decode(action.GetBody(), &req); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
	}
	if req.CategoryID <= 0 {
		return status.Error(codes.InvalidArgument, "category_id is required")
	}

	defs, err := recovery.Do(s.logger, ActionListAttributes, func() ([]catalog.AttributeDefinition, error) {
		return s.service.Catalog().Definitions(ctx, req.CategoryID)
	})
	if err != nil {
		s.logger.Error("Failed to list attributes",
			"request_id", RequestIDFromContext(ctx),
			"category_id", req.CategoryID,
			"error", err,
		)
		return statusFromError(err)
	}

	body, err := s.compressor.EncodeCompressed(defs)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode attributes: %v", err)
	}

	s.logger.Debug("Attributes listed",
		"request_id", RequestIDFromContext(ctx),
		"category_id", req.CategoryID,
		"count", len(defs),
		"bytes", len(body),
	)
	return stream.Send(&flight.Result{Body: body})
}

// handleExplain compiles a search without running it and returns the plan as MessagePack.
func (s *Server) handleExplain(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	req, err := DecodeTicket(action.GetBody())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid search request: %v", err)
	}

	plan, err := recovery.Do(s.logger, ActionExplain, func() (*search.Plan, error) {
		return s.service.Prepare(ctx, req)
	})
	if err != nil {
		return statusFromError(err)
	}

	body, err := codec.Encode(plan)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode plan: %v", err)
	}
	return stream.Send(&flight.Result{Body: body})
}
