package flight

import (
	"fmt"

	"github.com/hugr-lab/productsearch-go/internal/codec"
	"github.com/hugr-lab/productsearch-go/search"
)

// EncodeTicket creates an opaque ticket carrying req.
// Tickets and CMD descriptors share the same MessagePack encoding.
func EncodeTicket(req search.Request) ([]byte, error) {
	data, err := codec.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses a ticket or descriptor command into a search request.
func DecodeTicket(ticket []byte) (search.Request, error) {
	var req search.Request
	if err := codec.Decode(ticket, &req); err != nil {
		return search.Request{}, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if req.CategoryID <= 0 {
		return search.Request{}, fmt.Errorf("decoded ticket has no category_id")
	}
	return req, nil
}
