package flight

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const (
	requestMetaKey contextKey = iota
)

// Metadata header keys read from incoming calls.
const (
	// HeaderAuthorization is the gRPC metadata header for authorization token.
	HeaderAuthorization = "authorization"
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "productsearch-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "productsearch-client-session-id"
)

// ContextMeta holds per-call metadata.
type ContextMeta struct {
	Authorization string
	TraceID       string
	SessionID     string

	// RequestID is the trace id when the client sent one, a random UUID otherwise.
	RequestID string
}

func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, &meta)
}

func MetaFromContext(ctx context.Context) *ContextMeta {
	meta, ok := ctx.Value(requestMetaKey).(*ContextMeta)
	if !ok {
		return nil
	}
	return meta
}

// AuthorizationFromContext retrieves the authorization header from context.
// Returns empty string if not set.
func AuthorizationFromContext(ctx context.Context) string {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return ""
	}
	return meta.Authorization
}

// RequestIDFromContext returns the request id, or empty string if the context was never enriched.
func RequestIDFromContext(ctx context.Context) string {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return ""
	}
	return meta.RequestID
}

// EnrichContextMetadata extracts metadata from gRPC context and
// returns a new context with the metadata stored.
// If the context is already enriched, it is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}

	var meta ContextMeta
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(HeaderAuthorization); len(values) != 0 {
			meta.Authorization = values[0]
		}
		if values := md.Get(HeaderTraceID); len(values) > 0 {
			meta.TraceID = values[0]
		}
		if values := md.Get(HeaderSessionID); len(values) > 0 {
			meta.SessionID = values[0]
		}
	}
	meta.RequestID = meta.TraceID
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}

	return WithContextMeta(ctx, meta)
}
