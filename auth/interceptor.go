package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor rejects unary calls without a valid bearer token
// with codes.Unauthenticated and attaches the caller identity otherwise.
// A nil authenticator lets every call through.
func UnaryServerInterceptor(authenticator Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if authenticator == nil {
			return handler(ctx, req)
		}
		ctx, err := authenticate(ctx, authenticator)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is UnaryServerInterceptor for streaming calls
// such as DoGet.
func StreamServerInterceptor(authenticator Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if authenticator == nil {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), authenticator)
		if err != nil {
			return err
		}
		return handler(srv, identifiedStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticate(ctx context.Context, authenticator Authenticator) (context.Context, error) {
	ctx, err := identify(ctx, authenticator)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	return ctx, nil
}

// identifiedStream overrides the stream context with the authenticated one.
type identifiedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s identifiedStream) Context() context.Context { return s.ctx }
