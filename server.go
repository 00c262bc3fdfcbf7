package productsearch

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/productsearch-go/auth"
	"github.com/hugr-lab/productsearch-go/flight"
	"github.com/hugr-lab/productsearch-go/internal/codec"
	"github.com/hugr-lab/productsearch-go/search"
)

// Server is a registered product search Flight service.
type Server struct {
	service    *search.Service
	compressor *codec.Compressor
}

// Service returns the search service behind the Flight handlers.
func (s *Server) Service() *search.Service {
	return s.service
}

// Close releases encoder resources. It does not stop the gRPC server
// or close the store.
func (s *Server) Close() error {
	return s.compressor.Close()
}

// NewServer registers the product search Flight handlers on the provided gRPC server.
//
// The function:
//  1. Validates the ServerConfig
//  2. Creates the search service and Flight service implementation
//  3. Registers it on grpcServer
//
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
// For authentication and rate limiting, create the gRPC server with ServerOptions:
//
//	config := productsearch.ServerConfig{
//	    Catalog: catalog.NewCached(store.Catalog(), catalog.CacheOptions{TTL: time.Minute}),
//	    Store:   store,
//	    SQL:     store.SQLOptions(),
//	    Auth:    productsearch.StaticTokens(tokens),
//	}
//	grpcServer := grpc.NewServer(productsearch.ServerOptions(config)...)
//	srv, err := productsearch.NewServer(grpcServer, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) (*Server, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := newLogger(config)

	svc, err := search.NewService(search.Config{
		Catalog:  config.Catalog,
		Store:    config.Store,
		SQL:      config.SQL,
		MaxLimit: config.MaxLimit,
		Logger:   logger,
		Metrics:  config.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	compressor, err := codec.NewCompressor()
	if err != nil {
		return nil, err
	}

	flight.RegisterFlightServer(grpcServer, flight.NewServer(svc, allocator, logger, compressor))

	logger.Info("Product search Flight server registered",
		"dialect", config.SQL.WithDefaults().Dialect.Name(),
		"has_auth", config.Auth != nil,
		"rate_limited", config.RateLimit != nil,
		"max_limit", config.MaxLimit,
		"max_message_size", config.MaxMessageSize,
	)

	return &Server{service: svc, compressor: compressor}, nil
}

// validateConfig checks that required ServerConfig fields are valid.
func validateConfig(config ServerConfig) error {
	if config.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if config.Store == nil {
		return fmt.Errorf("store is required")
	}
	if config.MaxLimit < 0 {
		return fmt.Errorf("max limit must not be negative, got %d", config.MaxLimit)
	}
	if config.RateLimit != nil && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive, got %v", config.RateLimit.RequestsPerSecond)
	}
	return nil
}

func newLogger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with the request metadata,
// authentication and rate limit interceptors, in that order.
//
// Example:
//
//	opts := productsearch.ServerOptions(config)
//	grpcServer := grpc.NewServer(opts...)
//	productsearch.NewServer(grpcServer, config)
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	unary := []grpc.UnaryServerInterceptor{flight.UnaryServerInterceptor()}
	stream := []grpc.StreamServerInterceptor{flight.StreamServerInterceptor()}

	if config.Auth != nil {
		unary = append(unary, auth.UnaryServerInterceptor(config.Auth))
		stream = append(stream, auth.StreamServerInterceptor(config.Auth))
	}

	if rl := config.RateLimit; rl != nil && rl.RequestsPerSecond > 0 {
		limiter := auth.NewRateLimiter(rl.RequestsPerSecond, rl.Burst, rl.IdleTTL)
		unary = append(unary, limiter.UnaryServerInterceptor())
		stream = append(stream, limiter.StreamServerInterceptor())
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}
