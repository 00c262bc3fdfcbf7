// Package productsearch serves filtered product searches over Apache Arrow Flight.
//
// Products live in a hybrid schema: relational columns (category_id, brand,
// price, ...) plus a per-row JSON document of category specific attributes.
// A search names a category, optional brand and price bounds, and a map of
// attribute conditions. The filter package compiles it into a parameterized
// predicate, and the search package counts the matches and fetches one
// sorted page. The flight package exposes both over gRPC.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "net"
//	    "time"
//
//	    "google.golang.org/grpc"
//
//	    "github.com/hugr-lab/productsearch-go"
//	    "github.com/hugr-lab/productsearch-go/catalog"
//	    "github.com/hugr-lab/productsearch-go/store/duckstore"
//	)
//
//	func main() {
//	    store, err := duckstore.Open("products.duckdb")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer store.Close()
//	    if err := store.CreateTables(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    config := productsearch.ServerConfig{
//	        Catalog: catalog.NewCached(store.Catalog(), catalog.CacheOptions{TTL: time.Minute}),
//	        Store:   store,
//	        SQL:     store.SQLOptions(),
//	    }
//	    grpcServer := grpc.NewServer(productsearch.ServerOptions(config)...)
//	    srv, err := productsearch.NewServer(grpcServer, config)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer srv.Close()
//
//	    lis, _ := net.Listen("tcp", ":50051")
//	    grpcServer.Serve(lis)
//	}
//
// # Architecture
//
//   - filter: closed operator set, condition validation and the query compiler
//   - catalog: per-category attribute definitions, static and cached catalogs
//   - search: request defaults, the paginated executor and the search service
//   - store/duckstore, store/pgstore: DuckDB and PostgreSQL backends
//   - flight: GetFlightInfo, DoGet and DoAction handlers
//   - auth: bearer tokens and per-identity rate limiting
//
// # Server Lifecycle
//
// The package registers Flight service handlers on a user-provided grpc.Server
// but does NOT manage server lifecycle (start/stop/listen). This gives users
// full control over:
//   - TLS configuration via grpc.Creds()
//   - Server options and interceptors
//   - Graceful shutdown via grpcServer.GracefulStop()
//
// # Authentication
//
// Bearer token authentication and rate limiting are installed by ServerOptions:
//
//	config := productsearch.ServerConfig{
//	    Catalog:   cat,
//	    Store:     store,
//	    Auth:      productsearch.StaticTokens(map[string]string{"secret-api-key": "user1"}),
//	    RateLimit: &productsearch.RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
//	}
//
// # Errors
//
// Invalid filters, sorts and pagination map to InvalidArgument and are
// reported before any product query runs. Store failures map to Internal, or
// Unavailable when the backend cannot be reached.
//
// # Logging
//
// The package logs through ServerConfig.Logger, falling back to
// slog.Default(). Searches log at Debug, storage failures at Error.
package productsearch
