package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	productsearch "github.com/hugr-lab/productsearch-go"
	"github.com/hugr-lab/productsearch-go/search"
)

var longServe = `
Serve product searches over Arrow Flight until interrupted.

Clients send a msgpack search request as a CMD descriptor to GetFlightInfo
and fetch the page with DoGet. The list_attributes and explain actions are
available through DoAction. When metrics_address is set, Prometheus metrics
are served on /metrics at that address.
`

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve product searches over Arrow Flight",
		Long:  longServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cfg.Logger(cmd.ErrOrStderr()), nil)
		},
	}

	flags := cmd.Flags()
	flags.String("address", ":50051", "Flight listen address")
	flags.String("metrics-address", "", "Prometheus metrics listen address, empty to disable")
	flags.Int("max-limit", 100, "maximum page size, 0 for no cap")
	bindFlags(v, flags, map[string]string{
		keyAddress:        "address",
		keyMetricsAddress: "metrics-address",
		keyMaxLimit:       "max-limit",
	})
	return cmd
}

// serve runs the Flight server and the optional metrics server until ctx is
// done or one of them fails. ready, if not nil, receives the Flight address
// once it is listening.
func serve(ctx context.Context, cfg Config, logger *slog.Logger, ready chan<- net.Addr) error {
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := search.NewMetrics(reg)

	config := cfg.ServerConfig(be, logger, metrics)
	grpcServer := grpc.NewServer(productsearch.ServerOptions(config)...)
	srv, err := productsearch.NewServer(grpcServer, config)
	if err != nil {
		return err
	}
	defer srv.Close()

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Flight server listening", "address", lis.Addr().String())
		if ready != nil {
			ready <- lis.Addr()
		}
		if err := grpcServer.Serve(lis); !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("Metrics server listening", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		gracefulStop(grpcServer, cfg.ShutdownTimeout)
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

// gracefulStop drains in-flight calls and stops the server hard after timeout.
func gracefulStop(s *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		s.Stop()
	}
}
