package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/bakery-storefront/internal/config"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/telemetry"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/infra/grpcx"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/infra/httpx"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper, cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront HTTP API and the gRPC health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg())
		},
	}
	cmd.Flags().String("http-addr", "", "HTTP listen address")
	cmd.Flags().String("grpc-addr", "", "gRPC listen address")
	_ = v.BindPFlag("http.addr", cmd.Flags().Lookup("http-addr"))
	_ = v.BindPFlag("grpc.addr", cmd.Flags().Lookup("grpc-addr"))
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, tracerConfig(cfg))
	if err != nil {
		return fmt.Errorf("initialise tracer: %w", err)
	}
	defer flushTracer(shutdown)

	sf, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sf.Close(); err != nil {
			slog.Error("close storefront", "error", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpx.NewRouter(httpx.NewHandler(sf.catalogs, sf.carts, cfg.Sync.Timeout)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv := grpcx.NewServer(sf.catalog)

	var grpcLis net.Listener
	if cfg.GRPC.Addr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPC.Addr); err != nil {
			grpcSrv.Stop()
			return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("storefront HTTP running", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			slog.Info("storefront gRPC health running", "addr", cfg.GRPC.Addr)
			return grpcSrv.Serve(grpcLis)
		})
	}

	// The first sync runs in the background so a cold start serves health
	// checks while the catalog is built.
	g.Go(func() error {
		if sf.catalog.IsFresh() {
			return nil
		}
		res, err := sf.catalogs.ResyncAll(gctx)
		if err != nil {
			slog.ErrorContext(gctx, "initial catalog sync failed", "error", err)
			return nil
		}
		slog.InfoContext(gctx, "initial catalog sync finished",
			"run_id", res.RunID, "success", res.Success,
			"added", res.Added, "errors", len(res.Errors))
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down storefront")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.Stop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func tracerConfig(cfg *config.Config) telemetry.TracerConfig {
	return telemetry.TracerConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Telemetry.Environment,
		Disabled:    !cfg.Telemetry.TracingEnabled,
	}
}

func flushTracer(shutdown telemetry.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Error("tracer shutdown error", "error", err)
	}
}
