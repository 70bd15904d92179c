// Package grpcx exposes the storefront's gRPC surface: the standard health
// service, reporting the catalog as serving once a snapshot was published.
package grpcx

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/catalogcache"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors"
)

// CatalogService is the health service name tracking the catalog cache.
const CatalogService = "bakery.storefront.Catalog"

// Server bundles the gRPC server with its health registry.
type Server struct {
	*grpc.Server
	health *health.Server
	cancel func()
}

// NewServer registers health and reflection and starts following the
// catalog cache. The overall status ("") is SERVING from the start; the
// catalog status flips to SERVING on the first published snapshot.
func NewServer(catalog *catalogcache.Cache) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
		grpc.StreamInterceptor(interceptors.TraceStreamInterceptor()),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(CatalogService, catalogStatus(catalog.Populated()))

	cancel := catalog.Subscribe(func(s catalogcache.Snapshot) {
		hs.SetServingStatus(CatalogService, catalogStatus(!s.LastUpdated.IsZero()))
	})

	return &Server{Server: srv, health: hs, cancel: cancel}
}

// Stop drains in-flight calls and marks every service NOT_SERVING first.
func (s *Server) Stop() {
	s.cancel()
	s.health.Shutdown()
	s.GracefulStop()
}

func catalogStatus(populated bool) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if populated {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}
