// Package grpcapi exposes the gRPC health and reflection services used by
// orchestrators to probe the webhook service.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"voice-summary-service/internal/observability"
	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/observability/metrics"
)

// ServiceName is the health-check service name reported alongside "".
const ServiceName = "voice.summary.WebhookService"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

// New builds a gRPC server with health, reflection and metrics interceptors.
// Both services start NOT_SERVING until SetServing is called.
func New(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)
	reflection.Register(g)

	s := &Server{
		grpc:   g,
		health: hs,
		logger: logging.WithComponent("grpc"),
	}
	s.SetServing(false)
	return s
}

// SetServing flips the health status of both the overall server and
// ServiceName.
func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
	return s.grpc.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.logger.Info().Msg("shutting down gRPC server")
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
