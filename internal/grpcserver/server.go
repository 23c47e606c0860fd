// Package grpcserver exposes the standard gRPC health service for the
// orchestrator.
package grpcserver

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"cruisesync/internal/session"
)

// Service is the health service name that health checks ask for.
const Service = "cruisesync.Orchestrator"

// Server reports NOT_SERVING while the session is in error and SERVING
// otherwise. It implements orchestrator.Publisher.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger

	mu      sync.Mutex
	serving healthpb.HealthCheckResponse_ServingStatus
}

func NewServer(logger *zap.Logger) *Server {
	s := &Server{
		grpc:    grpc.NewServer(),
		health:  health.NewServer(),
		logger:  logger.Named("grpc"),
		serving: healthpb.HealthCheckResponse_SERVING,
	}
	s.health.SetServingStatus(Service, s.serving)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

func (s *Server) Publish(snap session.Snapshot) {
	want := healthpb.HealthCheckResponse_SERVING
	if snap.Status == session.StatusError {
		want = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if want == s.serving {
		return
	}
	s.serving = want
	s.health.SetServingStatus(Service, want)
	s.logger.Info("grpc: health changed", zap.String("status", want.String()), zap.String("session", snap.ID))
}

func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve blocks until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("grpc: listening", zap.String("addr", ln.Addr().String()))
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()
	return s.grpc.Serve(ln)
}
