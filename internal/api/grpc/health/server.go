package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/packwatch/internal/logger"
)

// servicePrefix prefixes every per-catalog service name.
const servicePrefix = "packwatch.checker."

// Server serves health status of the checker.
type Server struct {
	// grpcServer hosts the health service.
	grpcServer *grpc.Server
	// status holds per-service serving status.
	status *grpchealth.Server
}

// ServiceName returns the health service name of a catalog.
func ServiceName(provider string) string {
	return servicePrefix + provider
}

// NewServer creates a health server reporting the whole process as serving.
func NewServer() *Server {
	status := grpchealth.NewServer()
	status.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, status)

	return &Server{
		grpcServer: grpcServer,
		status:     status,
	}
}

// SetProviderStatus records whether the last pass of provider reached its catalog.
func (s *Server) SetProviderStatus(provider string, healthy bool) {
	serving := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.status.SetServingStatus(ServiceName(provider), serving)
}

// Serve listens on address and blocks until ctx is canceled.
func (s *Server) Serve(ctx context.Context, address string) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis and blocks until ctx is canceled.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	logger.InfoKV(ctx, "Health endpoint listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop so Serve returns only once the server is down.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		s.status.Shutdown()
		s.grpcServer.GracefulStop()
		close(done)
	}()

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health endpoint stopped")

	return nil
}
