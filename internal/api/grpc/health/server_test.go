package health

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// TestServer_ProviderStatus checks per-catalog status over a real connection.
func TestServer_ProviderStatus(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer()
	server.SetProviderStatus("curseforge", true)
	server.SetProviderStatus("technic", false)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	go func() {
		served <- server.ServeListener(ctx, lis)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	defer func() {
		_ = conn.Close()
	}()

	client := healthpb.NewHealthClient(conn)

	response, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, response.GetStatus())

	response, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName("curseforge")})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, response.GetStatus())

	response, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName("technic")})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, response.GetStatus())

	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName("unknown")})
	require.Equal(t, codes.NotFound, status.Code(err))

	cancel()
	require.NoError(t, <-served)
}
