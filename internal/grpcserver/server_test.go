package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"cruisesync/internal/session"
)

const bufSize = 1024 * 1024

func dial(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsSession(t *testing.T) {
	s := NewServer(zap.NewNop())
	c := dial(t, s)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c))

	s.Publish(session.Snapshot{ID: "a", Status: session.StatusSyncing})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c))

	s.Publish(session.Snapshot{ID: "a", Status: session.StatusError, LastError: "write offers: disk full"})
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c))

	s.Publish(session.Snapshot{ID: "b", Status: session.StatusNotAuthenticated})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c))
}
