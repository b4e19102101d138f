package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/aescanero/taskorch/internal/application/workers"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func newTestServer(t *testing.T) (*Server, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	s, err := NewServer(&Config{Listener: lis, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	go func() { _ = s.Start() }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_NotServingUntilFirstReport(t *testing.T) {
	_, client := newTestServer(t)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, OverallService))
}

func TestHealth_UpdateHealth(t *testing.T) {
	s, client := newTestServer(t)

	s.UpdateHealth(&workers.HealthReport{
		SystemHealthy: false,
		Workers: map[string]domain.HealthStatus{
			domain.ResearchWorkerName: {Worker: domain.ResearchWorkerName, Healthy: true},
			domain.ContentWorkerName:  {Worker: domain.ContentWorkerName, Healthy: false},
		},
	})
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, OverallService))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, domain.ResearchWorkerName))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, domain.ContentWorkerName))

	s.UpdateHealth(&workers.HealthReport{SystemHealthy: true})
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, OverallService))

	s.UpdateHealth(nil)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, OverallService))
}
