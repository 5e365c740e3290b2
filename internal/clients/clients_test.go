package clients

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/research-gateway/internal/config"
	"github.com/pribylovaa/research-gateway/internal/credentials"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	"github.com/pribylovaa/research-gateway/internal/mocks"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func testConfig(grpcAddr string) config.Config {
	return config.Config{
		Backend:  config.BackendConfig{BaseURL: "http://127.0.0.1:1", GRPCAddr: grpcAddr},
		Identity: config.IdentityConfig{BaseURL: "http://127.0.0.1:1", RefreshPath: "/auth/refresh"},
		Timeouts: config.TimeoutConfig{Service: time.Second},
	}
}

// startGRPC поднимает health-сервер на TCP, принимающий только Bearer accept.
func startGRPC(t *testing.T, accept string) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if v := md.Get("authorization"); len(v) == 0 || v[0] != "Bearer "+accept {
			return nil, status.Error(codes.Unauthenticated, "expired")
		}
		return h(ctx, req)
	}))
	healthpb.RegisterHealthServer(srv, health.NewServer())

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func TestNew_WithoutGRPC(t *testing.T) {
	t.Parallel()

	c := New(testConfig(""), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotNil(t, c.Identity)
	require.NotNil(t, c.Backend)

	require.NoError(t, c.DialBackend(nil))
	require.Nil(t, c.Health)
	require.True(t, c.Ready())

	_, err := c.CheckBackend(context.Background(), "")
	require.ErrorIs(t, err, ErrNoGRPCBackend)
	require.NoError(t, c.Close())
}

func TestDialBackend_SessionChain(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oldPair := credentials.Credential{AccessToken: "a-old", RefreshToken: "r-old"}
	newPair := credentials.Credential{AccessToken: "a-new", RefreshToken: "r-new"}

	id := mocks.NewMockIdentity(ctrl)
	id.EXPECT().Refresh(gomock.Any(), gomock.Any()).Return(newPair, nil).Times(1)

	store := credentials.NewMemoryStore()
	coord := gateway.New(store, id)
	require.NoError(t, coord.Establish(oldPair))

	c := New(testConfig(startGRPC(t, newPair.AccessToken)), nil)
	require.NoError(t, c.DialBackend(coord))
	t.Cleanup(func() { _ = c.Close() })

	st, err := c.CheckBackend(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, st)
	require.True(t, c.Ready())

	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, newPair.AccessToken, got.AccessToken)
}
