package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
	"github.com/pribylovaa/research-gateway/internal/config"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	"github.com/pribylovaa/research-gateway/internal/identity"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const userAgent = "research-gateway"

// Clients агрегирует исходящие клиенты шлюза.
type Clients struct {
	Identity *identity.Client
	Backend  *HTTPExecutor

	// Health — gRPC health бэкенда через аутентифицированную цепочку.
	// nil, если backend.grpc_addr не задан.
	Health healthpb.HealthClient

	conn *grpc.ClientConn
	cfg  config.Config
	log  *slog.Logger
}

// New создаёт HTTP-клиенты identity и бэкенда.
// gRPC-коннект поднимается отдельно (DialBackend): ему нужен готовый Coordinator.
func New(cfg config.Config, log *slog.Logger) *Clients {
	if log == nil {
		log = slog.Default()
	}

	hc := &http.Client{}

	return &Clients{
		Identity: identity.New(cfg.Identity,
			identity.WithHTTPClient(&http.Client{Timeout: cfg.Timeouts.Service}),
			identity.WithUserAgent(userAgent),
		),
		Backend: NewHTTPExecutor(cfg.Backend.BaseURL,
			WithExecutorHTTPClient(hc),
			WithMaxBody(cfg.Backend.MaxBodyBytes),
			WithAttemptTimeout(cfg.Timeouts.Service),
			WithExecutorUserAgent(userAgent),
		),
		cfg: cfg,
		log: log,
	}
}

// DialBackend создаёт gRPC-коннект к бэкенду, если задан адрес.
// Цепочка: metadata -> logging -> prometheus -> session -> timeout.
// timeout стоит после session, поэтому ограничивает каждую попытку.
func (c *Clients) DialBackend(coord *gateway.Coordinator) error {
	const op = "internal/clients/DialBackend"

	addr := c.cfg.Backend.GRPCAddr
	if addr == "" {
		return nil
	}

	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			interceptors.ClientWithMetadata(userAgent),
			interceptors.ClientUnaryLoggingInterceptor(c.log),
			grpc_prometheus.UnaryClientInterceptor,
			interceptors.ClientWithSession(coord),
			interceptors.ClientWithTimeout(c.cfg.Timeouts.Service),
		),
	)
	if err != nil {
		return fmt.Errorf("%s: backend dial: %w", op, err)
	}

	c.conn = conn
	c.Health = healthpb.NewHealthClient(conn)

	return nil
}

// Ready сообщает, не развалился ли gRPC-коннект. Без gRPC — всегда true.
// Сессию не трогает: готовность шлюза не зависит от входа пользователя.
func (c *Clients) Ready() bool {
	if c.conn == nil {
		return true
	}

	switch c.conn.GetState() {
	case connectivity.Shutdown, connectivity.TransientFailure:
		return false
	default:
		return true
	}
}

// CheckBackend проверяет gRPC health бэкенда от имени текущей сессии.
func (c *Clients) CheckBackend(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	const op = "internal/clients/CheckBackend"

	if c.Health == nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("%s: %w", op, ErrNoGRPCBackend)
	}

	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("%s: %w", op, err)
	}

	return resp.GetStatus(), nil
}

// Close закрывает gRPC-коннект.
func (c *Clients) Close() error {
	if c.conn == nil {
		return nil
	}

	return c.conn.Close()
}
