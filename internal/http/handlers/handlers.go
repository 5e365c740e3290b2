package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pribylovaa/research-gateway/internal/credentials"
	apierrors "github.com/pribylovaa/research-gateway/internal/errors"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// defaultMaxBody — предел тела входящего запроса.
const defaultMaxBody = 10 << 20

// Authenticator — вход пользователя в identity-сервисе.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (credentials.Credential, string, error)
}

// Session — то, что хендлерам нужно от координатора.
type Session interface {
	Do(ctx context.Context, a gateway.Attempt, exec gateway.Executor) (*gateway.Response, error)
	Establish(cred credentials.Credential) error
	Logout(ctx context.Context) bool
	Session() (time.Time, bool)
	State() gateway.State
}

// BackendProber — gRPC health бэкенда через аутентифицированную цепочку.
type BackendProber interface {
	CheckBackend(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error)
}

// Handlers агрегирует зависимости REST-поверхности шлюза.
type Handlers struct {
	session Session
	auth    Authenticator
	backend BackendProber
	maxBody int64
}

// New собирает хендлеры. backend может быть nil: тогда /session/backend
// отвечает 501. maxBody <= 0 — 10 MiB.
func New(session Session, auth Authenticator, backend BackendProber, maxBody int64) *Handlers {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	return &Handlers{
		session: session,
		auth:    auth,
		backend: backend,
		maxBody: maxBody,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: неизвестные поля и хвост запрещены.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", apierrors.ErrInvalidRequest)
	}

	return nil
}

// readBody вычитывает тело целиком в пределах maxBody: повтор после
// обновления должен отправить те же байты.
func (h *Handlers) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body too large", apierrors.ErrInvalidRequest)
		}
		return nil, err
	}

	return raw, nil
}
