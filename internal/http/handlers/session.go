package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/research-gateway/internal/clients"
	apierrors "github.com/pribylovaa/research-gateway/internal/errors"
	"github.com/pribylovaa/research-gateway/internal/models"
	logctx "github.com/pribylovaa/research-gateway/internal/pkg/log"
	"github.com/pribylovaa/research-gateway/internal/pkg/redact"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Login — вход через identity-сервис; пара токенов остаётся в шлюзе,
// наружу уходит только статус сессии.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Login"

	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	cred, userID, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		logctx.From(r.Context()).Warn("login_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(in.Email)),
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.session.Establish(cred); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	logctx.From(r.Context()).Info("session_established",
		slog.String("op", op),
		slog.String("email", redact.Email(in.Email)),
		slog.String("user_id", userID),
	)

	out := h.sessionResponse()
	out.UserID = userID
	writeJSON(w, http.StatusOK, out)
}

// Logout идемпотентен: повторный вызов тоже 204.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if h.session.Logout(r.Context()) {
		logctx.From(r.Context()).Info("session_closed", slog.String("op", "handlers.Logout"))
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSession — статус сессии без токенов.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionResponse())
}

// BackendHealth проверяет gRPC health бэкенда от имени сессии: вызов идёт
// через ту же цепочку, что и обычные запросы, с обновлением токена.
func (h *Handlers) BackendHealth(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")

	if h.backend == nil {
		apierrors.WriteError(w, r, status.Error(codes.Unimplemented, "grpc backend is not configured"))
		return
	}

	st, err := h.backend.CheckBackend(r.Context(), service)
	if err != nil {
		if errors.Is(err, clients.ErrNoGRPCBackend) {
			err = status.Error(codes.Unimplemented, "grpc backend is not configured")
		}
		apierrors.WriteError(w, r, err)
		return
	}

	code := http.StatusOK
	if st != healthpb.HealthCheckResponse_SERVING {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, models.BackendHealthResponse{Service: service, Status: st.String()})
}

func (h *Handlers) sessionResponse() models.SessionResponse {
	exp, ok := h.session.Session()

	out := models.SessionResponse{
		Authenticated: ok,
		State:         h.session.State().String(),
	}
	if ok && !exp.IsZero() {
		out.ExpiresAt = exp.Unix()
	}

	return out
}
