package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/research-gateway/internal/http/handlers"
	"github.com/pribylovaa/research-gateway/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// APIKey закрывает /session и /api; пустой — без проверки.
	APIKey string
	// BasePath, например "/v1"; пустой — роуты регистрируются на корне.
	BasePath string
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// Служебные /livez, /healthz, /metrics живут на отдельном сервере.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),          // X-Request-Id до логирования
		middleware.Logging(opts.Logger), // request-scoped логгер и запись "http"
		middleware.Recover(),            // паника -> 500, в лог через логгер запроса
		middleware.APIKey(opts.APIKey),
		middleware.Timeout(opts.Timeout), // общий дедлайн, включая ожидание refresh
	)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// session
	r.Post("/session/login", h.Login)
	r.Post("/session/logout", h.Logout)
	r.Get("/session", h.GetSession)
	r.Get("/session/backend", h.BackendHealth)

	// backend proxy
	r.Handle("/api/*", http.HandlerFunc(h.Proxy))
}
