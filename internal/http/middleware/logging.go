package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
	logctx "github.com/pribylovaa/research-gateway/internal/pkg/log"
)

// Logging кладёт в контекст request-scoped логгер (с request_id) и пишет
// одну запись "http" на запрос. Уровень по статусу: 5xx — Error,
// 4xx — Warn, остальное — Info.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			rid := interceptors.RequestID(r.Context())
			if rid == "" {
				rid = r.Header.Get(HeaderRequestID)
			}
			if rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			r = r.WithContext(logctx.Into(r.Context(), reqLogger))

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			lvl := slog.LevelInfo
			switch {
			case status >= 500:
				lvl = slog.LevelError
			case status >= 400:
				lvl = slog.LevelWarn
			}

			reqLogger.LogAttrs(r.Context(), lvl, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			)
		})
	}
}
