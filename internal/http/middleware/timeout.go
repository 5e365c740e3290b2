package middleware

import (
	"net/http"
	"time"

	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
)

// Timeout навешивает deadline на запрос, если его ещё нет.
// Значение <=0 делает мидлвар no-op. Дедлайн запроса покрывает и ожидание
// обмена refresh-токена, и повтор.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := interceptors.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
