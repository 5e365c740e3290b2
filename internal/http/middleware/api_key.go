package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/research-gateway/internal/errors"
)

// HeaderAPIKey — заголовок ключа доступа к шлюзу.
const HeaderAPIKey = "X-Api-Key"

// APIKey закрывает шлюз статическим ключом: X-Api-Key или
// "Authorization: Bearer <key>". Пустой key делает мидлвар no-op.
// Сравнение за постоянное время.
func APIKey(key string) Middleware {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}

		want := []byte(key)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderAPIKey)
			if got == "" {
				const prefix = "Bearer "
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, prefix) {
					got = strings.TrimSpace(auth[len(prefix):])
				}
			}

			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				apierrors.WriteError(w, r, apierrors.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
