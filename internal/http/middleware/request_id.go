package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
)

// HeaderRequestID — заголовок корреляции; его же шлюз пробрасывает в бэкенд
// и identity-сервис.
const HeaderRequestID = "X-Request-Id"

// maxRequestIDLen — чужой id длиннее считается мусором и заменяется.
const maxRequestIDLen = 128

// RequestID обеспечивает наличие X-Request-Id:
//  1. берёт входящий заголовок, если он непустой и разумной длины;
//  2. иначе генерирует UUIDv4;
//  3. кладёт id в заголовки ответа и запроса и в контекст по ключу
//     interceptors.CtxRequestID (его читают исполнители и errors.WriteError).
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}

			w.Header().Set(HeaderRequestID, id)
			ctx := context.WithValue(r.Context(), interceptors.CtxRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
