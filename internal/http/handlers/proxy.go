package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/research-gateway/internal/errors"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	logctx "github.com/pribylovaa/research-gateway/internal/pkg/log"
)

// Заголовки запроса, которые уходят в бэкенд.
var forwardRequestHeaders = []string{"Accept", "Accept-Language", "Content-Type", "If-None-Match", "If-Modified-Since"}

// Заголовки ответа бэкенда, которые отдаются клиенту.
var forwardResponseHeaders = []string{"Cache-Control", "Content-Type", "ETag", "Last-Modified", "Location"}

// Proxy пробрасывает /api/* в бэкенд через координатор: токен
// прикладывается шлюзом, протухший обновляется, запрос повторяется.
// Остаток пути после /api — endpoint бэкенда, query сохраняется.
func (h *Handlers) Proxy(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	endpoint := "/" + chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		endpoint += "?" + r.URL.RawQuery
	}

	a := gateway.Attempt{
		Endpoint: endpoint,
		Method:   r.Method,
		Body:     body,
		Header:   make(http.Header),
	}
	for _, k := range forwardRequestHeaders {
		for _, v := range r.Header.Values(k) {
			a.Header.Add(k, v)
		}
	}

	// endpoint попадает во все записи координатора по этому запросу,
	// включая обмен токена, если его запустил именно этот вызов.
	ctx := logctx.With(r.Context(), slog.String("endpoint", a.Endpoint))

	resp, err := h.session.Do(ctx, a, nil)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	for _, k := range forwardResponseHeaders {
		for _, v := range resp.Header.Values(k) {
			w.Header().Add(k, v)
		}
	}

	code := resp.Status
	if code == 0 {
		code = http.StatusOK
	}

	w.WriteHeader(code)
	_, _ = w.Write(resp.Body)
}
