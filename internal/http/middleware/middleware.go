package middleware

import (
	"net/http"
)

// Middleware — стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// Chain применяет мидлвары к обработчику в порядке их перечисления:
// первый в списке — самый внешний.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}

// statusWriter перехватывает статус и размер ответа.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(p)
	w.count += n
	return n, err
}

// Unwrap открывает исходный writer для http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
