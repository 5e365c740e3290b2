// log прокладывает request-scoped *slog.Logger через context.Context.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает slog.Default()).
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	return slog.Default()
}

// With обогащает логгер из контекста атрибутами и кладёт результат обратно.
func With(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}

	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}

	return Into(ctx, From(ctx).With(args...))
}
