package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithTimeout навешивает таймаут d, если у ctx ещё нет дедлайна.
// d <= 0 или существующий дедлайн — ctx возвращается как есть (cancel — no-op).
// Используется и gRPC-цепочкой, и HTTP-исполнителем.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}

// ClientWithTimeout — unary-интерсептор поверх WithTimeout. В цепочке стоит
// после ClientWithSession, поэтому ограничивает каждую попытку отдельно.
func ClientWithTimeout(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		cctx, cancel := WithTimeout(ctx, d)
		defer cancel()

		return invoker(cctx, method, req, reply, cc, opts...)
	}
}
