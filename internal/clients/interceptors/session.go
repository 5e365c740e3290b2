package interceptors

import (
	"context"

	"github.com/pribylovaa/research-gateway/internal/gateway"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ClientWithSession проводит unary-вызов через gateway.Coordinator:
// текущий access-токен уходит в authorization, codes.Unauthenticated
// запускает общий цикл обновления и однократный повтор.
//
// Ошибки:
//   - статус апстрима возвращается как есть;
//   - терминальный выход — ошибка, удовлетворяющая errors.Is(err, gateway.ErrLoggedOut);
//   - повтор снова Unauthenticated — *gateway.UpstreamError с gateway.ErrUnauthorizedAfterRefresh.
func ClientWithSession(coord *gateway.Coordinator) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		exec := gateway.ExecutorFunc(func(ctx context.Context, a gateway.Attempt) gateway.Result {
			if a.Token != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+a.Token)
			}

			err := invoker(ctx, method, req, reply, cc, opts...)
			switch status.Code(err) {
			case codes.OK:
				return gateway.Success(nil)
			case codes.Unauthenticated:
				return gateway.AuthExpired()
			default:
				return gateway.Failure(err)
			}
		})

		_, err := coord.Do(ctx, gateway.Attempt{Endpoint: method, Method: "grpc"}, exec)
		return err
	}
}
