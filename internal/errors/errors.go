// errors стандартизирует ответы об ошибках HTTP-слоя шлюза.
// На вход принимает ошибку координатора, identity-клиента, бэкенда
// (HTTP или gRPC-статус), а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Код "logged_out" — сигнал фронту: сессии больше нет, нужен вход.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	"github.com/pribylovaa/research-gateway/internal/identity"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrInvalidRequest — тело запроса к шлюзу не прошло разбор/валидацию.
	ErrInvalidRequest = stderrors.New("invalid request")
	// ErrUnauthorized — запрос к шлюзу без валидного API-ключа.
	ErrUnauthorized = stderrors.New("unauthorized")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — из контекста запроса или X-Request-Id (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Порядок важен: ErrLoggedOut оборачивает причину провала обмена
// (в том числе транспортную), поэтому проверяется раньше остальных.
//   - nil — программная ошибка вызова: 500/internal;
//   - gateway.ErrLoggedOut — 401/logged_out;
//   - gateway.ErrUnauthorizedAfterRefresh — 401/unauthenticated, сессия жива;
//   - identity.ErrRejected — 401/invalid_credentials (вход);
//   - *gateway.UpstreamError — статус бэкенда, Status == 0 — 502;
//   - отмена/дедлайн контекста — 499/504;
//   - gRPC-статус — baseFromGRPC();
//   - прочее — 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	httpStatus, code, msg := classify(err)

	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	rid := interceptors.RequestID(r.Context())
	if rid == "" {
		rid = r.Header.Get("X-Request-Id")
	}
	resp.Error.RequestID = rid

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "internal error"
	}

	switch {
	case stderrors.Is(err, gateway.ErrLoggedOut):
		return http.StatusUnauthorized, "logged_out", "session expired, please log in again"
	case stderrors.Is(err, gateway.ErrUnauthorizedAfterRefresh):
		return http.StatusUnauthorized, "unauthenticated", "backend rejected refreshed credentials"
	case stderrors.Is(err, identity.ErrRejected):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials"
	case stderrors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "unauthorized"
	case stderrors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, gateway.ErrIncompleteCredential),
		stderrors.Is(err, identity.ErrBadResponse),
		stderrors.Is(err, identity.ErrUnexpectedStatus):
		return http.StatusBadGateway, "bad_gateway", "identity service error"
	}

	var ue *gateway.UpstreamError
	if stderrors.As(err, &ue) {
		if ue.Status == 0 {
			if st, ok := status.FromError(ue.Err); ok && st.Code() != codes.Unknown {
				return baseFromGRPC(st.Code())
			}
			return http.StatusBadGateway, "bad_gateway", "upstream unavailable"
		}
		return baseFromHTTP(ue.Status)
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	}

	if st, ok := status.FromError(err); ok {
		return baseFromGRPC(st.Code())
	}

	return http.StatusInternalServerError, "internal", "internal error"
}

// baseFromHTTP — статус бэкенда сохраняется, код и сообщение безопасные.
// 5xx бэкенда для фронта — 502: сам шлюз исправен.
func baseFromHTTP(s int) (int, string, string) {
	switch {
	case s == http.StatusBadRequest:
		return s, "invalid_argument", "invalid argument"
	case s == http.StatusUnauthorized:
		return s, "unauthenticated", "unauthenticated"
	case s == http.StatusForbidden:
		return s, "permission_denied", "permission denied"
	case s == http.StatusNotFound:
		return s, "not_found", "not found"
	case s == http.StatusConflict:
		return s, "conflict", "conflict"
	case s == http.StatusTooManyRequests:
		return s, "resource_exhausted", "resource exhausted"
	case s >= 400 && s < 500:
		return s, "upstream_rejected", "request rejected by upstream"
	default:
		return http.StatusBadGateway, "bad_gateway", "upstream error"
	}
}

// baseFromGRPC — базовый маппинг gRPC -> HTTP/FE-код/сообщение.
//   - InvalidArgument -> 400
//   - NotFound -> 404
//   - AlreadyExists -> 409
//   - FailedPrecondition -> 412
//   - Unauthenticated -> 401
//   - PermissionDenied -> 403
//   - ResourceExhausted -> 429
//   - Aborted -> 409
//   - Canceled -> 499
//   - DeadlineExceeded -> 504
//   - Unavailable -> 503
//   - Unimplemented -> 501
//   - прочее -> 500/internal
func baseFromGRPC(c codes.Code) (int, string, string) {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case codes.NotFound:
		return http.StatusNotFound, "not_found", "not found"
	case codes.AlreadyExists:
		return http.StatusConflict, "already_exists", "already exists"
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed, "failed_precondition", "failed precondition"
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case codes.Aborted:
		return http.StatusConflict, "aborted", "aborted"
	case codes.Canceled:
		return StatusClientClosedRequest, "canceled", "canceled"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "unimplemented", "unimplemented"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
