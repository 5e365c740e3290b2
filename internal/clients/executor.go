package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	"github.com/pribylovaa/research-gateway/internal/models"
)

var (
	// ErrBodyTooLarge — ответ бэкенда больше допустимого.
	ErrBodyTooLarge = errors.New("upstream body too large")
	// ErrNoGRPCBackend — gRPC-адрес бэкенда не настроен.
	ErrNoGRPCBackend = errors.New("grpc backend is not configured")
)

// Коды ошибок в теле ответа, означающие протухший/невалидный access-токен.
var authExpiredCodes = map[string]struct{}{
	"unauthenticated": {},
	"token_expired":   {},
	"invalid_token":   {},
}

// Заголовки, которые не пробрасываются в бэкенд из Attempt.Header.
var hopHeaders = []string{"Authorization", "Cookie", "Connection", "Keep-Alive", "Te", "Trailer", "Transfer-Encoding", "Upgrade"}

// HTTPExecutor — gateway.Executor поверх REST-бэкенда.
// Один Execute — ровно один HTTP-запрос, без повторов.
type HTTPExecutor struct {
	httpClient *http.Client
	baseURL    string
	maxBody    int64
	timeout    time.Duration
	userAgent  string
}

// ExecutorOption настраивает HTTPExecutor.
type ExecutorOption func(*HTTPExecutor)

func WithExecutorHTTPClient(hc *http.Client) ExecutorOption {
	return func(e *HTTPExecutor) {
		if hc != nil {
			e.httpClient = hc
		}
	}
}

// WithMaxBody ограничивает размер читаемого ответа; <=0 — 10 MiB.
func WithMaxBody(n int64) ExecutorOption {
	return func(e *HTTPExecutor) {
		if n > 0 {
			e.maxBody = n
		}
	}
}

// WithAttemptTimeout ограничивает каждую попытку, если у ctx нет дедлайна.
func WithAttemptTimeout(d time.Duration) ExecutorOption {
	return func(e *HTTPExecutor) { e.timeout = d }
}

func WithExecutorUserAgent(ua string) ExecutorOption {
	return func(e *HTTPExecutor) { e.userAgent = ua }
}

func NewHTTPExecutor(baseURL string, opts ...ExecutorOption) *HTTPExecutor {
	e := &HTTPExecutor{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxBody:    10 << 20,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *HTTPExecutor) Execute(ctx context.Context, a gateway.Attempt) gateway.Result {
	ctx, cancel := interceptors.WithTimeout(ctx, e.timeout)
	defer cancel()

	method := a.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(a.Body) > 0 {
		body = bytes.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+a.Endpoint, body)
	if err != nil {
		return gateway.Failure(&gateway.UpstreamError{Err: err})
	}

	for k, vv := range a.Header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	if rid := interceptors.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return gateway.Failure(&gateway.UpstreamError{Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, e.maxBody))
		return gateway.AuthExpired()
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return gateway.Failure(&gateway.UpstreamError{Status: resp.StatusCode, Err: err})
	}
	if int64(len(raw)) > e.maxBody {
		return gateway.Failure(&gateway.UpstreamError{Status: resp.StatusCode, Err: ErrBodyTooLarge})
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return gateway.Success(&gateway.Response{
			Status: resp.StatusCode,
			Header: resp.Header.Clone(),
			Body:   raw,
		})
	}

	if hasAuthExpiredMarker(raw) {
		return gateway.AuthExpired()
	}

	return gateway.Failure(&gateway.UpstreamError{Status: resp.StatusCode, Body: raw})
}

func hasAuthExpiredMarker(body []byte) bool {
	if len(body) == 0 {
		return false
	}

	var eb models.UpstreamErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return false
	}

	_, ok := authExpiredCodes[strings.ToLower(eb.ErrorCode())]
	return ok
}

var _ gateway.Executor = (*HTTPExecutor)(nil)
