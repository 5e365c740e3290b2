package gateway

import (
	"context"
	"net/http"
)

// Kind — тег результата одного исходящего вызова.
type Kind int

const (
	// KindSuccess — бэкенд ответил 2xx.
	KindSuccess Kind = iota
	// KindAuthExpired — бэкенд отверг токен (401 или маркер в теле).
	KindAuthExpired
	// KindFailure — любая иная ошибка (не-2xx, транспорт).
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAuthExpired:
		return "auth_expired"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Attempt — одна попытка вызова бэкенда.
// Token выставляет Coordinator перед каждым исполнением;
// Retried помечает повтор после обновления и запрещает второй цикл refresh.
type Attempt struct {
	Endpoint string
	Method   string
	Body     []byte
	Header   http.Header

	Token   string
	Retried bool
}

// Response — успешный ответ бэкенда.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Result — нормализованный результат исполнения Attempt.
// Для KindFailure Err содержит детали (обычно *UpstreamError).
type Result struct {
	Kind     Kind
	Response *Response
	Err      error
}

// Success конструирует успешный результат.
func Success(resp *Response) Result { return Result{Kind: KindSuccess, Response: resp} }

// AuthExpired конструирует результат «токен отвергнут».
func AuthExpired() Result { return Result{Kind: KindAuthExpired} }

// Failure конструирует результат «прочая ошибка».
func Failure(err error) Result { return Result{Kind: KindFailure, Err: err} }

// Executor выполняет ровно один сетевой вызов, прикладывая Attempt.Token
// как bearer. Повторов внутри нет: ими управляет Coordinator.
type Executor interface {
	Execute(ctx context.Context, a Attempt) Result
}

// ExecutorFunc адаптирует функцию к Executor.
type ExecutorFunc func(ctx context.Context, a Attempt) Result

func (f ExecutorFunc) Execute(ctx context.Context, a Attempt) Result { return f(ctx, a) }
