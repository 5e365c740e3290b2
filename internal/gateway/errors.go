package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrLoggedOut — терминальный исход: сессии нет или обновить её не удалось.
	// Вызывающий слой должен снести состояние сессии и отправить на вход.
	ErrLoggedOut = errors.New("logged out")

	// ErrUnauthorizedAfterRefresh — повтор после успешного обновления снова
	// получил 401. Второй refresh не запускается, сессия сохраняется.
	ErrUnauthorizedAfterRefresh = errors.New("unauthorized after refresh")

	// ErrIncompleteCredential — попытка установить credential без одного из токенов.
	ErrIncompleteCredential = errors.New("incomplete credential")
)

// UpstreamError — «прочая ошибка» вызова бэкенда.
// Status == 0 означает транспортную ошибку (ответа не было).
type UpstreamError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream transport error: %v", e.Err)
	}

	if e.Err != nil {
		return fmt.Sprintf("upstream status %d: %v", e.Status, e.Err)
	}

	return fmt.Sprintf("upstream status %d %s", e.Status, http.StatusText(e.Status))
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// loggedOut оборачивает причину терминального выхода, сохраняя errors.Is(err, ErrLoggedOut).
func loggedOut(cause error) error {
	if cause == nil || errors.Is(cause, ErrLoggedOut) {
		return ErrLoggedOut
	}

	return fmt.Errorf("%w: %w", ErrLoggedOut, cause)
}
