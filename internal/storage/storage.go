// storage задаёт контракт хранения закодированного credential «at rest».
// Реализации: file, redis, postgres. Значение для хранилища непрозрачно:
// кодирование выполняет пакет credentials.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound — сохранённого credential нет.
	ErrNotFound = errors.New("not found")
)

// Persister сохраняет и восстанавливает закодированный credential.
type Persister interface {
	// Load возвращает сохранённое значение или ErrNotFound.
	Load(ctx context.Context) ([]byte, error)
	// Save атомарно заменяет сохранённое значение.
	Save(ctx context.Context, data []byte) error
	// Delete удаляет значение; отсутствие значения ошибкой не считается.
	Delete(ctx context.Context) error
}
