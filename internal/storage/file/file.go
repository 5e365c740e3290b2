package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pribylovaa/research-gateway/internal/storage"
)

// Storage хранит значение в одном файле. Запись атомарна:
// временный файл в том же каталоге, fsync, rename.
type Storage struct {
	path string
}

// New готовит каталог под файл (0700).
func New(path string) (*Storage, error) {
	const op = "storage.file.New"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{path: path}, nil
}

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	const op = "storage.file.Load"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	const op = "storage.file.Save"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		return fail(err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context) error {
	const op = "storage.file.Delete"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Проверка на соответствие интерфейсу Persister.
var _ storage.Persister = (*Storage)(nil)
