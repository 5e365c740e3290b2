package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/research-gateway/internal/storage"
)

// Storage хранит значение под одним ключом Redis без TTL:
// срок жизни сессии определяет identity-сервис, а не хранилище.
type Storage struct {
	rdb *redis.Client
	key string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если key пустой — используется "gateway:session".
func New(ctx context.Context, redisURL, key string) (*Storage, error) {
	const op = "storage.redis.New"

	if key == "" {
		key = "gateway:session"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{rdb: rdb, key: key}, nil
}

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	const op = "storage.redis.Load"

	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	const op = "storage.redis.Save"

	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context) error {
	const op = "storage.redis.Delete"

	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (s *Storage) Close() error { return s.rdb.Close() }

// Проверка на соответствие интерфейсу Persister.
var _ storage.Persister = (*Storage)(nil)
