package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pribylovaa/research-gateway/internal/storage"
)

// Storage хранит значение строкой таблицы gateway_sessions
// (migrations/1_init_gateway_sessions.up.sql).
type Storage struct {
	db  *pgxpool.Pool
	key string
}

// New создает новое подключение к PostgreSQL.
func New(ctx context.Context, dbURL, key string) (*Storage, error) {
	const op = "storage.postgres.New"

	if key == "" {
		key = "gateway:session"
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db, key: key}, nil
}

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	const op = "storage.postgres.Load"

	query := `
        SELECT payload
        FROM gateway_sessions
        WHERE key = $1
    `

	var data []byte
	if err := s.db.QueryRow(ctx, query, s.key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	const op = "storage.postgres.Save"

	query := `
        INSERT INTO gateway_sessions(key, payload, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE
        SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
    `

	if _, err := s.db.Exec(ctx, query, s.key, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context) error {
	const op = "storage.postgres.Delete"

	if _, err := s.db.Exec(ctx, `DELETE FROM gateway_sessions WHERE key = $1`, s.key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// Проверка на соответствие интерфейсу Persister.
var _ storage.Persister = (*Storage)(nil)
