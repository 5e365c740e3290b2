package main

import (
	"context"
	"fmt"

	"github.com/pribylovaa/research-gateway/internal/config"
	"github.com/pribylovaa/research-gateway/internal/storage"
	"github.com/pribylovaa/research-gateway/internal/storage/file"
	"github.com/pribylovaa/research-gateway/internal/storage/postgres"
	"github.com/pribylovaa/research-gateway/internal/storage/redis"
)

// openPersister выбирает хранилище credential «at rest» по session.persist.
// memory — без персистентности (nil). Возвращаемый close безопасно вызывать всегда.
func openPersister(ctx context.Context, cfg config.SessionConfig) (storage.Persister, func(), error) {
	const op = "main.openPersister"

	switch cfg.Persist {
	case config.PersistFile:
		s, err := file.New(cfg.FilePath)
		if err != nil {
			return nil, func() {}, fmt.Errorf("%s: %w", op, err)
		}
		return s, func() {}, nil

	case config.PersistRedis:
		s, err := redis.New(ctx, cfg.RedisURL, cfg.Key)
		if err != nil {
			return nil, func() {}, fmt.Errorf("%s: %w", op, err)
		}
		return s, func() { _ = s.Close() }, nil

	case config.PersistPostgres:
		s, err := postgres.New(ctx, cfg.PostgresURL, cfg.Key)
		if err != nil {
			return nil, func() {}, fmt.Errorf("%s: %w", op, err)
		}
		return s, s.Close, nil

	default:
		return nil, func() {}, nil
	}
}
