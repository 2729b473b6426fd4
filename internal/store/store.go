// Package store persists graph snapshots and response templates.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrSnapshotNotFound is returned by Load when nothing was saved yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrPatternsNotFound is returned by LoadPatterns when the file is absent.
	ErrPatternsNotFound = errors.New("patterns file not found")
)

// SnapshotStore saves and loads whole-graph snapshots.
type SnapshotStore interface {
	Load(ctx context.Context) (*schemas.MemorySnapshot, error)
	Save(ctx context.Context, snap *schemas.MemorySnapshot) error
	Close()
}

// Open returns the snapshot backend selected by cfg. The file backend writes
// to memoryPath.
func Open(ctx context.Context, cfg config.StoreConfig, memoryPath string, logger *zap.Logger) (SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case "", "file":
		return NewFileStore(memoryPath, logger), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		s, err := NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		s.closer = pool.Close
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store type '%s'", cfg.Type)
	}
}
