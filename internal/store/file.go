package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
)

// FileStore keeps the snapshot in a single JSON file.
type FileStore struct {
	path string
	log  *zap.Logger
}

// NewFileStore creates a file backed store for path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, log: logger.Named("file_store")}
}

// Path returns the snapshot location.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the snapshot. A missing file yields
// ErrSnapshotNotFound.
func (s *FileStore) Load(ctx context.Context) (*schemas.MemorySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	var snap schemas.MemorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.path, err)
	}
	return &snap, nil
}

// Save encodes the snapshot and replaces the file atomically.
func (s *FileStore) Save(ctx context.Context, snap *schemas.MemorySnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}
	s.log.Debug("Snapshot saved",
		zap.String("path", s.path),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)))
	return nil
}

// Close is a no-op for files.
func (s *FileStore) Close() {}

// LoadPatterns reads a template file. A missing file yields
// ErrPatternsNotFound.
func LoadPatterns(path string) (schemas.PatternSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrPatternsNotFound
		}
		return nil, fmt.Errorf("failed to read patterns %s: %w", path, err)
	}
	var ps schemas.PatternSet
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to decode patterns %s: %w", path, err)
	}
	if ps == nil {
		ps = schemas.PatternSet{}
	}
	return ps, nil
}

// SavePatterns writes a template file atomically.
func SavePatterns(path string, ps schemas.PatternSet) error {
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode patterns: %w", err)
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
