package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
)

// DBPool abstracts pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	tableNodes = "genesis_nodes"
	tableEdges = "genesis_edges"
	tableMeta  = "genesis_meta"
)

var (
	nodeColumns = []string{"position", "id", "kind", "layer", "record"}
	edgeColumns = []string{"position", "id", "from_node", "to_node", "kind", "weight", "record"}
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS genesis_nodes (
        position INTEGER NOT NULL,
        id TEXT PRIMARY KEY,
        kind TEXT NOT NULL,
        layer TEXT NOT NULL,
        record JSONB NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS genesis_edges (
        position INTEGER NOT NULL,
        id TEXT PRIMARY KEY,
        from_node TEXT NOT NULL,
        to_node TEXT NOT NULL,
        kind TEXT NOT NULL,
        weight DOUBLE PRECISION NOT NULL,
        record JSONB NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS genesis_meta (
        id INTEGER PRIMARY KEY,
        saved_at TIMESTAMPTZ NOT NULL
    )`,
}

const (
	sqlUpsertMeta = `
        INSERT INTO genesis_meta (id, saved_at)
        VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET saved_at = EXCLUDED.saved_at;
    `
	sqlSelectMeta  = `SELECT saved_at FROM genesis_meta WHERE id = 1;`
	sqlSelectNodes = `SELECT id, record FROM genesis_nodes ORDER BY position ASC;`
	sqlSelectEdges = `SELECT id, record FROM genesis_edges ORDER BY position ASC;`
)

// PostgresStore keeps the snapshot in three tables. Every save replaces the
// previous snapshot inside a single transaction.
type PostgresStore struct {
	pool   DBPool
	log    *zap.Logger
	closer func()
}

// NewPostgresStore creates a store and verifies the connection.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, log: logger.Named("postgres_store")}, nil
}

// EnsureSchema creates the snapshot tables when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored snapshot.
func (s *PostgresStore) Save(ctx context.Context, snap *schemas.MemorySnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	nodeRows, err := encodeNodes(snap.Nodes)
	if err != nil {
		return err
	}
	edgeRows, err := encodeEdges(snap.Edges)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM "+tableEdges+";"); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM "+tableNodes+";"); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}
	if err := copyRows(ctx, tx, tableNodes, nodeColumns, nodeRows); err != nil {
		return err
	}
	if err := copyRows(ctx, tx, tableEdges, edgeColumns, edgeRows); err != nil {
		return err
	}

	savedAt := snap.Meta.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	if _, err := tx.Exec(ctx, sqlUpsertMeta, savedAt.UTC()); err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Snapshot saved", zap.Int("nodes", len(nodeRows)), zap.Int("edges", len(edgeRows)))
	return nil
}

func copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("mismatch in copied %s count: expected %d, got %d", table, len(rows), n)
	}
	return nil
}

func encodeNodes(entries []schemas.NodeEntry) ([][]any, error) {
	rows := make([][]any, 0, len(entries))
	for i, e := range entries {
		if e.Node == nil {
			return nil, fmt.Errorf("node entry '%s' has no record", e.ID)
		}
		record, err := json.Marshal(e.Node)
		if err != nil {
			return nil, fmt.Errorf("failed to encode node '%s': %w", e.ID, err)
		}
		rows = append(rows, []any{i, e.ID, string(e.Node.Kind), string(e.Node.Layer), string(record)})
	}
	return rows, nil
}

func encodeEdges(entries []schemas.EdgeEntry) ([][]any, error) {
	rows := make([][]any, 0, len(entries))
	for i, e := range entries {
		if e.Edge == nil {
			return nil, fmt.Errorf("edge entry '%s' has no record", e.ID)
		}
		record, err := json.Marshal(e.Edge)
		if err != nil {
			return nil, fmt.Errorf("failed to encode edge '%s': %w", e.ID, err)
		}
		rows = append(rows, []any{i, e.ID, e.Edge.From, e.Edge.To, string(e.Edge.Kind), e.Edge.Weight, string(record)})
	}
	return rows, nil
}

// Load reads the stored snapshot. ErrSnapshotNotFound is returned when no
// snapshot was ever saved.
func (s *PostgresStore) Load(ctx context.Context) (*schemas.MemorySnapshot, error) {
	rows, err := s.pool.Query(ctx, sqlSelectMeta)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot metadata: %w", err)
	}
	var savedAt time.Time
	found := false
	for rows.Next() {
		if err := rows.Scan(&savedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan snapshot metadata: %w", err)
		}
		found = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during metadata iteration: %w", err)
	}
	if !found {
		return nil, ErrSnapshotNotFound
	}

	snap := &schemas.MemorySnapshot{Meta: schemas.SnapshotMeta{SavedAt: savedAt}}

	err = s.scanRecords(ctx, sqlSelectNodes, func(id string, record []byte) error {
		node := &schemas.Node{}
		if err := json.Unmarshal(record, node); err != nil {
			return fmt.Errorf("invalid node record '%s': %w", id, err)
		}
		snap.Nodes = append(snap.Nodes, schemas.NodeEntry{ID: id, Node: node})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.scanRecords(ctx, sqlSelectEdges, func(id string, record []byte) error {
		edge := &schemas.Edge{}
		if err := json.Unmarshal(record, edge); err != nil {
			return fmt.Errorf("invalid edge record '%s': %w", id, err)
		}
		snap.Edges = append(snap.Edges, schemas.EdgeEntry{ID: id, Edge: edge})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresStore) scanRecords(ctx context.Context, query string, fn func(id string, record []byte) error) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query snapshot records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     string
			record []byte
		)
		if err := rows.Scan(&id, &record); err != nil {
			return fmt.Errorf("failed to scan snapshot record: %w", err)
		}
		if err := fn(id, record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during row iteration: %w", err)
	}
	return nil
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() {
	if s.closer != nil {
		s.closer()
	}
}
