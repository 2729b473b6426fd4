package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
	"github.com/baihaki00/sentra-sub000/internal/knowledgegraph"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func sampleGraph(t *testing.T) *knowledgegraph.Graph {
	t.Helper()
	g := knowledgegraph.New(knowledgegraph.DefaultOptions(), nil)
	g.SetClock(func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) })
	g.AddSystemNode(schemas.IntentGreeting, schemas.NodeIntent, &schemas.IntentPayload{Label: "greeting"}, schemas.LayerMeta)
	g.AddEdge("hello", schemas.IntentGreeting, schemas.RelTriggers, 1)
	g.AddEdge("hello", schemas.IntentGreeting, schemas.RelTriggers, 1)
	g.AddEdge("tea", "boil water", schemas.RelRequires, 0.37)
	g.AssertBelief("tea is hot", 0.8, "user")
	g.Activate("tea", 2.5)
	return g
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "memory.json")
	s := NewFileStore(path, zap.NewNop())

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	src := sampleGraph(t)
	require.NoError(t, s.Save(ctx, src.Export()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")

	snap, err := s.Load(ctx)
	require.NoError(t, err)

	dst := knowledgegraph.New(knowledgegraph.DefaultOptions(), nil)
	require.NoError(t, dst.Import(snap))

	srcNodes, srcEdges := src.Len()
	dstNodes, dstEdges := dst.Len()
	assert.Equal(t, srcNodes, dstNodes)
	assert.Equal(t, srcEdges, dstEdges)
	for _, e := range src.Edges() {
		got, ok := dst.GetEdge(e.From, e.Kind, e.To)
		require.True(t, ok, e.ID())
		assert.Equal(t, e.Weight, got.Weight, e.ID())
		assert.Equal(t, e.Uses, got.Uses, e.ID())
	}
	belief, ok := dst.Belief(knowledgegraph.BeliefID("tea is hot"))
	require.True(t, ok)
	assert.Equal(t, 0.8, belief.Confidence)
	assert.Equal(t, 2.5, dst.Activation("tea"))
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": [["a"`), 0o644))

	_, err := NewFileStore(path, nil).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFileStore(filepath.Join(t.TempDir(), "memory.json"), nil)
	assert.ErrorIs(t, s.Save(ctx, &schemas.MemorySnapshot{}), context.Canceled)
}

func TestPatterns_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	_, err := LoadPatterns(path)
	assert.ErrorIs(t, err, ErrPatternsNotFound)

	ps := schemas.PatternSet{
		schemas.IntentGreeting: {{Template: "Hello ${REF1}", Weight: 2}},
		"CURIOSITY:LOG":        {{Template: "Hmm.", Weight: 1}},
	}
	require.NoError(t, SavePatterns(path, ps))
	got, err := LoadPatterns(path)
	require.NoError(t, err)
	assert.Equal(t, ps, got)

	require.NoError(t, os.WriteFile(path, []byte("null"), 0o644))
	got, err = LoadPatterns(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Type: "file"}, filepath.Join(t.TempDir(), "m.json"), nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	s.Close()

	_, err = Open(context.Background(), config.StoreConfig{Type: "redis"}, "", nil)
	assert.Error(t, err)
}

func TestNewPostgresStore(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = NewPostgresStore(context.Background(), mockPool, zap.NewNop())
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	mockPool.ExpectPing()
	s, err := NewPostgresStore(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return s, mockPool
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	s, mockPool := newMockStore(t)
	for range schemaStatements {
		mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_Save(t *testing.T) {
	ctx := context.Background()
	snap := sampleGraph(t).Export()

	t.Run("replaces the snapshot in one transaction", func(t *testing.T) {
		observedCore, observedLogs := observer.New(zapcore.ErrorLevel)
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		mockPool.ExpectPing()
		s, err := NewPostgresStore(ctx, mockPool, zap.New(observedCore))
		require.NoError(t, err)

		mockPool.ExpectBegin()
		mockPool.ExpectExec("DELETE FROM genesis_edges").WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mockPool.ExpectExec("DELETE FROM genesis_nodes").WillReturnResult(pgxmock.NewResult("DELETE", 5))
		mockPool.ExpectCopyFrom(pgx.Identifier{tableNodes}, nodeColumns).WillReturnResult(int64(len(snap.Nodes)))
		mockPool.ExpectCopyFrom(pgx.Identifier{tableEdges}, edgeColumns).WillReturnResult(int64(len(snap.Edges)))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertMeta)).
			WithArgs(snap.Meta.SavedAt.UTC()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.Save(ctx, snap))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, observedLogs.All(), "no errors are logged after a successful commit")
	})

	t.Run("copy count mismatch rolls back", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectBegin()
		mockPool.ExpectExec("DELETE FROM genesis_edges").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectExec("DELETE FROM genesis_nodes").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectCopyFrom(pgx.Identifier{tableNodes}, nodeColumns).WillReturnResult(1)
		mockPool.ExpectRollback()

		err := s.Save(ctx, snap)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mismatch in copied genesis_nodes count")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("nil snapshot", func(t *testing.T) {
		s, _ := newMockStore(t)
		assert.Error(t, s.Save(ctx, nil))
	})
}

func TestPostgresStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing saved", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectMeta)).WillReturnRows(pgxmock.NewRows([]string{"saved_at"}))
		_, err := s.Load(ctx)
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("decodes records in order", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		savedAt := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectMeta)).
			WillReturnRows(pgxmock.NewRows([]string{"saved_at"}).AddRow(savedAt))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectNodes)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "record"}).
				AddRow("tea", []byte(`{"id":"tea","kind":"CONCEPT","layer":"SEMANTIC","payload":{"label":"Tea"},"activation":1.5}`)).
				AddRow("boil", []byte(`{"id":"boil","kind":"ACTION","layer":"SEMANTIC","payload":{"command":"boil"}}`)))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectEdges)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "record"}).
				AddRow("tea|REQUIRES|boil", []byte(`{"from":"tea","to":"boil","kind":"REQUIRES","weight":1.3,"uses":3}`)))

		snap, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, savedAt, snap.Meta.SavedAt)
		require.Len(t, snap.Nodes, 2)
		assert.Equal(t, "tea", snap.Nodes[0].ID)
		assert.Equal(t, &schemas.ConceptPayload{Label: "Tea"}, snap.Nodes[0].Node.Payload)
		assert.Equal(t, &schemas.ActionPayload{Command: "boil"}, snap.Nodes[1].Node.Payload)
		require.Len(t, snap.Edges, 1)
		assert.Equal(t, 1.3, snap.Edges[0].Edge.Weight)
		assert.NoError(t, mockPool.ExpectationsWereMet())

		g := knowledgegraph.New(knowledgegraph.DefaultOptions(), nil)
		require.NoError(t, g.Import(snap))
		plan, ok := g.Plan("tea")
		assert.True(t, ok)
		assert.Equal(t, []string{"boil"}, plan)
	})

	t.Run("corrupt record", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectMeta)).
			WillReturnRows(pgxmock.NewRows([]string{"saved_at"}).AddRow(time.Now()))
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectNodes)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "record"}).AddRow("bad", []byte(`{"kind":`)))
		_, err := s.Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid node record 'bad'")
	})
}
