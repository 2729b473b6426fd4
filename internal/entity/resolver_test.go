package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/knowledgegraph"
)

func setupResolver(t *testing.T) (*Resolver, *knowledgegraph.Graph) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	g := knowledgegraph.New(knowledgegraph.DefaultOptions(), logger)
	g.AddEdge("machine learning", "artificial intelligence", schemas.RelIsA, 1)
	g.AddEdge("artificial intelligence", "computer science", schemas.RelIsA, 1)
	g.AddNode("python", schemas.NodeConcept, &schemas.ConceptPayload{Label: "Python", EntityType: schemas.EntityTechnology}, schemas.LayerSemantic)
	g.AddSystemNode(schemas.IntentGreeting, schemas.NodeIntent, nil, schemas.LayerMeta)
	return NewResolver(g, logger), g
}

func find(entities []schemas.Entity, text string) (schemas.Entity, bool) {
	for _, e := range entities {
		if e.Text == text {
			return e, true
		}
	}
	return schemas.Entity{}, false
}

func TestChunking(t *testing.T) {
	clauses := tokenize("Tell me about the history of Rome, please.")
	require.Len(t, clauses, 2)

	chunks := chunk(clauses[0])
	require.Len(t, chunks, 1)
	assert.Equal(t, "history of Rome", chunks[0].text(), "leading stop-words drop, embedded ones stay")

	assert.Empty(t, chunk(clauses[1]))

	spans := candidates(chunks)
	var texts []string
	for _, s := range spans {
		texts = append(texts, s.text())
	}
	assert.Equal(t, []string{"history of Rome"}, texts, "windows must not start or end on a stop-word")
}

func TestResolve_KnownPhrase(t *testing.T) {
	r, g := setupResolver(t)

	entities := r.Resolve("Tell me about machine learning")
	require.Len(t, entities, 1)
	e := entities[0]
	assert.Equal(t, "machine learning", e.Text)
	assert.Equal(t, schemas.SourceKnownPhrase, e.Source)
	assert.Equal(t, schemas.EntityConcept, e.Type)
	assert.Equal(t, "machine learning", e.NodeID)

	assert.InDelta(t, 0.5, g.Activation("machine learning"), 1e-9)
	assert.InDelta(t, 0.3, g.Activation("artificial intelligence"), 1e-9)
	assert.InDelta(t, 0.1, g.Activation("computer science"), 1e-9)
}

func TestResolve_KnownNodeAndSentiment(t *testing.T) {
	r, g := setupResolver(t)

	entities := r.Resolve("I love Python")
	require.Len(t, entities, 2)

	py, ok := find(entities, "Python")
	require.True(t, ok)
	assert.Equal(t, schemas.SourceKnownNode, py.Source)
	assert.Equal(t, schemas.EntityTechnology, py.Type)
	assert.Equal(t, "python", py.NodeID)
	assert.InDelta(t, 0.5, g.Activation("python"), 1e-9)

	love, ok := find(entities, "love")
	require.True(t, ok)
	assert.Equal(t, schemas.EntitySentiment, love.Type)
	assert.Equal(t, 1, love.Valence)
}

func TestResolve_IgnoresPercepts(t *testing.T) {
	r, g := setupResolver(t)
	g.Perceive("explain python")

	entities := r.Resolve("explain python")
	_, whole := find(entities, "explain python")
	assert.False(t, whole, "the raw input is not an entity of itself")
	py, ok := find(entities, "python")
	require.True(t, ok)
	assert.Equal(t, "python", py.NodeID)
}

func TestResolve_PotentialEntities(t *testing.T) {
	r, g := setupResolver(t)

	entities := r.Resolve("Alice went to Paris")
	require.Len(t, entities, 2)
	for _, e := range entities {
		assert.Equal(t, schemas.SourcePotential, e.Source)
		assert.Equal(t, 0.7, e.Confidence)
	}
	node, ok := g.GetNode("paris")
	require.True(t, ok)
	assert.Equal(t, schemas.NodeConcept, node.Kind)
	assert.Equal(t, "Paris", node.Payload.(*schemas.ConceptPayload).Label)

	t.Run("capitalized runs are joined", func(t *testing.T) {
		entities := r.Resolve("I want to visit New York")
		e, ok := find(entities, "New York")
		require.True(t, ok)
		assert.Equal(t, schemas.EntityLocation, e.Type)
		assert.True(t, g.HasNode("new york"))
	})

	t.Run("found again as a known node", func(t *testing.T) {
		entities := r.Resolve("Paris")
		require.Len(t, entities, 1)
		assert.Equal(t, schemas.SourceKnownNode, entities[0].Source)
	})

	t.Run("ignore list", func(t *testing.T) {
		assert.Empty(t, r.Resolve("Hello there"))
	})

	t.Run("intent nodes are not entities", func(t *testing.T) {
		g.AddNode("weather", schemas.NodeIntent, nil, schemas.LayerMeta)
		assert.Empty(t, r.Resolve("weather"))
	})
}

func TestResolve_Literals(t *testing.T) {
	r, _ := setupResolver(t)

	entities := r.Resolve(`remember "open sesame" for me`)
	lit, ok := find(entities, "open sesame")
	require.True(t, ok)
	assert.Equal(t, schemas.EntityLiteral, lit.Type)
	assert.Equal(t, 1.0, lit.Confidence)
	assert.Empty(t, lit.NodeID)
}

func TestInferEntityType(t *testing.T) {
	tests := []struct {
		text, context string
		want          schemas.EntityType
	}{
		{"Python", "", schemas.EntityTechnology},
		{"Paris", "what is the capital city of France", schemas.EntityLocation},
		{"Acme Inc", "", schemas.EntityOrganization},
		{"Hudson River", "", schemas.EntityLocation},
		{"tomorrow", "", schemas.EntityDate},
		{"2024", "", schemas.EntityDate},
		{"deep learning", "", schemas.EntityConcept},
		{"Alice", "who is Alice", schemas.EntityPerson},
		{"Alice", "tell me about Alice", schemas.EntityConcept},
		{"NASA", "", schemas.EntityOrganization},
		{"thing", "", schemas.EntityConcept},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.context, func(t *testing.T) {
			assert.Equal(t, tt.want, InferEntityType(tt.text, tt.context))
		})
	}
}
