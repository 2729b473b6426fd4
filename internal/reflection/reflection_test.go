package reflection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
	"github.com/baihaki00/sentra-sub000/internal/knowledgegraph"
)

func setupEngine(t *testing.T) (*Engine, *knowledgegraph.Graph) {
	t.Helper()
	g := knowledgegraph.New(knowledgegraph.DefaultOptions(), nil)
	return NewEngine(g, config.NewDefaultConfig().Reflection(), zaptest.NewLogger(t)), g
}

func TestAssignReward(t *testing.T) {
	e, g := setupEngine(t)
	g.AddSystemNode(schemas.IntentGreeting, schemas.NodeIntent, nil, schemas.LayerMeta)
	g.AddEdge(schemas.IntentGreeting, "hello", schemas.RelRelatedTo, 1)
	g.AddNode("world", schemas.NodeConcept, nil, "")
	belief := g.AssertBelief("hello is polite", 0.5, "test")
	require.NotNil(t, belief)

	id := e.LogInteraction(Interaction{
		Input:    "hello world",
		Intent:   schemas.IntentGreeting,
		Entities: []string{"hello", "world", "ghost"},
		Beliefs:  []string{belief.ID},
		Adequacy: 0.9,
	})
	require.NotEmpty(t, id)

	reward, ok := e.AssignReward(id)
	require.True(t, ok)
	assert.Equal(t, Reward{Success: true, EdgesAdjusted: 1, EdgesCreated: 1, BeliefsAdjusted: 1}, reward)

	edge, _ := g.GetEdge(schemas.IntentGreeting, schemas.RelRelatedTo, "hello")
	assert.InDelta(t, 1.2, edge.Weight, 1e-12)
	assert.True(t, g.HasEdge("world", schemas.RelIndicates, schemas.IntentGreeting))
	b, _ := g.Belief(belief.ID)
	assert.InDelta(t, 0.55, b.Confidence, 1e-12)

	_, ok = e.AssignReward(id)
	assert.False(t, ok, "an interaction is rewarded once")

	t.Run("failure punishes", func(t *testing.T) {
		id := e.LogInteraction(Interaction{
			Intent:   schemas.IntentGreeting,
			Entities: []string{"hello", "world"},
			Beliefs:  []string{belief.ID},
			Adequacy: 0.2,
		})
		reward, ok := e.AssignReward(id)
		require.True(t, ok)
		assert.False(t, reward.Success)
		assert.Equal(t, 2, reward.EdgesAdjusted)
		assert.Zero(t, reward.EdgesCreated)

		edge, _ := g.GetEdge(schemas.IntentGreeting, schemas.RelRelatedTo, "hello")
		assert.InDelta(t, 1.08, edge.Weight, 1e-12)
		indicates, _ := g.GetEdge("world", schemas.RelIndicates, schemas.IntentGreeting)
		assert.InDelta(t, 0.9, indicates.Weight, 1e-12)
		b, _ := g.Belief(belief.ID)
		assert.InDelta(t, 0.495, b.Confidence, 1e-12)
	})

	t.Run("punishment stops at the floor", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			e.AssignReward(e.LogInteraction(Interaction{Intent: schemas.IntentGreeting, Entities: []string{"hello"}}))
		}
		edge, _ := g.GetEdge(schemas.IntentGreeting, schemas.RelRelatedTo, "hello")
		assert.InDelta(t, 0.1, edge.Weight, 1e-12)
	})

	c := e.Counters()
	assert.Equal(t, 1, c.Successes)
	assert.Equal(t, 51, c.Failures)
	assert.Equal(t, 52, c.Interactions)
}

func TestLogInteraction_Window(t *testing.T) {
	g := knowledgegraph.New(knowledgegraph.DefaultOptions(), nil)
	cfg := config.NewDefaultConfig().Reflection()
	cfg.InteractionWindow = 3
	e := NewEngine(g, cfg, nil)

	for _, in := range []string{"a", "b", "c", "d"} {
		e.LogInteraction(Interaction{Input: in})
	}
	logged := e.Interactions()
	require.Len(t, logged, 3)
	assert.Equal(t, "b", logged[0].Input)
	assert.Equal(t, 4, e.Counters().Interactions)
}

func TestConsolidatePatterns(t *testing.T) {
	e, g := setupEngine(t)
	inputs := []struct{ intent, text string }{
		{schemas.IntentGreeting, "Good morning dear sunshine"},
		{schemas.IntentGreeting, "good morning dear sunshine today"},
		{schemas.IntentGreeting, "Good morning dear sunshine"},
		{schemas.IntentFactQuery, "what is python"},
		{schemas.IntentFactQuery, "what is rust"},
		{schemas.IntentUnknown, "good morning dear sunshine"},
	}
	for _, in := range inputs {
		e.LogInteraction(Interaction{Intent: in.intent, Input: in.text})
	}

	assert.Equal(t, 1, e.ConsolidatePatterns())
	assert.True(t, g.HasEdge("good morning dear sunshine today", schemas.RelAlias, "good morning dear sunshine"))
	assert.False(t, g.HasEdge("what is python", schemas.RelAlias, "what is rust"))
	assert.False(t, g.HasEdge("what is rust", schemas.RelAlias, "what is python"))

	assert.Zero(t, e.ConsolidatePatterns(), "existing aliases are not duplicated")
}

func TestPruneRedundantPhrases(t *testing.T) {
	e, g := setupEngine(t)
	g.AddEdge("hi there", "hi", schemas.RelAlias, 1)
	g.AddEdge("hey", "hi", schemas.RelAlias, 1)
	g.AddEdge("ls", "list files", schemas.RelAlias, 1)
	g.AddSystemNode("greet", schemas.NodeAction, nil, "")
	g.AddEdge("greet", "hi", schemas.RelAlias, 1)

	assert.Equal(t, 3, e.PruneRedundantPhrases())

	redundant := func(id string) bool {
		n, ok := g.GetNode(id)
		require.True(t, ok, id)
		return n.Redundant
	}
	assert.False(t, redundant("hi"))
	assert.True(t, redundant("hey"))
	assert.True(t, redundant("hi there"))
	assert.False(t, redundant("greet"), "protected nodes are never flagged")
	assert.False(t, redundant("ls"))
	assert.True(t, redundant("list files"))
	assert.True(t, g.HasNode("hey"), "redundant phrases are kept")

	assert.Zero(t, e.PruneRedundantPhrases(), "already flagged phrases are not counted again")
	g.AddEdge("yo", "hi", schemas.RelAlias, 1)
	assert.Equal(t, 1, e.PruneRedundantPhrases())
}

func TestUpdateIntentWeights(t *testing.T) {
	e, g := setupEngine(t)
	g.AddSystemNode(schemas.IntentGreeting, schemas.NodeIntent, nil, schemas.LayerMeta)
	g.AddSystemNode(schemas.IntentFarewell, schemas.NodeIntent, nil, schemas.LayerMeta)
	for _, intent := range []string{schemas.IntentGreeting, schemas.IntentGreeting, schemas.IntentGreeting, schemas.IntentFactQuery} {
		e.LogInteraction(Interaction{Intent: intent})
	}

	usage := e.UpdateIntentWeights()
	assert.Equal(t, map[string]int{schemas.IntentGreeting: 3, schemas.IntentFactQuery: 1}, usage)

	node, _ := g.GetNode(schemas.IntentGreeting)
	p := node.Payload.(*schemas.IntentPayload)
	assert.Equal(t, 3, p.Usage)
	assert.InDelta(t, 0.75, p.Share, 1e-12)

	node, _ = g.GetNode(schemas.IntentFarewell)
	assert.Zero(t, node.Payload.(*schemas.IntentPayload).Usage)
}

func TestReflect_PrunesStaleNodesButKeepsIdentity(t *testing.T) {
	e, g := setupEngine(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	g.SetClock(func() time.Time { return now })

	g.AddNode("orphan", schemas.NodeConcept, nil, "")
	g.AddNode("SELF:GENESIS", schemas.NodeIdentity, &schemas.IdentityPayload{Name: "Genesis"}, schemas.LayerMeta)
	g.AddEdge("linked", "other", schemas.RelRelatedTo, 1)
	g.AddNode("warm", schemas.NodeConcept, nil, "")
	g.Activate("warm", 0.5)
	g.AddEdge("faint", "trace", schemas.RelRelatedTo, 0.05)

	now = t0.Add(25 * time.Hour)
	g.AddNode("fresh", schemas.NodeConcept, nil, "")

	report := e.Reflect()

	assert.Equal(t, 1, report.PrunedNodes)
	assert.Equal(t, 1, report.PrunedEdges)
	assert.False(t, g.HasNode("orphan"))
	assert.True(t, g.HasNode("SELF:GENESIS"), "identity nodes are protected")
	assert.True(t, g.HasNode("linked"))
	assert.True(t, g.HasNode("warm"))
	assert.True(t, g.HasNode("fresh"))
	assert.False(t, g.HasEdge("faint", schemas.RelRelatedTo, "trace"))
	assert.True(t, g.HasNode("faint"), "orphaned by this pass, pruned by a later one")

	now = now.Add(25 * time.Hour)
	report = e.Reflect()
	assert.Equal(t, 3, report.PrunedNodes, "faint, trace and fresh are now stale")
	assert.Equal(t, 2, e.Counters().Reflections)
}

func TestReflect_RewardsLatestUnrewarded(t *testing.T) {
	e, g := setupEngine(t)
	g.AddSystemNode(schemas.IntentGreeting, schemas.NodeIntent, nil, schemas.LayerMeta)
	g.AddEdge(schemas.IntentGreeting, "hello", schemas.RelRelatedTo, 1)

	first := e.LogInteraction(Interaction{Intent: schemas.IntentGreeting, Entities: []string{"hello"}, Adequacy: 0.9})
	second := e.LogInteraction(Interaction{Intent: schemas.IntentGreeting, Entities: []string{"hello"}, Adequacy: 0.95})

	report := e.Reflect()
	assert.Equal(t, second, report.RewardedInteraction)
	report = e.Reflect()
	assert.Equal(t, first, report.RewardedInteraction)
	report = e.Reflect()
	assert.Empty(t, report.RewardedInteraction)

	edge, _ := g.GetEdge(schemas.IntentGreeting, schemas.RelRelatedTo, "hello")
	assert.InDelta(t, 1.44, edge.Weight, 1e-12)
	assert.Equal(t, report, e.LastReport())
}
