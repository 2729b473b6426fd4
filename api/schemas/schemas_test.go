package schemas

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Protected(t *testing.T) {
	tests := []struct {
		node *Node
		want bool
	}{
		{&Node{Kind: NodeConcept}, false},
		{&Node{Kind: NodeConcept, System: true}, true},
		{&Node{Kind: NodeIdentity}, true},
		{&Node{Kind: NodeAction}, true},
		{&Node{Kind: NodeIntent}, true},
		{&Node{Kind: NodePercept}, false},
		{&Node{Kind: NodeBelief}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.node.Protected(), "kind %s system %t", tt.node.Kind, tt.node.System)
	}
}

func TestNode_CloneIsIndependent(t *testing.T) {
	n := &Node{ID: "tea", Kind: NodeAction, Payload: &ActionPayload{Command: "brew"}}
	c := n.Clone()
	c.Payload.(*ActionPayload).Command = "pour"
	c.Activation = 1

	assert.Equal(t, "brew", n.Payload.(*ActionPayload).Command)
	assert.Zero(t, n.Activation)
}

func TestNode_UnmarshalSelectsPayloadByKind(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","kind":"BELIEF","payload":{"proposition":"water is wet","confidence":0.7}}`), &n))
	b, ok := n.Payload.(*BeliefPayload)
	require.True(t, ok, "got %T", n.Payload)
	assert.Equal(t, 0.7, b.Confidence)

	var empty Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","kind":"CONCEPT","payload":null}`), &empty))
	assert.IsType(t, &ConceptPayload{}, empty.Payload)

	var bad Node
	assert.Error(t, json.Unmarshal([]byte(`{"id":"b","kind":"BELIEF","payload":{"confidence":"high"}}`), &bad))
}

func TestPayloadMatches(t *testing.T) {
	assert.True(t, PayloadMatches(NodeAlias, &ConceptPayload{}))
	assert.True(t, PayloadMatches(NodeEvent, &EventPayload{}))
	assert.False(t, PayloadMatches(NodeAction, &ConceptPayload{}))
	for _, kind := range []NodeKind{NodeConcept, NodePercept, NodeAction, NodeIntent, NodeIdentity, NodeBelief, NodeEvent} {
		assert.True(t, PayloadMatches(kind, NewPayload(kind)), "kind %s", kind)
	}
}

func TestSnapshotEntries_PairEncoding(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	edge := &Edge{From: "ls", To: "list files", Kind: RelAlias, Weight: 1, CreatedAt: now, LastUsed: now}
	snap := MemorySnapshot{
		Nodes: []NodeEntry{{ID: "ls", Node: &Node{ID: "ls", Kind: NodeConcept, Payload: &ConceptPayload{}}}},
		Edges: []EdgeEntry{{ID: edge.ID(), Edge: edge}},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"edges":[["ls|ALIAS|list files",`)

	var back MemorySnapshot
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Edges, 1)
	assert.Equal(t, EdgeID("ls", RelAlias, "list files"), back.Edges[0].ID)
	assert.Equal(t, edge.Weight, back.Edges[0].Edge.Weight)

	var short NodeEntry
	assert.ErrorContains(t, json.Unmarshal([]byte(`["only-id"]`), &short), "2 elements")
}
