package schemas

import (
	"encoding/json"
	"fmt"
	"time"
)

// -- Canonical Knowledge Graph Data Model --

// NodeKind represents the specific kind of a node in the knowledge graph.
type NodeKind string

const (
	NodeConcept  NodeKind = "CONCEPT"
	NodePercept  NodeKind = "PERCEPT"
	NodeAction   NodeKind = "ACTION"
	NodeIntent   NodeKind = "INTENT"
	NodeIdentity NodeKind = "IDENTITY"
	NodeAlias    NodeKind = "ALIAS"
	NodeBelief   NodeKind = "BELIEF"
	NodeEvent    NodeKind = "EVENT"
)

// Layer places a node in one of the memory layers.
type Layer string

const (
	LayerSemantic Layer = "SEMANTIC" // Stable concepts and relations.
	LayerEpisodic Layer = "EPISODIC" // Percepts and events tied to a moment.
	LayerMeta     Layer = "META"     // Intents, identities and self-knowledge.
)

// RelationshipType defines the semantic type of an edge between two nodes.
type RelationshipType string

const (
	RelTriggers    RelationshipType = "TRIGGERS"
	RelAlias       RelationshipType = "ALIAS"
	RelIsA         RelationshipType = "IS_A"
	RelIs          RelationshipType = "IS"
	RelHas         RelationshipType = "HAS"
	RelCan         RelationshipType = "CAN"
	RelMeans       RelationshipType = "MEANS"
	RelRelatedTo   RelationshipType = "RELATED_TO"
	RelRequires    RelationshipType = "REQUIRES"
	RelProduces    RelationshipType = "PRODUCES"
	RelKnows       RelationshipType = "KNOWS"
	RelDid         RelationshipType = "DID"
	RelExecutionOf RelationshipType = "EXECUTION_OF"
	RelIndicates   RelationshipType = "INDICATES"
)

// Graph-wide numeric bounds.
const (
	// ActivationCap is the upper clamp for node activation.
	ActivationCap = 50.0
	// ActivationFloor is the level at or below which activation snaps to zero
	// on decay and below which spreading stops.
	ActivationFloor = 0.1
	// MaxEdgeWeight caps edge weight.
	MaxEdgeWeight = 5.0
	// ReinforceStep is added to an edge's weight each time its triple is re-added.
	ReinforceStep = 0.1
	// DefaultEdgeWeight is the weight of a freshly created edge.
	DefaultEdgeWeight = 1.0
)

// Node represents a single concept, percept or piece of self-knowledge in the graph.
type Node struct {
	ID           string    `json:"id"`
	Kind         NodeKind  `json:"kind"`
	Layer        Layer     `json:"layer"`
	Payload      Payload   `json:"payload"`
	Activation   float64   `json:"activation"`
	CreatedAt    time.Time `json:"created"`
	LastAccessed time.Time `json:"lastAccessed"`
	// System marks nodes seeded by the kernel itself.
	System bool `json:"system,omitempty"`
	// Redundant is a soft-delete marker set during phrase consolidation.
	Redundant bool `json:"redundant,omitempty"`
}

// Protected reports whether pruning must leave this node alone.
func (n *Node) Protected() bool {
	if n.System {
		return true
	}
	switch n.Kind {
	case NodeIdentity, NodeAction, NodeIntent:
		return true
	}
	return false
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Payload = ClonePayload(n.Payload)
	return &c
}

// UnmarshalJSON decodes the payload into the concrete type selected by Kind.
func (n *Node) UnmarshalJSON(data []byte) error {
	type nodeAlias Node
	aux := struct {
		*nodeAlias
		Payload json.RawMessage `json:"payload"`
	}{nodeAlias: (*nodeAlias)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	payload := NewPayload(n.Kind)
	if len(aux.Payload) > 0 && string(aux.Payload) != "null" {
		if err := json.Unmarshal(aux.Payload, payload); err != nil {
			return fmt.Errorf("failed to decode %s payload for node '%s': %w", n.Kind, n.ID, err)
		}
	}
	n.Payload = payload
	return nil
}

// Edge represents a directed, typed and weighted relationship between two nodes.
// Its identity is the (From, Kind, To) triple.
type Edge struct {
	From      string           `json:"from"`
	To        string           `json:"to"`
	Kind      RelationshipType `json:"kind"`
	Weight    float64          `json:"weight"`
	Uses      int              `json:"uses"`
	CreatedAt time.Time        `json:"created"`
	LastUsed  time.Time        `json:"lastUsed"`
}

// ID returns the stable identifier used in snapshots.
func (e Edge) ID() string {
	return EdgeID(e.From, e.Kind, e.To)
}

// EdgeID builds the snapshot identifier of an edge triple.
func EdgeID(from string, kind RelationshipType, to string) string {
	return from + "|" + string(kind) + "|" + to
}

// GraphStats summarizes the size and shape of a graph.
type GraphStats struct {
	Nodes        int              `json:"nodes" yaml:"nodes"`
	Edges        int              `json:"edges" yaml:"edges"`
	NodesByKind  map[NodeKind]int `json:"nodesByKind" yaml:"nodes_by_kind"`
	ActiveNodes  int              `json:"activeNodes" yaml:"active_nodes"`
	Beliefs      int              `json:"beliefs" yaml:"beliefs"`
	Redundant    int              `json:"redundant" yaml:"redundant"`
	MeanWeight   float64          `json:"meanWeight" yaml:"mean_weight"`
	ContextItems []string         `json:"context" yaml:"context"`
}
