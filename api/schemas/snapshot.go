package schemas

import (
	"encoding/json"
	"fmt"
	"time"
)

// MemorySnapshot is the persisted form of the whole graph. Derived indices are
// never stored; they are rebuilt on import.
type MemorySnapshot struct {
	Nodes []NodeEntry  `json:"nodes"`
	Edges []EdgeEntry  `json:"edges"`
	Meta  SnapshotMeta `json:"meta"`
}

// SnapshotMeta carries bookkeeping about a snapshot.
type SnapshotMeta struct {
	SavedAt time.Time `json:"savedAt"`
}

// NodeEntry is encoded as a two element array: [id, node].
type NodeEntry struct {
	ID   string
	Node *Node
}

// EdgeEntry is encoded as a two element array: [id, edge].
type EdgeEntry struct {
	ID   string
	Edge *Edge
}

func (e NodeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.ID, e.Node})
}

func (e *NodeEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("node entry must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("invalid node entry id: %w", err)
	}
	e.Node = &Node{}
	if err := json.Unmarshal(pair[1], e.Node); err != nil {
		return fmt.Errorf("invalid node record '%s': %w", e.ID, err)
	}
	return nil
}

func (e EdgeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.ID, e.Edge})
}

func (e *EdgeEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("edge entry must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("invalid edge entry id: %w", err)
	}
	e.Edge = &Edge{}
	if err := json.Unmarshal(pair[1], e.Edge); err != nil {
		return fmt.Errorf("invalid edge record '%s': %w", e.ID, err)
	}
	return nil
}

// PatternTemplate is a weighted response template.
type PatternTemplate struct {
	Template string  `json:"template"`
	Weight   float64 `json:"weight"`
}

// PatternSet maps an intent id to its response templates.
type PatternSet map[string][]PatternTemplate
