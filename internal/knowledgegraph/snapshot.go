package knowledgegraph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
)

// Export copies the nodes and edges into a snapshot. Indices and the context
// window are not part of it.
func (g *Graph) Export() *schemas.MemorySnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &schemas.MemorySnapshot{
		Nodes: make([]schemas.NodeEntry, 0, g.liveNodes),
		Edges: make([]schemas.EdgeEntry, 0, g.liveEdges),
		Meta:  schemas.SnapshotMeta{SavedAt: g.now()},
	}
	for _, n := range g.nodes {
		if n != nil {
			snap.Nodes = append(snap.Nodes, schemas.NodeEntry{ID: n.ID, Node: n.Clone()})
		}
	}
	for _, slot := range g.edges {
		if slot != nil {
			e := *slot.edge
			snap.Edges = append(snap.Edges, schemas.EdgeEntry{ID: e.ID(), Edge: &e})
		}
	}
	return snap
}

// Import replaces the whole graph with the snapshot contents. Records are
// sanitized: activation is clamped, payloads are coerced to their kind and
// edges whose endpoints are missing are skipped. On error the graph is left
// untouched.
func (g *Graph) Import(snap *schemas.MemorySnapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot import a nil snapshot")
	}
	for i, entry := range snap.Nodes {
		if entry.Node == nil {
			return fmt.Errorf("node entry %d ('%s') has no record", i, entry.ID)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetLocked()
	for _, entry := range snap.Nodes {
		n := entry.Node.Clone()
		if n.ID == "" {
			n.ID = entry.ID
		}
		if n.ID == "" {
			continue
		}
		if _, dup := g.index[n.ID]; dup {
			continue
		}
		if n.Payload == nil || !schemas.PayloadMatches(n.Kind, n.Payload) {
			n.Payload = schemas.NewPayload(n.Kind)
		}
		if n.Layer == "" {
			n.Layer = schemas.LayerSemantic
		}
		n.Activation = clamp(n.Activation, 0, schemas.ActivationCap)
		g.insertNodeLocked(n)
	}

	skipped := 0
	for _, entry := range snap.Edges {
		if entry.Edge == nil {
			skipped++
			continue
		}
		e := *entry.Edge
		fh, okFrom := g.index[e.From]
		th, okTo := g.index[e.To]
		if !okFrom || !okTo {
			skipped++
			continue
		}
		if _, dup := g.edgeIndex[e.ID()]; dup {
			skipped++
			continue
		}
		if e.Weight <= 0 {
			e.Weight = schemas.ActivationFloor
		}
		e.Weight = clamp(e.Weight, 0, schemas.MaxEdgeWeight)
		g.insertEdgeLocked(&e, fh, th)
	}

	g.log.Info("Graph imported",
		zap.Int("nodes", g.liveNodes),
		zap.Int("edges", g.liveEdges),
		zap.Int("skipped_edges", skipped))
	return nil
}
