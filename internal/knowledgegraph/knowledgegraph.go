package knowledgegraph

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
)

// Options tunes propagation and the perception context window.
type Options struct {
	SpreadDecay    float64
	PerceiveAmount float64
	MaxSpreadDepth int
	ContextWindow  int
}

// OptionsFromConfig maps the graph configuration section onto Options.
func OptionsFromConfig(cfg config.GraphConfig) Options {
	return Options{
		SpreadDecay:    cfg.SpreadDecay,
		PerceiveAmount: cfg.PerceiveAmount,
		MaxSpreadDepth: cfg.MaxSpreadDepth,
		ContextWindow:  cfg.ContextWindow,
	}
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{SpreadDecay: 0.5, PerceiveAmount: 1.0, MaxSpreadDepth: 16, ContextWindow: 10}
}

// edgeSlot keeps the endpoint handles next to the edge record so traversal
// never goes back through the id index.
type edgeSlot struct {
	edge     *schemas.Edge
	from, to int
}

// Graph is an in-memory associative memory. Nodes and edges live in flat
// arenas addressed by integer handles; deleted slots are tombstoned (nil)
// and reclaimed by compact.
type Graph struct {
	mu sync.RWMutex

	nodes     []*schemas.Node
	index     map[string]int
	edges     []*edgeSlot
	edgeIndex map[string]int
	out       [][]int
	in        [][]int

	liveNodes int
	liveEdges int

	context *ContextWindow
	opts    Options
	now     func() time.Time
	log     *zap.Logger
}

// New creates an empty graph.
func New(opts Options, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.SpreadDecay <= 0 || opts.SpreadDecay >= 1 {
		opts.SpreadDecay = def.SpreadDecay
	}
	if opts.PerceiveAmount <= 0 {
		opts.PerceiveAmount = def.PerceiveAmount
	}
	if opts.MaxSpreadDepth <= 0 {
		opts.MaxSpreadDepth = def.MaxSpreadDepth
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = def.ContextWindow
	}
	g := &Graph{
		opts: opts,
		now:  time.Now,
		log:  logger.Named("knowledge_graph"),
	}
	g.resetLocked()
	return g
}

// SetClock replaces the time source. Used by tests that age nodes.
func (g *Graph) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// Now returns the graph's notion of the current time.
func (g *Graph) Now() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.now()
}

// Options returns the tuning the graph was built with.
func (g *Graph) Options() Options {
	return g.opts
}

func (g *Graph) resetLocked() {
	g.nodes = nil
	g.index = make(map[string]int)
	g.edges = nil
	g.edgeIndex = make(map[string]int)
	g.out = nil
	g.in = nil
	g.liveNodes = 0
	g.liveEdges = 0
	g.context = NewContextWindow(g.opts.ContextWindow)
}

// AddNode inserts a node with zero activation. If the id already exists the
// graph is left unchanged and the existing node is returned with created=false.
// A nil or mismatched payload is replaced by the empty payload for kind.
func (g *Graph) AddNode(id string, kind schemas.NodeKind, payload schemas.Payload, layer schemas.Layer) (*schemas.Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, created := g.addNodeLocked(id, kind, payload, layer)
	if h < 0 {
		return nil, false
	}
	return g.nodes[h].Clone(), created
}

// AddSystemNode inserts a node that is never pruned. An existing node with the
// same id is marked as system.
func (g *Graph) AddSystemNode(id string, kind schemas.NodeKind, payload schemas.Payload, layer schemas.Layer) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, created := g.addNodeLocked(id, kind, payload, layer)
	if h < 0 {
		return false
	}
	g.nodes[h].System = true
	return created
}

func (g *Graph) addNodeLocked(id string, kind schemas.NodeKind, payload schemas.Payload, layer schemas.Layer) (int, bool) {
	if id == "" {
		return -1, false
	}
	if h, ok := g.index[id]; ok {
		return h, false
	}
	if payload == nil || !schemas.PayloadMatches(kind, payload) {
		if payload != nil {
			g.log.Warn("Payload does not match node kind; using empty payload",
				zap.String("id", id), zap.String("kind", string(kind)))
		}
		payload = schemas.NewPayload(kind)
	}
	if layer == "" {
		layer = schemas.LayerSemantic
	}
	now := g.now()
	node := &schemas.Node{
		ID:           id,
		Kind:         kind,
		Layer:        layer,
		Payload:      payload,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return g.insertNodeLocked(node), true
}

func (g *Graph) insertNodeLocked(node *schemas.Node) int {
	h := len(g.nodes)
	g.nodes = append(g.nodes, node)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.index[node.ID] = h
	g.liveNodes++
	return h
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.index[id]
	return ok
}

// GetNode returns a copy of the node with the given id.
func (g *Graph) GetNode(id string) (*schemas.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[h].Clone(), true
}

// UpdateNode runs fn against the live node under the write lock. It returns
// false when the node does not exist.
func (g *Graph) UpdateNode(id string, fn func(*schemas.Node)) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.index[id]
	if !ok {
		return false
	}
	fn(g.nodes[h])
	return true
}

// AddEdge inserts the (from, kind, to) triple, or reinforces it when it
// already exists: weight grows by ReinforceStep up to MaxEdgeWeight and uses
// is incremented. Missing endpoints are created as CONCEPT nodes.
// A non-positive weight selects DefaultEdgeWeight.
func (g *Graph) AddEdge(from, to string, kind schemas.RelationshipType, weight float64) (schemas.Edge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	slot, created := g.addEdgeLocked(from, to, kind, weight)
	if slot == nil {
		return schemas.Edge{}, false
	}
	return *slot.edge, created
}

func (g *Graph) addEdgeLocked(from, to string, kind schemas.RelationshipType, weight float64) (*edgeSlot, bool) {
	if from == "" || to == "" {
		return nil, false
	}
	now := g.now()
	id := schemas.EdgeID(from, kind, to)
	if eh, ok := g.edgeIndex[id]; ok {
		slot := g.edges[eh]
		slot.edge.Weight = clamp(slot.edge.Weight+schemas.ReinforceStep, 0, schemas.MaxEdgeWeight)
		slot.edge.Uses++
		slot.edge.LastUsed = now
		return slot, false
	}

	fh, _ := g.addNodeLocked(from, schemas.NodeConcept, nil, schemas.LayerSemantic)
	th, _ := g.addNodeLocked(to, schemas.NodeConcept, nil, schemas.LayerSemantic)

	if weight <= 0 {
		weight = schemas.DefaultEdgeWeight
	}
	edge := &schemas.Edge{
		From:      from,
		To:        to,
		Kind:      kind,
		Weight:    clamp(weight, 0, schemas.MaxEdgeWeight),
		CreatedAt: now,
		LastUsed:  now,
	}
	g.insertEdgeLocked(edge, fh, th)
	g.log.Debug("Edge added", zap.String("from", from), zap.String("kind", string(kind)), zap.String("to", to))
	return g.edges[g.edgeIndex[id]], true
}

func (g *Graph) insertEdgeLocked(edge *schemas.Edge, fh, th int) {
	eh := len(g.edges)
	g.edges = append(g.edges, &edgeSlot{edge: edge, from: fh, to: th})
	g.edgeIndex[edge.ID()] = eh
	g.out[fh] = append(g.out[fh], eh)
	g.in[th] = append(g.in[th], eh)
	g.liveEdges++
}

// HasEdge reports whether the triple exists.
func (g *Graph) HasEdge(from string, kind schemas.RelationshipType, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edgeIndex[schemas.EdgeID(from, kind, to)]
	return ok
}

// GetEdge returns a copy of the edge for the triple.
func (g *Graph) GetEdge(from string, kind schemas.RelationshipType, to string) (schemas.Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	eh, ok := g.edgeIndex[schemas.EdgeID(from, kind, to)]
	if !ok {
		return schemas.Edge{}, false
	}
	return *g.edges[eh].edge, true
}

// Neighbors returns the outgoing edges of id in insertion order.
func (g *Graph) Neighbors(id string) []schemas.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.collectLocked(g.out[h])
}

// Incoming returns the edges pointing at id in insertion order.
func (g *Graph) Incoming(id string) []schemas.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.collectLocked(g.in[h])
}

func (g *Graph) collectLocked(handles []int) []schemas.Edge {
	edges := make([]schemas.Edge, 0, len(handles))
	for _, eh := range handles {
		if slot := g.edges[eh]; slot != nil {
			edges = append(edges, *slot.edge)
		}
	}
	return edges
}

// Degree is the number of incoming plus outgoing edges of id.
func (g *Graph) Degree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.out[h]) + len(g.in[h])
}

// RemoveNode deletes a node together with every edge touching it.
func (g *Graph) RemoveNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.index[id]
	if !ok {
		return false
	}
	for _, eh := range append(append([]int(nil), g.out[h]...), g.in[h]...) {
		g.removeEdgeLocked(eh)
	}
	g.nodes[h] = nil
	g.out[h] = nil
	g.in[h] = nil
	delete(g.index, id)
	g.liveNodes--
	g.context.Remove(id)
	g.log.Debug("Node removed", zap.String("id", id))
	g.maybeCompactLocked()
	return true
}

// RemoveEdge deletes the triple if present.
func (g *Graph) RemoveEdge(from string, kind schemas.RelationshipType, to string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	eh, ok := g.edgeIndex[schemas.EdgeID(from, kind, to)]
	if !ok {
		return false
	}
	g.removeEdgeLocked(eh)
	g.maybeCompactLocked()
	return true
}

func (g *Graph) removeEdgeLocked(eh int) {
	slot := g.edges[eh]
	if slot == nil {
		return
	}
	g.out[slot.from] = removeHandle(g.out[slot.from], eh)
	g.in[slot.to] = removeHandle(g.in[slot.to], eh)
	delete(g.edgeIndex, slot.edge.ID())
	g.edges[eh] = nil
	g.liveEdges--
}

// removeHandle deletes eh from the list, keeping the remaining order.
func removeHandle(list []int, eh int) []int {
	for i, v := range list {
		if v == eh {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// ScaleEdge multiplies the weight of an edge by factor and clamps it to
// [floor, ceil]. It returns the new weight.
func (g *Graph) ScaleEdge(from string, kind schemas.RelationshipType, to string, factor, floor, ceil float64) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	eh, ok := g.edgeIndex[schemas.EdgeID(from, kind, to)]
	if !ok {
		return 0, false
	}
	e := g.edges[eh].edge
	e.Weight = clamp(e.Weight*factor, floor, ceil)
	e.LastUsed = g.now()
	return e.Weight, true
}

// Nodes returns copies of every node in insertion order.
func (g *Graph) Nodes() []*schemas.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	nodes := make([]*schemas.Node, 0, g.liveNodes)
	for _, n := range g.nodes {
		if n != nil {
			nodes = append(nodes, n.Clone())
		}
	}
	return nodes
}

// NodesOfKind returns copies of the nodes of one kind in insertion order.
func (g *Graph) NodesOfKind(kind schemas.NodeKind) []*schemas.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var nodes []*schemas.Node
	for _, n := range g.nodes {
		if n != nil && n.Kind == kind {
			nodes = append(nodes, n.Clone())
		}
	}
	return nodes
}

// Edges returns copies of every edge in insertion order.
func (g *Graph) Edges() []schemas.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edges := make([]schemas.Edge, 0, g.liveEdges)
	for _, slot := range g.edges {
		if slot != nil {
			edges = append(edges, *slot.edge)
		}
	}
	return edges
}

// EdgesOfKind returns the edges whose kind is one of kinds, in insertion order.
func (g *Graph) EdgesOfKind(kinds ...schemas.RelationshipType) []schemas.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var edges []schemas.Edge
	for _, slot := range g.edges {
		if slot == nil {
			continue
		}
		for _, k := range kinds {
			if slot.edge.Kind == k {
				edges = append(edges, *slot.edge)
				break
			}
		}
	}
	return edges
}

// Len returns the number of live nodes and edges.
func (g *Graph) Len() (nodes, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.liveNodes, g.liveEdges
}

// Stats summarizes the graph.
func (g *Graph) Stats() schemas.GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	stats := schemas.GraphStats{
		Nodes:        g.liveNodes,
		Edges:        g.liveEdges,
		NodesByKind:  make(map[schemas.NodeKind]int),
		ContextItems: g.context.Items(),
	}
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		stats.NodesByKind[n.Kind]++
		if n.Activation > 0 {
			stats.ActiveNodes++
		}
		if n.Kind == schemas.NodeBelief {
			stats.Beliefs++
		}
		if n.Redundant {
			stats.Redundant++
		}
	}
	var total float64
	for _, slot := range g.edges {
		if slot != nil {
			total += slot.edge.Weight
		}
	}
	if g.liveEdges > 0 {
		stats.MeanWeight = total / float64(g.liveEdges)
	}
	return stats
}

// Context returns the perception context window, oldest first.
func (g *Graph) Context() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.context.Items()
}

// RecentContext returns up to n of the most recently perceived ids, newest first.
func (g *Graph) RecentContext(n int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.context.Recent(n)
}

// Compact reclaims tombstoned slots. Handles held by callers are invalidated,
// which is why none are exposed outside the package.
func (g *Graph) Compact() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compactLocked()
}

func (g *Graph) maybeCompactLocked() {
	deadNodes := len(g.nodes) - g.liveNodes
	deadEdges := len(g.edges) - g.liveEdges
	if (deadNodes > 64 && deadNodes > g.liveNodes) || (deadEdges > 64 && deadEdges > g.liveEdges) {
		g.compactLocked()
	}
}

func (g *Graph) compactLocked() {
	nodes := make([]*schemas.Node, 0, g.liveNodes)
	for _, n := range g.nodes {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	edges := make([]*schemas.Edge, 0, g.liveEdges)
	for _, slot := range g.edges {
		if slot != nil {
			edges = append(edges, slot.edge)
		}
	}

	ctx := g.context
	g.resetLocked()
	g.context = ctx
	for _, n := range nodes {
		g.insertNodeLocked(n)
	}
	for _, e := range edges {
		g.insertEdgeLocked(e, g.index[e.From], g.index[e.To])
	}
	g.log.Debug("Graph compacted", zap.Int("nodes", g.liveNodes), zap.Int("edges", g.liveEdges))
}

// TopByActivation returns up to n node ids of the given kind ordered by
// activation, highest first; ties keep insertion order. An empty kind
// matches every node.
func (g *Graph) TopByActivation(kind schemas.NodeKind, n int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var candidates []*schemas.Node
	for _, node := range g.nodes {
		if node != nil && (kind == "" || node.Kind == kind) && node.Activation > 0 {
			candidates = append(candidates, node)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Activation > candidates[j].Activation
	})
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
