package knowledgegraph

import (
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

type spreadFrame struct {
	handle int
	amount float64
	depth  int
}

// SpreadActivation propagates amount from start depth-first. Every node is
// visited at most once per call; propagation stops below ActivationFloor or
// past the configured depth. Each outgoing edge continues with
// amount * decay * weight. It returns the number of nodes visited.
func (g *Graph) SpreadActivation(start string, amount, decay float64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.index[start]
	if !ok {
		return 0
	}
	return g.spreadLocked(h, amount, decay)
}

func (g *Graph) spreadLocked(start int, amount, decay float64) int {
	visited := make([]bool, len(g.nodes))
	stack := []spreadFrame{{handle: start, amount: amount}}
	now := g.now()
	count := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.amount <= schemas.ActivationFloor || f.depth > g.opts.MaxSpreadDepth || visited[f.handle] {
			continue
		}
		node := g.nodes[f.handle]
		if node == nil {
			continue
		}
		visited[f.handle] = true
		count++
		node.Activation = clamp(node.Activation+f.amount, 0, schemas.ActivationCap)
		node.LastAccessed = now

		// Pushed in reverse so the first edge is explored first.
		out := g.out[f.handle]
		for i := len(out) - 1; i >= 0; i-- {
			slot := g.edges[out[i]]
			if slot == nil || visited[slot.to] {
				continue
			}
			next := f.amount * decay * slot.edge.Weight
			if next <= schemas.ActivationFloor {
				continue
			}
			stack = append(stack, spreadFrame{handle: slot.to, amount: next, depth: f.depth + 1})
		}
	}
	return count
}

// Activate adds amount to a single node without spreading.
func (g *Graph) Activate(id string, amount float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.index[id]
	if !ok {
		return false
	}
	node := g.nodes[h]
	node.Activation = clamp(node.Activation+amount, 0, schemas.ActivationCap)
	node.LastAccessed = g.now()
	return true
}

// Activation returns the current activation of id, or 0 if unknown.
func (g *Graph) Activation(id string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if h, ok := g.index[id]; ok {
		return g.nodes[h].Activation
	}
	return 0
}

// DecayAll multiplies every activation by factor, snapping values at or
// below ActivationFloor to zero.
func (g *Graph) DecayAll(factor float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		if n.Activation > schemas.ActivationFloor {
			n.Activation *= factor
		} else {
			n.Activation = 0
		}
	}
}

// ScaleAll multiplies every activation by factor.
func (g *Graph) ScaleAll(factor float64) {
	g.ScaleExcept(nil, factor)
}

// ScaleExcept multiplies the activation of every node not in keep by factor.
func (g *Graph) ScaleExcept(keep map[string]struct{}, factor float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		if _, ok := keep[n.ID]; ok {
			continue
		}
		n.Activation = clamp(n.Activation*factor, 0, schemas.ActivationCap)
	}
}

// Perceive records text as a PERCEPT node, moves it to the front of the
// context window and spreads activation from it. Every token that names a
// known node spreads at half the amount. It returns the percept id, or ""
// when text is blank.
func (g *Graph) Perceive(text string) string {
	id := lexicon.Normalize(text)
	if id == "" {
		return ""
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	h, created := g.addNodeLocked(id, schemas.NodePercept, &schemas.PerceptPayload{Text: text}, schemas.LayerEpisodic)
	if p, ok := g.nodes[h].Payload.(*schemas.PerceptPayload); ok {
		p.Occurrences++
	}
	g.context.Push(id)

	amount := g.opts.PerceiveAmount
	visited := g.spreadLocked(h, amount, g.opts.SpreadDecay)
	for _, tok := range lexicon.Tokenize(text) {
		if tok == id {
			continue
		}
		if th, ok := g.index[tok]; ok {
			visited += g.spreadLocked(th, amount*0.5, g.opts.SpreadDecay)
		}
	}

	g.log.Debug("Perceived input",
		zap.String("id", id),
		zap.Bool("new", created),
		zap.Int("visited", visited))
	return id
}
