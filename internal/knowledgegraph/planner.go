package knowledgegraph

import (
	"github.com/baihaki00/sentra-sub000/api/schemas"
)

// maxPlanDepth bounds the requirement chain explored for one goal.
const maxPlanDepth = 32

type planResult struct {
	steps []string
	ok    bool
}

type planner struct {
	g        *Graph
	visiting []bool
	memo     map[int]planResult
}

// Plan chains backward from goal over REQUIRES and PRODUCES edges and returns
// the ACTION node ids to run, in order. A goal is satisfied when all of its
// requirements are; an ACTION is appended after its own requirements; any
// other node without requirements needs an incoming PRODUCES edge from a
// satisfiable producer. Cycles and unknown goals make the plan fail.
func (g *Graph) Plan(goal string) ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	h, ok := g.index[goal]
	if !ok {
		return nil, false
	}
	p := &planner{
		g:        g,
		visiting: make([]bool, len(g.nodes)),
		memo:     make(map[int]planResult),
	}
	steps, ok, _ := p.solve(h, 0)
	if !ok {
		return nil, false
	}
	return dedupe(steps), true
}

// solve plans for node h. The third result reports a failure that depends on
// the current path (a node already being solved, or the depth bound); such
// failures are not memoized, as another path may still satisfy h.
func (p *planner) solve(h, depth int) ([]string, bool, bool) {
	if r, ok := p.memo[h]; ok {
		return r.steps, r.ok, false
	}
	if depth > maxPlanDepth || p.visiting[h] {
		return nil, false, true
	}
	p.visiting[h] = true
	defer func() { p.visiting[h] = false }()

	steps, ok, pathBound := p.expand(h, depth)
	if ok || !pathBound {
		p.memo[h] = planResult{steps: steps, ok: ok}
	}
	return steps, ok, pathBound
}

func (p *planner) expand(h, depth int) ([]string, bool, bool) {
	g := p.g
	node := g.nodes[h]

	var steps []string
	requirements := 0
	for _, eh := range g.out[h] {
		slot := g.edges[eh]
		if slot == nil || slot.edge.Kind != schemas.RelRequires {
			continue
		}
		requirements++
		sub, ok, pathBound := p.solve(slot.to, depth+1)
		if !ok {
			return nil, false, pathBound
		}
		steps = append(steps, sub...)
	}

	if node.Kind == schemas.NodeAction {
		return append(steps, node.ID), true, false
	}
	if requirements > 0 {
		return steps, true, false
	}

	pathBound := false
	for _, eh := range g.in[h] {
		slot := g.edges[eh]
		if slot == nil || slot.edge.Kind != schemas.RelProduces {
			continue
		}
		sub, ok, bound := p.solve(slot.from, depth+1)
		if ok {
			return sub, true, false
		}
		pathBound = pathBound || bound
	}
	return nil, false, pathBound
}

func dedupe(steps []string) []string {
	seen := make(map[string]struct{}, len(steps))
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
