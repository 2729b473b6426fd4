// Package attention narrows graph activation down to a small working set.
package attention

import (
	"sort"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
)

// Relevance factors per candidate source.
const (
	intentFactor  = 0.8
	entityFactor  = 0.7
	contextFactor = 0.6
)

// Candidate sources reported in RankedNode.Source.
const (
	SourceIntent         = "intent"
	SourceIntentNeighbor = "intent_neighbor"
	SourceEntity         = "entity"
	SourceEntityNeighbor = "entity_neighbor"
	SourceContext        = "context"
	SourceHighActivation = "high_activation"
)

// Graph is the part of the knowledge graph the filter needs.
type Graph interface {
	HasNode(id string) bool
	Neighbors(id string) []schemas.Edge
	Activation(id string) float64
	TopByActivation(kind schemas.NodeKind, n int) []string
	ScaleExcept(keep map[string]struct{}, factor float64)
}

// Filter ranks candidate nodes and suppresses everything else.
type Filter struct {
	graph Graph
	cfg   config.AttentionConfig
	log   *zap.Logger
}

// NewFilter creates an attention filter.
func NewFilter(graph Graph, cfg config.AttentionConfig, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{graph: graph, cfg: cfg, log: logger.Named("attention")}
}

// FilterRelevant collects candidates from the intent node and its neighbors,
// the entity nodes and their neighbors, the recent context and any highly
// activated node. A source node scores its factor; a neighbor scores the
// factor times its edge weight (capped at 1). Candidates under MinRelevance
// are dropped, duplicates keep their best score, and the result is sorted by
// relevance (then id) and cut to Capacity.
func (f *Filter) FilterRelevant(intent string, entities []schemas.Entity, context []string) []schemas.RankedNode {
	best := make(map[string]schemas.RankedNode)
	consider := func(id string, relevance float64, source string) {
		if relevance < f.cfg.MinRelevance {
			return
		}
		if cur, ok := best[id]; ok && cur.Relevance >= relevance {
			return
		}
		best[id] = schemas.RankedNode{ID: id, Relevance: relevance, Source: source}
	}
	withNeighbors := func(id string, factor float64, self, neighbor string) {
		if !f.graph.HasNode(id) {
			return
		}
		consider(id, factor, self)
		for _, e := range f.graph.Neighbors(id) {
			consider(e.To, factor*min(e.Weight, 1), neighbor)
		}
	}

	if intent != "" && intent != schemas.IntentUnknown {
		withNeighbors(intent, intentFactor, SourceIntent, SourceIntentNeighbor)
	}
	for _, ent := range entities {
		if ent.NodeID != "" {
			withNeighbors(ent.NodeID, entityFactor, SourceEntity, SourceEntityNeighbor)
		}
	}
	for _, id := range context {
		if f.graph.HasNode(id) {
			consider(id, contextFactor, SourceContext)
		}
	}
	for _, id := range f.graph.TopByActivation("", 0) {
		a := f.graph.Activation(id)
		if a <= f.cfg.HighActivation {
			break
		}
		consider(id, min(a, 1), SourceHighActivation)
	}

	ranked := make([]schemas.RankedNode, 0, len(best))
	for _, r := range best {
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Relevance != ranked[j].Relevance {
			return ranked[i].Relevance > ranked[j].Relevance
		}
		return ranked[i].ID < ranked[j].ID
	})
	if f.cfg.Capacity > 0 && len(ranked) > f.cfg.Capacity {
		ranked = ranked[:f.cfg.Capacity]
	}
	f.log.Debug("Working set selected", zap.Int("candidates", len(best)), zap.Int("kept", len(ranked)))
	return ranked
}

// ApplyGating scales the activation of every node outside ranked by
// GatingFactor.
func (f *Filter) ApplyGating(ranked []schemas.RankedNode) {
	keep := make(map[string]struct{}, len(ranked))
	for _, r := range ranked {
		keep[r.ID] = struct{}{}
	}
	f.graph.ScaleExcept(keep, f.cfg.GatingFactor)
}
