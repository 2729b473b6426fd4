package knowledgegraph

import (
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

const (
	beliefPrefix = "BELIEF:"

	// Weight kept by the old confidence when a proposition is re-asserted.
	beliefRetention = 0.7
)

// BeliefID returns the node id used for a proposition.
func BeliefID(proposition string) string {
	return beliefPrefix + lexicon.Normalize(proposition)
}

// AssertBelief records a proposition. Re-asserting an existing one blends
// the confidences as old*0.7 + new*0.3 instead of creating a duplicate.
func (g *Graph) AssertBelief(proposition string, confidence float64, source string) *schemas.Node {
	id := BeliefID(proposition)
	confidence = clamp(confidence, 0, 1)

	g.mu.Lock()
	defer g.mu.Unlock()

	h, created := g.addNodeLocked(id, schemas.NodeBelief, &schemas.BeliefPayload{
		Proposition: proposition,
		Confidence:  confidence,
		Source:      source,
	}, schemas.LayerSemantic)
	if h < 0 {
		return nil
	}
	node := g.nodes[h]
	node.LastAccessed = g.now()
	if b, ok := node.Payload.(*schemas.BeliefPayload); ok && !created {
		b.Confidence = clamp(b.Confidence*beliefRetention+confidence*(1-beliefRetention), 0, 1)
		b.UpdateCount++
		if source != "" {
			b.Source = source
		}
		g.log.Debug("Belief reinforced", zap.String("id", id), zap.Float64("confidence", b.Confidence))
	}
	return node.Clone()
}

// UpdateBelief moves the confidence of a belief toward 1 when confirm is
// true, by (1-c)*strength, and toward 0 otherwise, by c*strength. It returns
// the new confidence.
func (g *Graph) UpdateBelief(id string, confirm bool, strength float64) (float64, bool) {
	strength = clamp(strength, 0, 1)

	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.index[id]
	if !ok {
		return 0, false
	}
	b, ok := g.nodes[h].Payload.(*schemas.BeliefPayload)
	if !ok {
		return 0, false
	}
	if confirm {
		b.Confidence += (1 - b.Confidence) * strength
	} else {
		b.Confidence -= b.Confidence * strength
	}
	b.Confidence = clamp(b.Confidence, 0, 1)
	b.UpdateCount++
	return b.Confidence, true
}

// Belief returns the payload of a belief node.
func (g *Graph) Belief(id string) (schemas.BeliefPayload, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[id]
	if !ok {
		return schemas.BeliefPayload{}, false
	}
	b, ok := g.nodes[h].Payload.(*schemas.BeliefPayload)
	if !ok {
		return schemas.BeliefPayload{}, false
	}
	return *b, true
}
