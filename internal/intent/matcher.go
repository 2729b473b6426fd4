package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

// MaxHops bounds how far an alias chain is followed.
const MaxHops = 5

// containmentFactor discounts a substring match against an exact one.
const containmentFactor = 0.9

// MatchResult is a surface form resolved to a node.
type MatchResult struct {
	// Trigger is the node the input matched before following aliases.
	Trigger string
	// NodeID is where the alias chain ended.
	NodeID string
	Score  float64
	Hops   int
	// Exhausted is set when MaxHops ran out before a terminal node.
	Exhausted bool
}

// Match resolves input to a node. An exact node id wins outright, except for
// percepts, which only record that the text was heard; otherwise every
// TRIGGERS and ALIAS edge source is scored by containment in the input or,
// for forms of similar length, Levenshtein similarity. Candidates below the fuzzy
// threshold are ignored and the first of equally scored candidates is kept.
// The match is then followed along its alias chain.
func (e *Engine) Match(input string) (MatchResult, bool) {
	norm := lexicon.Normalize(input)
	if norm == "" {
		return MatchResult{}, false
	}

	trigger, score := "", 0.0
	if node, ok := e.graph.GetNode(norm); ok && node.Kind != schemas.NodePercept {
		trigger, score = norm, 1.0
	} else {
		seen := make(map[string]struct{})
		for _, edge := range e.graph.EdgesOfKind(schemas.RelTriggers, schemas.RelAlias) {
			if _, dup := seen[edge.From]; dup {
				continue
			}
			seen[edge.From] = struct{}{}
			s := surfaceSimilarity(norm, edge.From)
			if s >= e.cfg.FuzzyThreshold && s > score {
				trigger, score = edge.From, s
			}
		}
	}
	if trigger == "" {
		return MatchResult{}, false
	}

	res := e.followChain(trigger)
	res.Score = score
	e.log.Debug("Matched input",
		zap.String("input", norm),
		zap.String("trigger", res.Trigger),
		zap.String("resolved", res.NodeID),
		zap.Int("hops", res.Hops))
	return res, true
}

// followChain walks ALIAS edges (then TRIGGERS edges) from start, taking the
// heaviest edge at each step, until it reaches an ACTION node, a node with no
// such edge, a node already on the path, or MaxHops.
func (e *Engine) followChain(start string) MatchResult {
	res := MatchResult{Trigger: start, NodeID: start}
	onPath := map[string]bool{start: true}
	current := start

	for hop := 0; hop < MaxHops; hop++ {
		if node, ok := e.graph.GetNode(current); ok && node.Kind == schemas.NodeAction {
			return res
		}
		next, ok := e.nextHop(current)
		if !ok || onPath[next] {
			return res
		}
		onPath[next] = true
		current = next
		res.NodeID = current
		res.Hops++
	}

	if node, ok := e.graph.GetNode(current); ok && node.Kind == schemas.NodeAction {
		return res
	}
	if _, more := e.nextHop(current); more {
		res.Exhausted = true
	}
	return res
}

func (e *Engine) nextHop(id string) (string, bool) {
	var alias, trig *schemas.Edge
	for _, edge := range e.graph.Neighbors(id) {
		switch edge.Kind {
		case schemas.RelAlias:
			if alias == nil || edge.Weight > alias.Weight {
				alias = &edge
			}
		case schemas.RelTriggers:
			if trig == nil || edge.Weight > trig.Weight {
				trig = &edge
			}
		}
	}
	if alias != nil {
		return alias.To, true
	}
	if trig != nil {
		return trig.To, true
	}
	return "", false
}

// surfaceSimilarity scores how well input matches a trigger surface form.
// Lengths are counted in runes, as the edit distance is.
func surfaceSimilarity(input, trigger string) float64 {
	if input == "" || trigger == "" {
		return 0
	}
	if input == trigger {
		return 1
	}
	inLen, trigLen := utf8.RuneCountInString(input), utf8.RuneCountInString(trigger)
	if strings.Contains(input, trigger) {
		return float64(trigLen) / float64(inLen) * containmentFactor
	}
	longer, diff := inLen, inLen-trigLen
	if trigLen > inLen {
		longer, diff = trigLen, trigLen-inLen
	}
	if diff < 3 {
		dist := levenshtein.ComputeDistance(input, trigger)
		return 1 - float64(dist)/float64(longer)
	}
	return 0
}

// Associate links trigger to target with an ALIAS or TRIGGERS edge, creating
// both nodes as needed. Re-associating reinforces the edge.
func (e *Engine) Associate(trigger, target string, kind schemas.RelationshipType) (schemas.Edge, bool) {
	trigger, target = lexicon.Normalize(trigger), lexicon.Normalize(target)
	if trigger == "" || target == "" || trigger == target {
		return schemas.Edge{}, false
	}
	if kind != schemas.RelTriggers {
		kind = schemas.RelAlias
	}
	e.graph.AddNode(target, schemas.NodeConcept, &schemas.ConceptPayload{Label: target}, schemas.LayerSemantic)
	e.graph.AddNode(trigger, schemas.NodeAlias, &schemas.ConceptPayload{Label: trigger}, schemas.LayerSemantic)
	edge, _ := e.graph.AddEdge(trigger, target, kind, 1.0)
	e.log.Info("Association learned",
		zap.String("trigger", trigger),
		zap.String("target", target),
		zap.String("kind", string(kind)))
	return edge, true
}
