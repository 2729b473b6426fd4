// Package entity extracts typed entity mentions from raw text and ties them
// to nodes of the knowledge graph.
package entity

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

// Activation boosts applied when a known phrase is mentioned.
const (
	directBoost = 0.5
	oneHopBoost = 0.3
	twoHopBoost = 0.1
)

// Confidence assigned per discovery source.
const (
	knownPhraseConfidence = 0.9
	knownNodeConfidence   = 0.8
	potentialConfidence   = 0.7
	literalConfidence     = 1.0
	sentimentConfidence   = 0.9
)

// Graph is the part of the knowledge graph the resolver needs.
type Graph interface {
	GetNode(id string) (*schemas.Node, bool)
	AddNode(id string, kind schemas.NodeKind, payload schemas.Payload, layer schemas.Layer) (*schemas.Node, bool)
	Activate(id string, amount float64) bool
	Neighbors(id string) []schemas.Edge
}

// ignoreCapitalized lists capitalized words that are never new entities.
var ignoreCapitalized = map[string]struct{}{
	"hello": {}, "hi": {}, "hey": {}, "yes": {}, "no": {}, "ok": {}, "okay": {},
	"thanks": {}, "thank": {}, "please": {}, "sure": {}, "well": {}, "oh": {},
	"maybe": {}, "describe": {}, "explain": {}, "show": {}, "give": {}, "let": {},
	"good": {}, "great": {}, "bye": {}, "goodbye": {}, "when": {}, "say": {},
}

var quoted = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)

// Resolver finds entities in text.
type Resolver struct {
	graph Graph
	log   *zap.Logger
}

// NewResolver creates a resolver over the given graph.
func NewResolver(graph Graph, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{graph: graph, log: logger.Named("entity_resolver")}
}

// Resolve extracts entities from text. Known phrases activate their node and
// its neighborhood; unknown capitalized words are added to the graph as
// CONCEPT nodes.
func (r *Resolver) Resolve(text string) []schemas.Entity {
	var entities []schemas.Entity
	seen := make(map[string]struct{})
	emit := func(e schemas.Entity) {
		key := strings.ToLower(e.Text) + "|" + string(e.Type)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		entities = append(entities, e)
	}

	clauses := tokenize(text)
	covered := make(map[int]bool)

	var chunks []phrase
	for _, clause := range clauses {
		chunks = append(chunks, chunk(clause)...)
	}

	// Known multi-word phrases, longest first.
	for _, p := range candidates(chunks) {
		if allCovered(p, covered) {
			continue
		}
		node, ok := r.lookup(p.text())
		if !ok {
			continue
		}
		for _, t := range p.tokens {
			covered[t.pos] = true
		}
		r.remind(node.ID)
		emit(schemas.Entity{
			Text:       p.text(),
			Type:       typeOf(node, p.text(), text),
			Source:     schemas.SourceKnownPhrase,
			Confidence: knownPhraseConfidence,
			NodeID:     node.ID,
		})
	}

	// Known single tokens.
	for _, clause := range clauses {
		for _, t := range clause {
			if covered[t.pos] || lexicon.IsStopWord(t.text) {
				continue
			}
			node, ok := r.lookup(t.text)
			if !ok {
				continue
			}
			covered[t.pos] = true
			r.graph.Activate(node.ID, directBoost)
			emit(schemas.Entity{
				Text:       t.text,
				Type:       typeOf(node, t.text, text),
				Source:     schemas.SourceKnownNode,
				Confidence: knownNodeConfidence,
				NodeID:     node.ID,
			})
		}
	}

	// Unknown capitalized runs become potential entities.
	for _, clause := range clauses {
		var run []token
		flush := func() {
			if len(run) == 0 {
				return
			}
			p := phrase{tokens: run}
			run = nil
			e := schemas.Entity{
				Text:       p.text(),
				Type:       InferEntityType(p.text(), text),
				Source:     schemas.SourcePotential,
				Confidence: potentialConfidence,
				NodeID:     lexicon.Normalize(p.text()),
			}
			r.graph.AddNode(e.NodeID, schemas.NodeConcept, &schemas.ConceptPayload{
				Label:      e.Text,
				EntityType: e.Type,
				Confidence: e.Confidence,
			}, schemas.LayerSemantic)
			r.graph.Activate(e.NodeID, directBoost)
			r.log.Debug("Discovered potential entity", zap.String("text", e.Text), zap.String("type", string(e.Type)))
			emit(e)
		}
		for _, t := range clause {
			if covered[t.pos] || !isCandidateName(t.text) {
				flush()
				continue
			}
			covered[t.pos] = true
			run = append(run, t)
		}
		flush()
	}

	for _, m := range quoted.FindAllStringSubmatch(text, -1) {
		lit := m[1]
		if lit == "" {
			lit = m[2]
		}
		lit = strings.TrimSpace(lit)
		if lit == "" {
			continue
		}
		emit(schemas.Entity{
			Text:       lit,
			Type:       schemas.EntityLiteral,
			Source:     schemas.SourceLiteral,
			Confidence: literalConfidence,
		})
	}

	for _, clause := range clauses {
		for _, t := range clause {
			if v := lexicon.Sentiment(t.text); v != 0 {
				emit(schemas.Entity{
					Text:       strings.ToLower(t.text),
					Type:       schemas.EntitySentiment,
					Source:     schemas.SourceSentiment,
					Confidence: sentimentConfidence,
					Valence:    v,
				})
			}
		}
	}

	return entities
}

// lookup finds a node for text, trying the exact form before the lowercase
// one. Intent, belief, event and percept nodes are not entities.
func (r *Resolver) lookup(text string) (*schemas.Node, bool) {
	for _, id := range []string{text, strings.ToLower(text)} {
		node, ok := r.graph.GetNode(id)
		if !ok {
			continue
		}
		switch node.Kind {
		case schemas.NodeIntent, schemas.NodeBelief, schemas.NodeEvent, schemas.NodePercept:
			return nil, false
		}
		return node, true
	}
	return nil, false
}

// remind activates a node and, more weakly, its one and two hop neighbors.
func (r *Resolver) remind(id string) {
	r.graph.Activate(id, directBoost)
	visited := map[string]bool{id: true}
	var frontier []string
	for _, e := range r.graph.Neighbors(id) {
		if visited[e.To] {
			continue
		}
		visited[e.To] = true
		r.graph.Activate(e.To, oneHopBoost)
		frontier = append(frontier, e.To)
	}
	for _, hop := range frontier {
		for _, e := range r.graph.Neighbors(hop) {
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			r.graph.Activate(e.To, twoHopBoost)
		}
	}
}

func typeOf(node *schemas.Node, text, context string) schemas.EntityType {
	if c, ok := node.Payload.(*schemas.ConceptPayload); ok && c.EntityType != "" {
		return c.EntityType
	}
	return InferEntityType(text, context)
}

func isCandidateName(w string) bool {
	if !lexicon.IsCapitalized(w) || lexicon.IsStopWord(w) {
		return false
	}
	_, ignored := ignoreCapitalized[strings.ToLower(w)]
	return !ignored
}

func allCovered(p phrase, covered map[int]bool) bool {
	for _, t := range p.tokens {
		if !covered[t.pos] {
			return false
		}
	}
	return true
}
