// Package intent classifies utterances by combining TF-IDF similarity against
// an example corpus, the activation of INTENT nodes, and structural detectors.
package intent

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
	"github.com/baihaki00/sentra-sub000/internal/vectorizer"
)

// Classification methods reported in IntentResult.Method.
const (
	MethodSemantic           = "semantic"
	MethodBlended            = "semantic+activation"
	MethodSemanticOverride   = "semantic_override"
	MethodActivationOverride = "activation_override"
	MethodActivation         = "activation"
	MethodPeek               = "activation_peek"
)

// Weights of the agreeing semantic and activation scores.
const (
	semanticBlend   = 0.6
	activationBlend = 0.4
)

// Graph is the part of the knowledge graph the engine needs.
type Graph interface {
	GetNode(id string) (*schemas.Node, bool)
	AddNode(id string, kind schemas.NodeKind, payload schemas.Payload, layer schemas.Layer) (*schemas.Node, bool)
	AddEdge(from, to string, kind schemas.RelationshipType, weight float64) (schemas.Edge, bool)
	Neighbors(id string) []schemas.Edge
	EdgesOfKind(kinds ...schemas.RelationshipType) []schemas.Edge
	NodesOfKind(kind schemas.NodeKind) []*schemas.Node
	ScaleAll(factor float64)
}

// Engine classifies intents.
type Engine struct {
	graph Graph
	cfg   config.IntentConfig
	log   *zap.Logger

	mu       sync.RWMutex
	vec      *vectorizer.Vectorizer
	examples []string
	labels   []string
}

// NewEngine creates an engine fitted on DefaultCorpus.
func NewEngine(graph Graph, cfg config.IntentConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		graph: graph,
		cfg:   cfg,
		log:   logger.Named("intent_engine"),
		vec:   vectorizer.New(),
	}
	e.Train(DefaultCorpus)
	return e
}

// Train adds examples per intent and refits the vectorizer. Intents are
// added in sorted order so fits are reproducible.
func (e *Engine) Train(corpus map[string][]string) {
	intents := make([]string, 0, len(corpus))
	for intent := range corpus {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, intent := range intents {
		for _, ex := range corpus[intent] {
			e.addExampleLocked(intent, ex)
		}
	}
	e.vec.Fit(e.examples)
}

// AddExample teaches one more example for intent. Duplicates are ignored.
func (e *Engine) AddExample(intent, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.addExampleLocked(intent, text) {
		return false
	}
	e.vec.Fit(e.examples)
	return true
}

func (e *Engine) addExampleLocked(intent, text string) bool {
	for i, ex := range e.examples {
		if ex == text && e.labels[i] == intent {
			return false
		}
	}
	e.examples = append(e.examples, text)
	e.labels = append(e.labels, intent)
	return true
}

// Examples returns the number of fitted examples.
func (e *Engine) Examples() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.examples)
}

// ClassifyBySemantic matches text against the example corpus. A similarity
// of at least SemanticTrust is taken as is. Between SemanticCrossCheck and
// SemanticTrust the result is cross-checked with ClassifyByActivation:
// agreeing results blend 0.6/0.4, disagreeing ones keep the higher score.
// Below SemanticCrossCheck the activation result is used alone. Activation is
// consulted on every call, so the residue reduction always happens once.
func (e *Engine) ClassifyBySemantic(text string) schemas.IntentResult {
	e.mu.RLock()
	match := e.vec.FindMostSimilar(text)
	var label string
	if match.Index >= 0 {
		label = e.labels[match.Index]
	}
	e.mu.RUnlock()

	act := e.ClassifyByActivation()

	if match.Index < 0 || match.Similarity < e.cfg.SemanticCrossCheck {
		return act
	}
	sem := schemas.IntentResult{Intent: label, Score: match.Similarity, Method: MethodSemantic}
	if match.Similarity >= e.cfg.SemanticTrust {
		return sem
	}
	if act.Intent == sem.Intent {
		return schemas.IntentResult{
			Intent: sem.Intent,
			Score:  semanticBlend*sem.Score + activationBlend*act.Score,
			Method: MethodBlended,
		}
	}
	if sem.Score >= act.Score {
		sem.Method = MethodSemanticOverride
		return sem
	}
	act.Method = MethodActivationOverride
	return act
}

// ClassifyByActivation picks the INTENT node with the highest activation.
// No active intent, or a tie for the top, gives INTENT:UNKNOWN. Afterwards
// every activation in the graph is scaled by ActivationResidue.
func (e *Engine) ClassifyByActivation() schemas.IntentResult {
	res := e.topIntent(MethodActivation)
	e.graph.ScaleAll(e.cfg.ActivationResidue)
	e.log.Debug("Classified by activation", zap.String("intent", res.Intent), zap.Float64("score", res.Score))
	return res
}

// PeekActivation reports what ClassifyByActivation would return without
// touching any activation.
func (e *Engine) PeekActivation() schemas.IntentResult {
	return e.topIntent(MethodPeek)
}

func (e *Engine) topIntent(method string) schemas.IntentResult {
	var best, second float64
	bestID := ""
	for _, n := range e.graph.NodesOfKind(schemas.NodeIntent) {
		if n.ID == schemas.IntentUnknown {
			continue
		}
		switch {
		case n.Activation > best:
			second = best
			best, bestID = n.Activation, n.ID
		case n.Activation > second:
			second = n.Activation
		}
	}
	if bestID == "" || best <= 0 || best == second {
		return schemas.IntentResult{Intent: schemas.IntentUnknown, Method: method}
	}
	return schemas.IntentResult{Intent: bestID, Score: activationScore(best), Method: method}
}

// activationScore maps an unbounded activation onto [0, 1).
func activationScore(a float64) float64 {
	return a / (a + 1)
}
