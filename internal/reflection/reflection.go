// Package reflection implements the idle maintenance cycle of the kernel:
// reward shaping on recent interactions, paraphrase consolidation and
// forgetting of weak or stale memory.
package reflection

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
)

const (
	rewardFactor  = 1.2
	punishFactor  = 0.9
	punishFloor   = 0.1
	indicatesSeed = schemas.DefaultEdgeWeight
)

// Graph is the part of the knowledge graph reflection mutates.
type Graph interface {
	Now() time.Time
	GetNode(id string) (*schemas.Node, bool)
	HasNode(id string) bool
	Nodes() []*schemas.Node
	NodesOfKind(kind schemas.NodeKind) []*schemas.Node
	Neighbors(id string) []schemas.Edge
	Incoming(id string) []schemas.Edge
	Degree(id string) int
	Edges() []schemas.Edge
	EdgesOfKind(kinds ...schemas.RelationshipType) []schemas.Edge
	AddEdge(from, to string, kind schemas.RelationshipType, weight float64) (schemas.Edge, bool)
	HasEdge(from string, kind schemas.RelationshipType, to string) bool
	ScaleEdge(from string, kind schemas.RelationshipType, to string, factor, floor, ceil float64) (float64, bool)
	UpdateNode(id string, fn func(*schemas.Node)) bool
	UpdateBelief(id string, confirm bool, strength float64) (float64, bool)
	RemoveNode(id string) bool
	RemoveEdge(from string, kind schemas.RelationshipType, to string) bool
}

// Interaction is one completed turn as seen by reflection.
type Interaction struct {
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
	Input  string    `json:"input"`
	Intent string    `json:"intent"`
	// Entities holds the ids of entity nodes co-activated with the intent.
	Entities []string `json:"entities,omitempty"`
	// Beliefs holds the ids of belief nodes co-activated with the intent.
	Beliefs  []string `json:"beliefs,omitempty"`
	Response string   `json:"response"`
	Adequacy float64  `json:"adequacy"`
	Rewarded bool     `json:"rewarded"`
}

// Reward describes the effect of one reward assignment.
type Reward struct {
	Success         bool `json:"success"`
	EdgesAdjusted   int  `json:"edgesAdjusted"`
	EdgesCreated    int  `json:"edgesCreated"`
	BeliefsAdjusted int  `json:"beliefsAdjusted"`
}

// Report summarizes one reflection pass.
type Report struct {
	RewardedInteraction string         `json:"rewardedInteraction,omitempty" yaml:"rewarded_interaction,omitempty"`
	Consolidated        int            `json:"consolidated" yaml:"consolidated"`
	Redundant           int            `json:"redundant" yaml:"redundant"`
	IntentUsage         map[string]int `json:"intentUsage" yaml:"intent_usage"`
	PrunedNodes         int            `json:"prunedNodes" yaml:"pruned_nodes"`
	PrunedEdges         int            `json:"prunedEdges" yaml:"pruned_edges"`
	Duration            time.Duration  `json:"duration" yaml:"duration"`
}

// Counters are the running totals of the engine.
type Counters struct {
	Successes    int `json:"successes" yaml:"successes"`
	Failures     int `json:"failures" yaml:"failures"`
	Reflections  int `json:"reflections" yaml:"reflections"`
	Interactions int `json:"interactions" yaml:"interactions"`
}

// Engine runs reflection passes. It does not lock the graph beyond the
// graph's own guards; callers serialize it against turn processing.
type Engine struct {
	graph Graph
	cfg   config.ReflectionConfig
	log   *zap.Logger

	mu           sync.Mutex
	interactions []Interaction
	counters     Counters
	last         Report
}

// NewEngine creates a reflection engine.
func NewEngine(graph Graph, cfg config.ReflectionConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		graph: graph,
		cfg:   cfg,
		log:   logger.Named("reflection"),
	}
}

// LogInteraction records a completed turn and returns its id. Only the most
// recent InteractionWindow records are kept.
func (e *Engine) LogInteraction(in Interaction) string {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.At.IsZero() {
		in.At = e.graph.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interactions = append(e.interactions, in)
	if w := e.cfg.InteractionWindow; w > 0 && len(e.interactions) > w {
		e.interactions = append([]Interaction(nil), e.interactions[len(e.interactions)-w:]...)
	}
	e.counters.Interactions++
	return in.ID
}

// Interactions returns a copy of the logged window, oldest first.
func (e *Engine) Interactions() []Interaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Interaction(nil), e.interactions...)
}

// Counters returns the running totals.
func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

// LastReport returns the report of the most recent pass.
func (e *Engine) LastReport() Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// AssignReward applies Hebbian reward shaping for the interaction with the
// given id. Above RewardThreshold every edge between the intent and a
// co-activated entity is multiplied by 1.2 (capped at MaxEdgeWeight) and an
// INDICATES edge is created for entities with no connection yet; otherwise
// those edges are multiplied by 0.9 (floored at 0.1). Co-activated beliefs
// are confirmed or disconfirmed. An interaction is rewarded at most once.
func (e *Engine) AssignReward(id string) (Reward, bool) {
	e.mu.Lock()
	idx := -1
	for i := len(e.interactions) - 1; i >= 0; i-- {
		if e.interactions[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || e.interactions[idx].Rewarded {
		e.mu.Unlock()
		return Reward{}, false
	}
	e.interactions[idx].Rewarded = true
	in := e.interactions[idx]
	e.mu.Unlock()

	reward := e.reward(in)

	e.mu.Lock()
	if reward.Success {
		e.counters.Successes++
	} else {
		e.counters.Failures++
	}
	e.mu.Unlock()

	e.log.Debug("Reward assigned",
		zap.String("interaction", in.ID),
		zap.String("intent", in.Intent),
		zap.Bool("success", reward.Success),
		zap.Int("edges", reward.EdgesAdjusted),
		zap.Int("beliefs", reward.BeliefsAdjusted))
	return reward, true
}

func (e *Engine) reward(in Interaction) Reward {
	r := Reward{Success: in.Adequacy > e.cfg.RewardThreshold}
	factor, floor := punishFactor, punishFloor
	if r.Success {
		factor, floor = rewardFactor, 0
	}

	if in.Intent != "" && in.Intent != schemas.IntentUnknown && e.graph.HasNode(in.Intent) {
		for _, entity := range in.Entities {
			if entity == in.Intent || !e.graph.HasNode(entity) {
				continue
			}
			adjusted := 0
			for _, edge := range e.connecting(in.Intent, entity) {
				if _, ok := e.graph.ScaleEdge(edge.From, edge.Kind, edge.To, factor, floor, schemas.MaxEdgeWeight); ok {
					adjusted++
				}
			}
			r.EdgesAdjusted += adjusted
			if adjusted == 0 && r.Success {
				if _, ok := e.graph.AddEdge(entity, in.Intent, schemas.RelIndicates, indicatesSeed); ok {
					r.EdgesCreated++
				}
			}
		}
	}

	for _, belief := range in.Beliefs {
		if _, ok := e.graph.UpdateBelief(belief, r.Success, e.cfg.BeliefRewardStrength); ok {
			r.BeliefsAdjusted++
		}
	}
	return r
}

// connecting returns the edges between a and b in either direction.
func (e *Engine) connecting(a, b string) []schemas.Edge {
	var edges []schemas.Edge
	for _, edge := range e.graph.Neighbors(a) {
		if edge.To == b {
			edges = append(edges, edge)
		}
	}
	for _, edge := range e.graph.Incoming(a) {
		if edge.From == b && edge.From != edge.To {
			edges = append(edges, edge)
		}
	}
	return edges
}

// Reflect runs one full maintenance pass: reward for the latest unrewarded
// interaction, paraphrase consolidation, redundant phrase marking, intent
// usage, stale node pruning and weak association pruning, in that order.
func (e *Engine) Reflect() Report {
	start := time.Now()
	var report Report

	if id, ok := e.latestUnrewarded(); ok {
		if _, applied := e.AssignReward(id); applied {
			report.RewardedInteraction = id
		}
	}
	report.Consolidated = e.ConsolidatePatterns()
	report.Redundant = e.PruneRedundantPhrases()
	report.IntentUsage = e.UpdateIntentWeights()
	report.PrunedNodes = e.Prune()
	report.PrunedEdges = e.PruneWeakAssociations()
	report.Duration = time.Since(start)

	e.mu.Lock()
	e.counters.Reflections++
	e.last = report
	e.mu.Unlock()

	e.log.Info("Reflection complete",
		zap.Int("consolidated", report.Consolidated),
		zap.Int("redundant", report.Redundant),
		zap.Int("pruned_nodes", report.PrunedNodes),
		zap.Int("pruned_edges", report.PrunedEdges),
		zap.Duration("duration", report.Duration))
	return report
}

func (e *Engine) latestUnrewarded() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.interactions) - 1; i >= 0; i-- {
		if !e.interactions[i].Rewarded {
			return e.interactions[i].ID, true
		}
	}
	return "", false
}

// UpdateIntentWeights counts intent usage over the logged window and writes
// usage and share into each INTENT node's payload.
func (e *Engine) UpdateIntentWeights() map[string]int {
	usage := make(map[string]int)
	total := 0
	for _, in := range e.Interactions() {
		if in.Intent == "" {
			continue
		}
		usage[in.Intent]++
		total++
	}
	for _, node := range e.graph.NodesOfKind(schemas.NodeIntent) {
		count := usage[node.ID]
		e.graph.UpdateNode(node.ID, func(n *schemas.Node) {
			p, ok := n.Payload.(*schemas.IntentPayload)
			if !ok {
				return
			}
			p.Usage = count
			if total > 0 {
				p.Share = float64(count) / float64(total)
			} else {
				p.Share = 0
			}
		})
	}
	return usage
}

// Prune deletes every unprotected node whose activation is at or below
// PruneActivation, that has not been touched for longer than PruneAge and
// that has no incoming or outgoing edge.
func (e *Engine) Prune() int {
	now := e.graph.Now()
	var doomed []string
	for _, node := range e.graph.Nodes() {
		if node.Protected() {
			continue
		}
		if node.Activation > e.cfg.PruneActivation {
			continue
		}
		if now.Sub(node.LastAccessed) <= e.cfg.PruneAge {
			continue
		}
		if e.graph.Degree(node.ID) != 0 {
			continue
		}
		doomed = append(doomed, node.ID)
	}
	sort.Strings(doomed)
	removed := 0
	for _, id := range doomed {
		if e.graph.RemoveNode(id) {
			removed++
		}
	}
	if removed > 0 {
		e.log.Debug("Pruned stale nodes", zap.Int("count", removed))
	}
	return removed
}

// PruneWeakAssociations deletes every edge whose weight is at or below
// WeakEdgeThreshold.
func (e *Engine) PruneWeakAssociations() int {
	removed := 0
	for _, edge := range e.graph.Edges() {
		if edge.Weight > e.cfg.WeakEdgeThreshold {
			continue
		}
		if e.graph.RemoveEdge(edge.From, edge.Kind, edge.To) {
			removed++
		}
	}
	if removed > 0 {
		e.log.Debug("Pruned weak associations", zap.Int("count", removed))
	}
	return removed
}
