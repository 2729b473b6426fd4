package kernel

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/intent"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
	"github.com/baihaki00/sentra-sub000/internal/linguistics"
	"github.com/baihaki00/sentra-sub000/internal/observability"
	"github.com/baihaki00/sentra-sub000/internal/reflection"
)

// Route names the path a turn took through the pipeline.
type Route string

const (
	RouteEmpty        Route = "empty"
	RouteConfirmation Route = "confirmation"
	RouteTeaching     Route = "teaching"
	RouteStatement    Route = "statement"
	RouteAlias        Route = "alias"
	RouteAction       Route = "action"
	RouteGenerate     Route = "generate"
	RouteCuriosity    Route = "curiosity"
)

// Methods reported for intents the kernel decides itself.
const (
	MethodStructural = "structural"
	MethodAlias      = "alias"
)

const (
	statementConfidence = 0.7
	userSource          = "user"
	maxFacts            = 2
)

// TurnResult describes one processed input.
type TurnResult struct {
	Input         string                `json:"input"`
	Response      string                `json:"response"`
	Route         Route                 `json:"route"`
	Intent        schemas.IntentResult  `json:"intent"`
	Entities      []schemas.Entity      `json:"entities,omitempty"`
	Attention     []schemas.RankedNode  `json:"attention,omitempty"`
	Prediction    schemas.Prediction    `json:"prediction"`
	Adequacy      schemas.Adequacy      `json:"adequacy"`
	Curiosity     schemas.CuriosityMode `json:"curiosity,omitempty"`
	InteractionID string                `json:"interactionId,omitempty"`
	Reward        reflection.Reward     `json:"reward"`
	Duration      time.Duration         `json:"duration"`
}

// LearnedEvent is posted when a turn or command changed what the kernel knows.
type LearnedEvent struct {
	Kind string `json:"kind"`
	From string `json:"from"`
	To   string `json:"to"`
}

// ProcessTurn runs one input through the pipeline and returns the reply.
// Blank input produces an empty result. The only error is a cancelled ctx.
func (k *Kernel) ProcessTurn(ctx context.Context, text string) (TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}
	start := time.Now()
	res := TurnResult{Input: text}
	text = strings.TrimSpace(text)
	if text == "" {
		res.Route = RouteEmpty
		return res, nil
	}

	k.mu.Lock()
	learned := k.turnLocked(text, &res)
	k.lastTurn = k.now()
	k.dirty = true
	k.mu.Unlock()

	res.Duration = time.Since(start)
	k.log.Debug("Turn processed", turnFields(res)...)

	k.post(ctx, MessageTurn, res)
	for _, ev := range learned {
		k.post(ctx, MessageLearned, ev)
	}
	if len(learned) > 0 {
		k.checkpoint(ctx, string(res.Route))
	}
	return res, nil
}

func turnFields(res TurnResult) []zap.Field {
	return observability.TurnFields(string(res.Route), res.Intent.Intent, res.Intent.Score,
		res.Adequacy.Score, res.InteractionID, res.Duration)
}

// turnLocked is the pipeline proper: decay, perception, entity resolution,
// structural detectors, attention, classification, generation or curiosity,
// then expectation and reward. It returns what was learned.
func (k *Kernel) turnLocked(text string, res *TurnResult) []LearnedEvent {
	gcfg := k.cfg.Graph()
	k.graph.DecayAll(gcfg.DecayFactor)
	k.graph.Perceive(text)
	res.Entities = k.resolver.Resolve(text)

	learned, handled := k.structuralLocked(text, res)
	if !handled {
		recent := k.graph.RecentContext(gcfg.ContextWindow)
		peek := k.intents.PeekActivation()
		res.Attention = k.attention.FilterRelevant(peek.Intent, res.Entities, recent)
		k.attention.ApplyGating(res.Attention)

		res.Intent = k.intents.ClassifyBySemantic(text)
		if _, ok := intent.DetectPlanQuery(text); ok {
			res.Intent = schemas.IntentResult{Intent: schemas.IntentPlanQuery, Score: 1, Method: MethodStructural}
		}
		if res.Intent.Intent == schemas.IntentUnknown || res.Intent.Score < k.cfg.Intent().MinConfidence {
			learned = k.lowConfidenceLocked(text, recent, res)
		} else {
			k.respondLocked(text, res)
		}
	}

	k.concludeLocked(res)
	return learned
}

// structuralLocked handles confirmations, teachings and statements, which
// bypass classification.
func (k *Kernel) structuralLocked(text string, res *TurnResult) ([]LearnedEvent, bool) {
	if pending, ok := k.curiosity.Pending(); ok {
		if c, isConfirmation := intent.DetectConfirmation(text); isConfirmation {
			k.curiosity.TakePending()
			return k.confirmLocked(pending, c, res), true
		}
		k.curiosity.ClearPending()
	} else if _, ok := intent.DetectConfirmation(text); ok && len(lexicon.Tokenize(text)) <= 2 {
		res.Route = RouteConfirmation
		res.Intent = schemas.IntentResult{Intent: schemas.IntentConfirmation, Score: 1, Method: MethodStructural}
		res.Response = k.lang.Generate(linguistics.FamilyNothingToDo, nil, nil)
		return nil, true
	}

	if t, ok := intent.DetectTeaching(text); ok {
		return k.teachLocked(t, res), true
	}
	if st, ok := intent.DetectStatement(text); ok {
		return k.learnStatementLocked(st, res), true
	}
	return nil, false
}

func (k *Kernel) confirmLocked(p schemas.PendingConfirmation, c intent.Confirmation, res *TurnResult) []LearnedEvent {
	res.Route = RouteConfirmation
	res.Intent = schemas.IntentResult{Intent: schemas.IntentConfirmation, Score: 1, Method: MethodStructural}

	if !c.Affirmative {
		res.Response = k.lang.Generate(linguistics.FamilyDenied, nil, nil)
		return nil
	}
	if p.Candidate == "" || p.Candidate == p.Input {
		res.Response = k.lang.Generate(linguistics.FamilyNothingToDo, nil, nil)
		return nil
	}
	if _, ok := k.intents.Associate(p.Input, p.Candidate, schemas.RelAlias); !ok {
		res.Response = k.lang.Generate(linguistics.FamilyNothingToDo, nil, nil)
		return nil
	}
	res.Response = k.lang.Generate(schemas.IntentConfirmation, nil, linguistics.Vars{
		linguistics.VarRef1: p.Input,
		linguistics.VarRef2: k.label(p.Candidate),
	})
	return []LearnedEvent{{Kind: string(schemas.RelAlias), From: p.Input, To: p.Candidate}}
}

// teachLocked stores "X means Y" as an alias. When Y leads to an intent, X
// also becomes a training example for it.
func (k *Kernel) teachLocked(t intent.Teaching, res *TurnResult) []LearnedEvent {
	res.Route = RouteTeaching
	res.Intent = schemas.IntentResult{Intent: schemas.IntentTeaching, Score: 1, Method: MethodStructural}

	k.intents.Associate(t.Trigger, t.Target, schemas.RelAlias)
	if m, ok := k.intents.Match(t.Target); ok {
		if node, found := k.graph.GetNode(m.NodeID); found && node.Kind == schemas.NodeIntent && m.NodeID != schemas.IntentUnknown {
			k.intents.AddExample(m.NodeID, t.Trigger)
		}
	}
	res.Response = k.lang.Generate(schemas.IntentTeaching, nil, linguistics.Vars{
		linguistics.VarRef1: t.Trigger,
		linguistics.VarRef2: t.Target,
	})
	return []LearnedEvent{{Kind: string(schemas.RelAlias), From: t.Trigger, To: t.Target}}
}

// learnStatementLocked stores "subject verb object" as an edge and a belief.
// A subject that produces something becomes an ACTION so plans can use it.
func (k *Kernel) learnStatementLocked(st intent.Statement, res *TurnResult) []LearnedEvent {
	res.Route = RouteStatement
	res.Intent = schemas.IntentResult{Intent: schemas.IntentStatement, Score: 1, Method: MethodStructural}

	if st.Relation == schemas.RelProduces {
		k.ensureAction(st.Subject)
	} else {
		k.graph.AddNode(st.Subject, schemas.NodeConcept, &schemas.ConceptPayload{Label: st.Subject}, schemas.LayerSemantic)
	}
	k.graph.AddNode(st.Object, schemas.NodeConcept, &schemas.ConceptPayload{Label: st.Object}, schemas.LayerSemantic)
	k.graph.AddEdge(st.Subject, st.Object, st.Relation, 0)
	belief := k.graph.AssertBelief(st.Subject+" "+st.Verb+" "+st.Object, statementConfidence, userSource)
	if belief != nil {
		k.graph.AddEdge(belief.ID, st.Subject, schemas.RelRelatedTo, 0)
	}

	res.Response = k.lang.Generate(schemas.IntentStatement, nil, linguistics.Vars{
		linguistics.VarRef1: st.Subject,
		linguistics.VarQual: st.Verb + " " + st.Object,
	})
	return []LearnedEvent{{Kind: string(st.Relation), From: st.Subject, To: st.Object}}
}

func (k *Kernel) ensureAction(id string) {
	action := &schemas.ActionPayload{Command: id, Description: id}
	if _, created := k.graph.AddNode(id, schemas.NodeAction, action, schemas.LayerSemantic); created {
		return
	}
	k.graph.UpdateNode(id, func(n *schemas.Node) {
		if n.Kind == schemas.NodeAction || n.Protected() {
			return
		}
		n.Kind = schemas.NodeAction
		n.Payload = action
	})
}

// lowConfidenceLocked follows learned aliases before falling back to
// curiosity. An alias chain ending on an intent answers as that intent; one
// ending on a built-in action runs it; any other target is offered back.
func (k *Kernel) lowConfidenceLocked(text string, recent []string, res *TurnResult) []LearnedEvent {
	if m, ok := k.intents.Match(text); ok && m.Hops > 0 {
		if node, found := k.graph.GetNode(m.NodeID); found {
			switch {
			case node.Kind == schemas.NodeIntent && node.ID != schemas.IntentUnknown:
				res.Intent = schemas.IntentResult{Intent: node.ID, Score: m.Score, Method: MethodAlias}
				k.respondLocked(text, res)
				return nil
			case node.Kind == schemas.NodeAction && node.System:
				k.runActionLocked(node, res)
				return nil
			default:
				res.Route = RouteAlias
				res.Intent.Method = MethodAlias
				res.Response = k.lang.Generate(linguistics.FamilyAction, nil, linguistics.Vars{
					linguistics.VarRef1: lexicon.Normalize(text),
					linguistics.VarAct:  k.label(node.ID),
				})
				return nil
			}
		}
	}

	cr := k.curiosity.HandleUnknown(text, k.topics(res.Entities), recent)
	res.Route = RouteCuriosity
	res.Curiosity = cr.Mode
	res.Response = cr.Response
	return nil
}

// runActionLocked executes a built-in action.
func (k *Kernel) runActionLocked(node *schemas.Node, res *TurnResult) {
	res.Route = RouteAction
	res.Intent.Method = MethodAlias
	switch node.ID {
	case ActionReflectID:
		report := k.reflectLocked(context.Background())
		k.log.Info("Reflection requested in conversation", zap.Int("pruned_nodes", report.PrunedNodes))
	case ActionSaveID:
		if err := k.saveLocked(context.Background()); err == nil {
			k.dirty = false
		}
	}
	res.Response = k.lang.Generate(linguistics.FamilyExecuted, nil, linguistics.Vars{
		linguistics.VarAct: k.label(node.ID),
	})
}

// respondLocked generates the reply for a classified intent.
func (k *Kernel) respondLocked(text string, res *TurnResult) {
	res.Route = RouteGenerate
	switch res.Intent.Intent {
	case schemas.IntentFactQuery:
		subject, facts := k.subjectFacts(res.Entities)
		if facts == "" {
			ref := subject
			if ref == "" {
				ref = k.residualTopic(text)
			}
			res.Response = k.lang.Generate(linguistics.FamilyUnknownFact, nil, linguistics.Vars{linguistics.VarRef1: ref})
			return
		}
		res.Response = k.lang.Generate(schemas.IntentFactQuery, nil, linguistics.Vars{
			linguistics.VarRef1: subject,
			linguistics.VarQual: facts,
		})
	case schemas.IntentIdentityQuery:
		self := selfIdentity
		if node, ok := k.graph.GetNode(SelfID); ok {
			if p, ok := node.Payload.(*schemas.IdentityPayload); ok {
				self = *p
			}
		}
		res.Response = k.lang.Generate(schemas.IntentIdentityQuery, nil, linguistics.Vars{
			linguistics.VarRef1: self.Name,
			linguistics.VarQual: self.Description,
		})
	case schemas.IntentPlanQuery:
		goal, _ := intent.DetectPlanQuery(text)
		if goal == "" {
			goal = firstSubject(k.topics(res.Entities))
		}
		steps, ok := k.plan(goal)
		if !ok {
			ref := goal
			if ref == "" {
				ref = "do that"
			}
			res.Response = k.lang.Generate(linguistics.FamilyNoPlan, nil, linguistics.Vars{linguistics.VarRef1: ref})
			return
		}
		res.Response = k.lang.Generate(schemas.IntentPlanQuery, nil, linguistics.Vars{
			linguistics.VarRef1: goal,
			linguistics.VarAct:  strings.Join(steps, ", then "),
		})
	default:
		res.Response = k.lang.Generate(res.Intent.Intent, k.topics(res.Entities), nil)
	}
}

// plan tries the goal and then its shorter tails, so "make tea" falls back
// to "tea". Steps are returned as readable labels.
func (k *Kernel) plan(goal string) ([]string, bool) {
	tokens := strings.Fields(lexicon.Normalize(goal))
	for i := range tokens {
		candidate := strings.Join(tokens[i:], " ")
		ids, ok := k.graph.Plan(candidate)
		if !ok || len(ids) == 0 {
			continue
		}
		steps := make([]string, len(ids))
		for j, id := range ids {
			steps[j] = k.label(id)
		}
		return steps, true
	}
	return nil, false
}

var factPhrases = map[schemas.RelationshipType]string{
	schemas.RelIsA:       "is a",
	schemas.RelIs:        "is",
	schemas.RelHas:       "has",
	schemas.RelCan:       "can",
	schemas.RelMeans:     "means",
	schemas.RelRequires:  "requires",
	schemas.RelProduces:  "produces",
	schemas.RelRelatedTo: "relates to",
}

// subjectFacts picks the first entity the graph knows facts about and
// phrases its strongest facts. Without facts it still returns the subject.
func (k *Kernel) subjectFacts(entities []schemas.Entity) (string, string) {
	subject := ""
	for _, e := range entities {
		if e.Type == schemas.EntitySentiment || e.Text == "" {
			continue
		}
		id := e.NodeID
		if id == "" {
			id = lexicon.Normalize(e.Text)
		}
		if node, ok := k.graph.GetNode(id); ok && node.System {
			continue
		}
		if subject == "" {
			subject = e.Text
		}
		if facts := k.describe(id); facts != "" {
			return e.Text, facts
		}
	}
	return subject, ""
}

func (k *Kernel) describe(id string) string {
	var edges []schemas.Edge
	for _, e := range k.graph.Neighbors(id) {
		if _, ok := factPhrases[e.Kind]; ok {
			edges = append(edges, e)
		}
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
	if len(edges) > maxFacts {
		edges = edges[:maxFacts]
	}
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = factPhrases[e.Kind] + " " + k.label(e.To)
	}
	return strings.Join(parts, " and ")
}

// residualTopic is what remains of text after dropping stop words and the
// kernel's own trigger words, or "that" when nothing remains.
func (k *Kernel) residualTopic(text string) string {
	var words []string
	for _, tok := range lexicon.Tokenize(text) {
		if lexicon.IsStopWord(tok) {
			continue
		}
		if node, ok := k.graph.GetNode(tok); ok && node.System {
			continue
		}
		words = append(words, tok)
	}
	if len(words) == 0 {
		return "that"
	}
	return strings.Join(words, " ")
}

// label returns a readable name for a node.
func (k *Kernel) label(id string) string {
	node, ok := k.graph.GetNode(id)
	if !ok {
		return id
	}
	switch p := node.Payload.(type) {
	case *schemas.ActionPayload:
		if p.Description != "" {
			return p.Description
		}
		if p.Command != "" {
			return p.Command
		}
	case *schemas.ConceptPayload:
		if p.Label != "" {
			return p.Label
		}
	case *schemas.IdentityPayload:
		return p.Name
	case *schemas.IntentPayload:
		return p.Label
	}
	return id
}

// topics drops entities backed by the kernel's own seeded nodes, such as
// trigger words, so templates do not echo them back.
func (k *Kernel) topics(entities []schemas.Entity) []schemas.Entity {
	out := make([]schemas.Entity, 0, len(entities))
	for _, e := range entities {
		if e.NodeID != "" {
			if node, ok := k.graph.GetNode(e.NodeID); ok && node.System {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func firstSubject(entities []schemas.Entity) string {
	for _, e := range entities {
		if e.Type != schemas.EntitySentiment && e.Text != "" {
			return e.Text
		}
	}
	return ""
}

// concludeLocked predicts, scores and logs the turn, then assigns the reward.
func (k *Kernel) concludeLocked(res *TurnResult) {
	if res.Intent.Intent == "" {
		res.Intent.Intent = schemas.IntentUnknown
	}
	res.Prediction = k.expect.Predict(res.Intent.Intent, k.topics(res.Entities), k.history)
	res.Adequacy = k.expect.CheckAdequacy(res.Prediction, res.Response, nil)

	k.history = append(k.history, res.Intent.Intent)
	if limit := k.cfg.Kernel().HistorySize; limit > 0 && len(k.history) > limit {
		k.history = k.history[len(k.history)-limit:]
	}

	entityIDs := make([]string, 0, len(res.Entities))
	for _, e := range res.Entities {
		if e.NodeID != "" {
			entityIDs = append(entityIDs, e.NodeID)
		}
	}
	res.InteractionID = k.reflector.LogInteraction(reflection.Interaction{
		At:       k.now(),
		Input:    res.Input,
		Intent:   res.Intent.Intent,
		Entities: entityIDs,
		Beliefs:  k.graph.TopByActivation(schemas.NodeBelief, 0),
		Response: res.Response,
		Adequacy: res.Adequacy.Score,
	})
	if reward, ok := k.reflector.AssignReward(res.InteractionID); ok {
		res.Reward = reward
	}
}
