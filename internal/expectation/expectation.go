// Package expectation predicts the shape of a good reply and scores how well
// an actual reply met it.
package expectation

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
)

// repeatDiscount is applied when the previous turn had the same intent.
const repeatDiscount = 0.9

type rule struct {
	responseType schemas.ResponseType
	confidence   float64
	// subjectConfidence replaces confidence when the turn has a subject;
	// zero means the rule does not expect one.
	subjectConfidence float64
}

var table = map[string]rule{
	schemas.IntentGreeting:        {responseType: schemas.ResponseGreeting, confidence: 0.95},
	schemas.IntentFarewell:        {responseType: schemas.ResponseFarewell, confidence: 0.95},
	schemas.IntentGratitude:       {responseType: schemas.ResponseAcknowledgement, confidence: 0.9},
	schemas.IntentFactQuery:       {responseType: schemas.ResponseFactual, confidence: 0.4, subjectConfidence: 0.8},
	schemas.IntentIdentityQuery:   {responseType: schemas.ResponseIdentity, confidence: 0.9},
	schemas.IntentCapabilityQuery: {responseType: schemas.ResponseCapability, confidence: 0.85},
	schemas.IntentPlanQuery:       {responseType: schemas.ResponsePlan, confidence: 0.4, subjectConfidence: 0.7},
	schemas.IntentStatement:       {responseType: schemas.ResponseAcknowledgement, confidence: 0.8},
	schemas.IntentTeaching:        {responseType: schemas.ResponseAcknowledgement, confidence: 0.8},
	schemas.IntentConfirmation:    {responseType: schemas.ResponseAcknowledgement, confidence: 0.8},
}

var fallbackRule = rule{responseType: schemas.ResponseClarification, confidence: 0.3}

type marker struct {
	words   []string
	penalty float64
	reason  string
}

// markers lists the substrings a response of each type should contain.
var markers = map[schemas.ResponseType]marker{
	schemas.ResponseGreeting:        {[]string{"hello", "hi", "hey", "greetings", "good"}, 0.6, "greeting marker missing"},
	schemas.ResponseFarewell:        {[]string{"bye", "see you", "farewell", "later"}, 0.6, "farewell marker missing"},
	schemas.ResponseAcknowledgement: {[]string{"thank", "welcome", "noted", "understood", "got it", "ok", "learned", "learnt"}, 0.7, "acknowledgement marker missing"},
	schemas.ResponseIdentity:        {[]string{"i am", "i'm", "my name", "genesis"}, 0.5, "identity marker missing"},
	schemas.ResponseCapability:      {[]string{"i can", "able to", "capab"}, 0.6, "capability marker missing"},
	schemas.ResponsePlan:            {[]string{"first", "then", "step", "->"}, 0.6, "plan marker missing"},
	schemas.ResponseClarification:   {[]string{"?"}, 0.7, "clarification question missing"},
}

// uncertainty phrases make a factual answer inadequate.
var uncertainty = []string{"don't know", "do not know", "not sure", "no idea", "cognition active"}

// Record is one adequacy check kept in the history.
type Record struct {
	At           time.Time            `json:"at"`
	Intent       string               `json:"intent"`
	ResponseType schemas.ResponseType `json:"responseType"`
	Adequacy     float64              `json:"adequacy"`
	Reason       string               `json:"reason,omitempty"`
}

// TypeStats aggregates the checks of one response type.
type TypeStats struct {
	Count        int     `json:"count" yaml:"count"`
	MeanAdequacy float64 `json:"meanAdequacy" yaml:"mean_adequacy"`
}

// Stats aggregates the whole history.
type Stats struct {
	Total        int                                `json:"total" yaml:"total"`
	MeanAdequacy float64                            `json:"meanAdequacy" yaml:"mean_adequacy"`
	ByType       map[schemas.ResponseType]TypeStats `json:"byType" yaml:"by_type"`
}

// Module predicts and scores responses. The history is append only.
type Module struct {
	mu      sync.RWMutex
	history []Record
	now     func() time.Time
	log     *zap.Logger
}

// New creates an expectation module.
func New(logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{now: time.Now, log: logger.Named("expectation")}
}

// Predict looks up the expected response for intent. history holds the
// intents of previous turns, oldest first; repeating the last one discounts
// confidence by 10%.
func (m *Module) Predict(intent string, entities []schemas.Entity, history []string) schemas.Prediction {
	r, ok := table[intent]
	if !ok {
		r = fallbackRule
	}
	pred := schemas.Prediction{
		Intent:           intent,
		ResponseType:     r.responseType,
		ExpectedEntities: []string{},
		Confidence:       r.confidence,
	}
	if r.subjectConfidence > 0 {
		if subject, ok := subjectOf(entities); ok {
			pred.ExpectedEntities = append(pred.ExpectedEntities, subject)
			pred.Confidence = r.subjectConfidence
		}
	}
	if n := len(history); n > 0 && history[n-1] == intent {
		pred.Confidence *= repeatDiscount
	}
	return pred
}

// subjectOf picks the first entity that can be the topic of a question.
func subjectOf(entities []schemas.Entity) (string, bool) {
	for _, e := range entities {
		if e.Type != schemas.EntitySentiment && e.Text != "" {
			return e.Text, true
		}
	}
	return "", false
}

// CheckAdequacy scores response against pred. The score starts at 1, is
// multiplied by a penalty when the markers of the response type are absent,
// by 0.5 + 0.5*coverage when entities were expected, and finally by
// 0.7 + 0.3*confidence. The result is appended to the history.
func (m *Module) CheckAdequacy(pred schemas.Prediction, response string, entities []schemas.Entity) schemas.Adequacy {
	lower := strings.ToLower(response)
	score := 1.0
	var reasons []string

	if mk, ok := markers[pred.ResponseType]; ok && !containsAny(lower, mk.words) {
		score *= mk.penalty
		reasons = append(reasons, mk.reason)
	}
	if pred.ResponseType == schemas.ResponseFactual && containsAny(lower, uncertainty) {
		score *= 0.5
		reasons = append(reasons, "answer admits uncertainty")
	}

	if len(pred.ExpectedEntities) > 0 {
		matched := 0
		for _, want := range pred.ExpectedEntities {
			if covered(want, lower, entities) {
				matched++
			}
		}
		coverage := float64(matched) / float64(len(pred.ExpectedEntities))
		score *= 0.5 + 0.5*coverage
		if matched < len(pred.ExpectedEntities) {
			reasons = append(reasons, "expected entities missing")
		}
	}

	score *= 0.7 + 0.3*pred.Confidence
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	adequacy := schemas.Adequacy{Score: score, MismatchReason: strings.Join(reasons, "; ")}

	m.mu.Lock()
	m.history = append(m.history, Record{
		At:           m.now(),
		Intent:       pred.Intent,
		ResponseType: pred.ResponseType,
		Adequacy:     score,
		Reason:       adequacy.MismatchReason,
	})
	m.mu.Unlock()

	m.log.Debug("Adequacy checked",
		zap.String("type", string(pred.ResponseType)),
		zap.Float64("adequacy", score),
		zap.String("reason", adequacy.MismatchReason))
	return adequacy
}

func covered(want, response string, entities []schemas.Entity) bool {
	w := strings.ToLower(want)
	if strings.Contains(response, w) {
		return true
	}
	for _, e := range entities {
		if strings.ToLower(e.Text) == w {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// History returns a copy of every recorded check.
func (m *Module) History() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.history...)
}

// Stats returns mean adequacy overall and per response type.
func (m *Module) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Total: len(m.history), ByType: make(map[schemas.ResponseType]TypeStats)}
	sums := make(map[schemas.ResponseType]float64)
	var total float64
	for _, r := range m.history {
		ts := stats.ByType[r.ResponseType]
		ts.Count++
		stats.ByType[r.ResponseType] = ts
		sums[r.ResponseType] += r.Adequacy
		total += r.Adequacy
	}
	for typ, ts := range stats.ByType {
		ts.MeanAdequacy = sums[typ] / float64(ts.Count)
		stats.ByType[typ] = ts
	}
	if stats.Total > 0 {
		stats.MeanAdequacy = total / float64(stats.Total)
	}
	return stats
}
