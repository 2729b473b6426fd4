package schemas

import "time"

// Payload is the kind-specific data carried by a node. Each node kind has
// exactly one concrete payload type, selected by NewPayload.
type Payload interface {
	isPayload()
}

// ConceptPayload is carried by CONCEPT and ALIAS nodes.
type ConceptPayload struct {
	Label      string     `json:"label,omitempty"`
	EntityType EntityType `json:"entityType,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
}

// PerceptPayload records raw perceived text.
type PerceptPayload struct {
	Text        string `json:"text"`
	Occurrences int    `json:"occurrences"`
}

// ActionPayload describes an executable action.
type ActionPayload struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// IntentPayload describes an intent and how often it was recently used.
type IntentPayload struct {
	Label string  `json:"label"`
	Usage int     `json:"usage"`
	Share float64 `json:"share"`
}

// IdentityPayload holds self-knowledge of the kernel.
type IdentityPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BeliefPayload holds a proposition and the confidence placed in it.
type BeliefPayload struct {
	Proposition string  `json:"proposition"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
	UpdateCount int     `json:"updateCount"`
}

// EventPayload records something that happened during a conversation.
type EventPayload struct {
	Description string    `json:"description"`
	Intent      string    `json:"intent,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	At          time.Time `json:"at"`
}

func (*ConceptPayload) isPayload()  {}
func (*PerceptPayload) isPayload()  {}
func (*ActionPayload) isPayload()   {}
func (*IntentPayload) isPayload()   {}
func (*IdentityPayload) isPayload() {}
func (*BeliefPayload) isPayload()   {}
func (*EventPayload) isPayload()    {}

// NewPayload returns an empty payload of the type matching kind.
func NewPayload(kind NodeKind) Payload {
	switch kind {
	case NodePercept:
		return &PerceptPayload{}
	case NodeAction:
		return &ActionPayload{}
	case NodeIntent:
		return &IntentPayload{}
	case NodeIdentity:
		return &IdentityPayload{}
	case NodeBelief:
		return &BeliefPayload{}
	case NodeEvent:
		return &EventPayload{}
	default:
		return &ConceptPayload{}
	}
}

// ClonePayload copies a payload. Every payload type holds only values, so a
// shallow struct copy is a deep copy.
func ClonePayload(p Payload) Payload {
	switch v := p.(type) {
	case *ConceptPayload:
		c := *v
		return &c
	case *PerceptPayload:
		c := *v
		return &c
	case *ActionPayload:
		c := *v
		return &c
	case *IntentPayload:
		c := *v
		return &c
	case *IdentityPayload:
		c := *v
		return &c
	case *BeliefPayload:
		c := *v
		return &c
	case *EventPayload:
		c := *v
		return &c
	}
	return nil
}

// PayloadMatches reports whether p is the concrete type expected for kind.
func PayloadMatches(kind NodeKind, p Payload) bool {
	switch p.(type) {
	case *ConceptPayload:
		return kind == NodeConcept || kind == NodeAlias
	case *PerceptPayload:
		return kind == NodePercept
	case *ActionPayload:
		return kind == NodeAction
	case *IntentPayload:
		return kind == NodeIntent
	case *IdentityPayload:
		return kind == NodeIdentity
	case *BeliefPayload:
		return kind == NodeBelief
	case *EventPayload:
		return kind == NodeEvent
	}
	return false
}
