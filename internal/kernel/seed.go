package kernel

import (
	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/intent"
	"github.com/baihaki00/sentra-sub000/internal/knowledgegraph"
)

// Node ids seeded into every graph besides the intents.
const (
	SelfID          = "IDENTITY:GENESIS"
	ActionReflectID = "ACTION:REFLECT"
	ActionSaveID    = "ACTION:SAVE"
)

var intentLabels = map[string]string{
	schemas.IntentUnknown:         "unknown",
	schemas.IntentGreeting:        "greeting",
	schemas.IntentFarewell:        "farewell",
	schemas.IntentGratitude:       "gratitude",
	schemas.IntentFactQuery:       "fact query",
	schemas.IntentIdentityQuery:   "identity query",
	schemas.IntentCapabilityQuery: "capability query",
	schemas.IntentPlanQuery:       "plan query",
	schemas.IntentStatement:       "statement",
	schemas.IntentTeaching:        "teaching",
	schemas.IntentConfirmation:    "confirmation",
}

var selfIdentity = schemas.IdentityPayload{
	Name:        "Genesis",
	Description: "an associative memory that learns from what you tell me",
}

// builtinActions are commands the kernel runs itself when an input resolves
// to them. Each maps to the surface words aliased onto it.
var builtinActions = []struct {
	id      string
	payload schemas.ActionPayload
	aliases []string
}{
	{ActionReflectID, schemas.ActionPayload{Command: "reflect", Description: "reflect on what I have learned"}, []string{"reflect", "sleep", "dream"}},
	{ActionSaveID, schemas.ActionPayload{Command: "save", Description: "save my memory"}, []string{"save", "checkpoint"}},
}

// seed installs the kernel's own nodes. It is idempotent: existing nodes are
// only marked as system and existing edges are not reinforced, so seeding a
// loaded graph does not drift its weights.
func seed(g *knowledgegraph.Graph) {
	for id, label := range intentLabels {
		g.AddSystemNode(id, schemas.NodeIntent, &schemas.IntentPayload{Label: label}, schemas.LayerMeta)
	}

	self := selfIdentity
	g.AddSystemNode(SelfID, schemas.NodeIdentity, &self, schemas.LayerMeta)
	addOnce(g, schemas.IntentIdentityQuery, SelfID, schemas.RelRelatedTo)

	for word, intentID := range intent.TriggerWords {
		g.AddSystemNode(word, schemas.NodeConcept, &schemas.ConceptPayload{Label: word}, schemas.LayerSemantic)
		addOnce(g, word, intentID, schemas.RelTriggers)
	}

	for _, a := range builtinActions {
		payload := a.payload
		g.AddSystemNode(a.id, schemas.NodeAction, &payload, schemas.LayerMeta)
		for _, alias := range a.aliases {
			g.AddSystemNode(alias, schemas.NodeAlias, &schemas.ConceptPayload{Label: alias}, schemas.LayerSemantic)
			addOnce(g, alias, a.id, schemas.RelAlias)
		}
	}
}

func addOnce(g *knowledgegraph.Graph, from, to string, kind schemas.RelationshipType) {
	if g.HasEdge(from, kind, to) {
		return
	}
	g.AddEdge(from, to, kind, schemas.DefaultEdgeWeight)
}
