package schemas

// -- Intents --

// Intent identifiers seeded into every graph. Intents are ordinary INTENT nodes
// and new ones may be taught at runtime.
const (
	IntentUnknown         = "INTENT:UNKNOWN"
	IntentGreeting        = "INTENT:GREETING"
	IntentFarewell        = "INTENT:FAREWELL"
	IntentGratitude       = "INTENT:GRATITUDE"
	IntentFactQuery       = "INTENT:FACT_QUERY"
	IntentIdentityQuery   = "INTENT:IDENTITY_QUERY"
	IntentCapabilityQuery = "INTENT:CAPABILITY_QUERY"
	IntentPlanQuery       = "INTENT:PLAN_QUERY"
	IntentStatement       = "INTENT:STATEMENT"
	IntentTeaching        = "INTENT:TEACHING"
	IntentConfirmation    = "INTENT:CONFIRMATION"
)

// IntentResult is the outcome of a classification step.
type IntentResult struct {
	Intent string  `json:"intent"`
	Score  float64 `json:"score"`
	// Method names the signal (or combination) that produced the result.
	Method string `json:"method"`
}

// -- Entities --

// EntityType is the inferred semantic type of an entity.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityLocation     EntityType = "LOCATION"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityTechnology   EntityType = "TECHNOLOGY"
	EntityDate         EntityType = "DATE"
	EntityConcept      EntityType = "CONCEPT"
	EntitySentiment    EntityType = "SENTIMENT"
	EntityLiteral      EntityType = "LITERAL"
)

// EntitySource tells how an entity was found.
type EntitySource string

const (
	SourceKnownPhrase EntitySource = "KNOWN_PHRASE"
	SourceKnownNode   EntitySource = "KNOWN_NODE"
	SourcePotential   EntitySource = "POTENTIAL"
	SourceLiteral     EntitySource = "LITERAL"
	SourceSentiment   EntitySource = "SENTIMENT"
)

// Entity is a typed mention extracted from raw text.
type Entity struct {
	Text       string       `json:"text"`
	Type       EntityType   `json:"type"`
	Source     EntitySource `json:"source"`
	Confidence float64      `json:"confidence"`
	// NodeID is set when the entity is backed by a graph node.
	NodeID string `json:"nodeId,omitempty"`
	// Valence is +1/-1 for SENTIMENT entities.
	Valence int `json:"valence,omitempty"`
}

// -- Attention --

// RankedNode is a node selected into the working set with its relevance.
type RankedNode struct {
	ID        string  `json:"id"`
	Relevance float64 `json:"relevance"`
	Source    string  `json:"source"`
}

// -- Expectation --

// ResponseType is the expected shape of a response.
type ResponseType string

const (
	ResponseGreeting        ResponseType = "GREETING"
	ResponseFarewell        ResponseType = "FAREWELL"
	ResponseFactual         ResponseType = "FACTUAL"
	ResponseIdentity        ResponseType = "IDENTITY"
	ResponseCapability      ResponseType = "CAPABILITY"
	ResponsePlan            ResponseType = "PLAN"
	ResponseAcknowledgement ResponseType = "ACKNOWLEDGEMENT"
	ResponseClarification   ResponseType = "CLARIFICATION"
)

// Prediction describes what a good response to the current turn looks like.
type Prediction struct {
	Intent           string       `json:"intent"`
	ResponseType     ResponseType `json:"responseType"`
	ExpectedEntities []string     `json:"expectedEntities"`
	Confidence       float64      `json:"confidence"`
}

// Adequacy scores how well an actual response met a prediction.
type Adequacy struct {
	Score          float64 `json:"adequacy"`
	MismatchReason string  `json:"mismatchReason,omitempty"`
}

// -- Curiosity --

// CuriosityMode is the policy chosen when no intent is confidently recognized.
type CuriosityMode string

const (
	CuriositySentiment CuriosityMode = "SENTIMENT"
	CuriosityClarify   CuriosityMode = "CLARIFY"
	CuriosityInfer     CuriosityMode = "INFER"
	CuriosityTeach     CuriosityMode = "TEACH"
	CuriosityLog       CuriosityMode = "LOG"
)

// PendingConfirmation is conversational state awaiting a yes/no answer.
type PendingConfirmation struct {
	Mode  CuriosityMode `json:"mode"`
	Input string        `json:"input"`
	// Candidate is the node the kernel proposes to associate with Input.
	Candidate string `json:"candidate,omitempty"`
}

// CuriosityResult is the reply produced for unrecognized input.
type CuriosityResult struct {
	Response string               `json:"response"`
	Mode     CuriosityMode        `json:"mode"`
	Pending  *PendingConfirmation `json:"pending,omitempty"`
}
