package intent

import "github.com/baihaki00/sentra-sub000/api/schemas"

// DefaultCorpus is the example set the semantic classifier is fitted on.
var DefaultCorpus = map[string][]string{
	schemas.IntentGreeting: {
		"hello", "hi", "hey", "hello there", "hi there", "good morning",
		"good afternoon", "good evening", "greetings", "howdy",
	},
	schemas.IntentFarewell: {
		"goodbye", "bye", "see you later", "see you soon", "farewell",
		"good night", "talk to you later", "i have to go",
	},
	schemas.IntentGratitude: {
		"thanks", "thank you", "thanks a lot", "thank you very much",
		"much appreciated", "i appreciate it",
	},
	schemas.IntentFactQuery: {
		"what is machine learning", "what is a dog", "tell me about paris",
		"what do you know about python", "explain gravity", "what are planets",
		"describe the ocean",
	},
	schemas.IntentIdentityQuery: {
		"who are you", "what is your name", "what are you",
		"tell me about yourself", "introduce yourself",
	},
	schemas.IntentCapabilityQuery: {
		"what can you do", "what are your abilities", "can you help me",
		"how can you help", "what do you know how to do",
	},
	schemas.IntentPlanQuery: {
		"how do i make tea", "how can i learn go", "how do i get there",
		"what steps do i need",
	},
}

// TriggerWords maps single surface words to the intent they trigger in a
// freshly seeded graph.
var TriggerWords = map[string]string{
	"hello":    schemas.IntentGreeting,
	"hi":       schemas.IntentGreeting,
	"hey":      schemas.IntentGreeting,
	"morning":  schemas.IntentGreeting,
	"goodbye":  schemas.IntentFarewell,
	"bye":      schemas.IntentFarewell,
	"farewell": schemas.IntentFarewell,
	"thanks":   schemas.IntentGratitude,
	"thank":    schemas.IntentGratitude,
	"what":     schemas.IntentFactQuery,
	"explain":  schemas.IntentFactQuery,
	"who":      schemas.IntentIdentityQuery,
	"yourself": schemas.IntentIdentityQuery,
	"help":     schemas.IntentCapabilityQuery,
	"how":      schemas.IntentPlanQuery,
	"steps":    schemas.IntentPlanQuery,
}
