package linguistics

import "github.com/baihaki00/sentra-sub000/api/schemas"

// Template families that are not intents.
const (
	FamilyUnknownFact   = "RESPONSE:UNKNOWN_FACT"
	FamilyNoPlan        = "RESPONSE:NO_PLAN"
	FamilyDenied        = "RESPONSE:DENIED"
	FamilyNothingToDo   = "RESPONSE:NOTHING_PENDING"
	FamilyAction        = "RESPONSE:ACTION"
	FamilyExecuted      = "RESPONSE:EXECUTED"
	FamilyCuriosityBase = "CURIOSITY:"
)

// CuriosityFamily returns the template family used for a curiosity mode.
func CuriosityFamily(mode schemas.CuriosityMode) string {
	return FamilyCuriosityBase + string(mode)
}

func t(template string, weight float64) schemas.PatternTemplate {
	return schemas.PatternTemplate{Template: template, Weight: weight}
}

// DefaultPatterns returns the templates written on first run.
func DefaultPatterns() schemas.PatternSet {
	return schemas.PatternSet{
		schemas.IntentGreeting: {
			t("Hello! How can I help you today?", 1),
			t("Hi there!", 1),
			t("Hello, ${REF1}!", 0.5),
		},
		schemas.IntentFarewell: {
			t("Goodbye! Talk to you later.", 1),
			t("See you soon!", 1),
		},
		schemas.IntentGratitude: {
			t("You're welcome!", 1),
			t("Happy to help, thank you for asking.", 1),
		},
		schemas.IntentFactQuery: {
			t("${REF1} ${QUAL}.", 1),
			t("From what I know, ${REF1} ${QUAL}.", 1),
		},
		schemas.IntentIdentityQuery: {
			t("I am ${REF1}, ${QUAL}.", 1),
			t("My name is ${REF1}.", 0.5),
		},
		schemas.IntentCapabilityQuery: {
			t("I can learn facts, remember associations and plan simple tasks.", 1),
			t("I am able to learn what words mean when you teach me.", 1),
		},
		schemas.IntentPlanQuery: {
			t("To ${REF1}, first ${ACT}.", 1),
			t("Here are the steps to ${REF1}: first ${ACT}.", 1),
		},
		schemas.IntentStatement: {
			t("Noted: ${REF1} ${QUAL}.", 1),
			t("Got it, ${REF1} ${QUAL}.", 1),
		},
		schemas.IntentTeaching: {
			t("Understood. When you say ${REF1}, you mean ${REF2}.", 1),
			t("Got it: ${REF1} means ${REF2}.", 1),
		},
		schemas.IntentConfirmation: {
			t("OK, I will remember that ${REF1} relates to ${REF2}.", 1),
			t("Thanks, noted that ${REF1} goes with ${REF2}.", 1),
		},
		FamilyDenied: {
			t("OK, I will not link those.", 1),
			t("Understood, my mistake.", 1),
		},
		FamilyNothingToDo: {
			t("OK.", 1),
		},
		FamilyUnknownFact: {
			t("I don't know much about ${REF1} yet. Can you teach me?", 1),
			t("I'm not sure what ${REF1} is. What is it?", 1),
		},
		FamilyNoPlan: {
			t("I don't know how to ${REF1} yet. What does it require?", 1),
		},
		FamilyAction: {
			t("That means ${ACT}, right?", 1),
			t("You mean ${ACT}?", 1),
		},
		FamilyExecuted: {
			t("OK, I will ${ACT}.", 1),
			t("Sure, I will ${ACT} now.", 1),
		},
		CuriosityFamily(schemas.CuriositySentiment): {
			t("It sounds like you feel ${QUAL} about this. Tell me more?", 1),
			t("Why do you feel ${QUAL}?", 1),
		},
		CuriosityFamily(schemas.CuriosityClarify): {
			t(`What do you mean by "${REF1}"?`, 1),
			t(`Could you say more about "${REF1}"?`, 1),
		},
		CuriosityFamily(schemas.CuriosityInfer): {
			t("Are you asking about ${REF1}?", 1),
			t("Is this about ${REF1}?", 1),
		},
		CuriosityFamily(schemas.CuriosityTeach): {
			t(`You have said "${REF1}" a few times. What does it mean?`, 1),
		},
		CuriosityFamily(schemas.CuriosityLog): {
			t("I don't understand that yet, but I will remember it. Can you rephrase?", 1),
			t("Interesting. I'm still learning about that. What do you mean?", 1),
		},
	}
}
