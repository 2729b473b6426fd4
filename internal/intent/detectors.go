package intent

import (
	"regexp"
	"strings"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

// Confirmation is a yes/no answer.
type Confirmation struct {
	Affirmative bool
	Word        string
}

// Statement is a declarative "subject verb object" sentence.
type Statement struct {
	Subject  string
	Verb     string
	Object   string
	Relation schemas.RelationshipType
}

// Teaching is an explicit "X means Y" instruction.
type Teaching struct {
	Trigger string
	Target  string
}

var (
	affirmatives = map[string]struct{}{
		"yes": {}, "yeah": {}, "yep": {}, "yup": {}, "sure": {}, "correct": {},
		"right": {}, "exactly": {}, "affirmative": {}, "ok": {}, "okay": {}, "indeed": {},
	}
	negatives = map[string]struct{}{
		"no": {}, "nope": {}, "nah": {}, "wrong": {}, "incorrect": {}, "negative": {},
	}

	statementPattern = regexp.MustCompile(`(?i)^\s*(?:the\s+|a\s+|an\s+)?(.+?)\s+(is an|is a|is|are|has|have|can|requires|require|produces|produce)\s+(.+?)[.!]*\s*$`)
	questionStart    = regexp.MustCompile(`(?i)^\s*(what|who|whom|whose|why|where|when|how|which|is|are|can|do|does|did|will|would|should|could)\b`)

	teachWhenISay = regexp.MustCompile(`(?i)^\s*when\s+i\s+say\s+["']?(.+?)["']?\s*,?\s+(?:it\s+|that\s+)?means?\s+["']?(.+?)["']?[.!]*\s*$`)
	teachMeans    = regexp.MustCompile(`(?i)^\s*["']?(.+?)["']?\s+means\s+["']?(.+?)["']?[.!]*\s*$`)

	planQuery = regexp.MustCompile(`(?i)^\s*how\s+(?:do|can|should|would)\s+(?:i|we|you|one)\s+(.+?)\s*\??\s*$`)
)

var verbRelations = map[string]schemas.RelationshipType{
	"is a":     schemas.RelIsA,
	"is an":    schemas.RelIsA,
	"is":       schemas.RelIs,
	"are":      schemas.RelIs,
	"has":      schemas.RelHas,
	"have":     schemas.RelHas,
	"can":      schemas.RelCan,
	"requires": schemas.RelRequires,
	"require":  schemas.RelRequires,
	"produces": schemas.RelProduces,
	"produce":  schemas.RelProduces,
}

// DetectConfirmation recognizes a short yes or no answer. The first word
// decides; answers longer than four words are not confirmations.
func DetectConfirmation(text string) (Confirmation, bool) {
	tokens := lexicon.Tokenize(text)
	if len(tokens) == 0 || len(tokens) > 4 {
		return Confirmation{}, false
	}
	first := tokens[0]
	if _, ok := affirmatives[first]; ok {
		return Confirmation{Affirmative: true, Word: first}, true
	}
	if _, ok := negatives[first]; ok {
		return Confirmation{Affirmative: false, Word: first}, true
	}
	return Confirmation{}, false
}

// DetectStatement recognizes "subject (is|is a|is an|are|has|can|requires|
// produces) object". Questions never match.
func DetectStatement(text string) (Statement, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasSuffix(trimmed, "?") || questionStart.MatchString(trimmed) {
		return Statement{}, false
	}
	m := statementPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Statement{}, false
	}
	verb := strings.ToLower(m[2])
	subject := lexicon.Normalize(m[1])
	object := lexicon.Normalize(stripArticle(m[3]))
	if subject == "" || object == "" {
		return Statement{}, false
	}
	return Statement{Subject: subject, Verb: verb, Object: object, Relation: verbRelations[verb]}, true
}

// DetectTeaching recognizes "when I say X it means Y" and "X means Y".
func DetectTeaching(text string) (Teaching, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return Teaching{}, false
	}
	m := teachWhenISay.FindStringSubmatch(trimmed)
	if m == nil {
		m = teachMeans.FindStringSubmatch(trimmed)
	}
	if m == nil {
		return Teaching{}, false
	}
	trigger, target := lexicon.Normalize(m[1]), lexicon.Normalize(m[2])
	if trigger == "" || target == "" || trigger == target {
		return Teaching{}, false
	}
	return Teaching{Trigger: trigger, Target: target}, true
}

// DetectPlanQuery recognizes "how do I X" and returns the goal X.
func DetectPlanQuery(text string) (string, bool) {
	m := planQuery.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	goal := lexicon.Normalize(m[1])
	return goal, goal != ""
}

func stripArticle(s string) string {
	lower := strings.ToLower(s)
	for _, a := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, a) {
			return s[len(a):]
		}
	}
	return s
}
