package entity

import (
	"regexp"
	"strings"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

var knownTechnologies = map[string]struct{}{
	"go": {}, "golang": {}, "python": {}, "java": {}, "javascript": {}, "typescript": {},
	"rust": {}, "c++": {}, "ruby": {}, "php": {}, "kotlin": {}, "swift": {},
	"linux": {}, "windows": {}, "docker": {}, "kubernetes": {}, "git": {},
	"postgres": {}, "postgresql": {}, "sql": {}, "react": {}, "node.js": {},
	"html": {}, "css": {}, "tensorflow": {}, "pytorch": {}, "ai": {},
}

// typeKeywords are context words that hint at the type of an entity they
// co-occur with. Checked in typeOrder.
var typeKeywords = map[schemas.EntityType][]string{
	schemas.EntityPerson:       {"he", "she", "met", "friend", "named", "mr", "mrs", "dr", "born"},
	schemas.EntityLocation:     {"city", "country", "capital", "visit", "travel", "located", "town", "live", "where"},
	schemas.EntityOrganization: {"company", "corporation", "startup", "employer", "organization", "works", "founded"},
	schemas.EntityTechnology:   {"programming", "language", "framework", "library", "code", "software", "install"},
	schemas.EntityDate:         {"when", "date", "day", "year", "month"},
}

var typeOrder = []schemas.EntityType{
	schemas.EntityTechnology,
	schemas.EntityPerson,
	schemas.EntityLocation,
	schemas.EntityOrganization,
	schemas.EntityDate,
}

var (
	orgMarker = regexp.MustCompile(`(?i)\b(inc|corp|corporation|ltd|llc|gmbh|university|institute|foundation|company)\.?$`)
	locMarker = regexp.MustCompile(`(?i)^(mount|lake|fort|port|saint|st\.?)\s|\s(city|river|lake|mountain|island|street|avenue|county|valley|bay)$`)
	dateLike  = regexp.MustCompile(`(?i)^(\d{4}|\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?|\d{1,2}:\d{2}(\s?[ap]m)?|today|tomorrow|yesterday|monday|tuesday|wednesday|thursday|friday|saturday|sunday|january|february|march|april|may|june|july|august|september|october|november|december)$`)
)

// InferEntityType guesses the type of text given the surrounding context.
// Rules apply in order: known technology, context keyword co-occurrence,
// organization and location markers, date or time, multi-word phrase as
// CONCEPT, a single capitalized word as PERSON when the context asks "who"
// or mentions a name, all caps as ORGANIZATION, then CONCEPT.
func InferEntityType(text, context string) schemas.EntityType {
	lower := strings.ToLower(strings.TrimSpace(text))
	if _, ok := knownTechnologies[lower]; ok {
		return schemas.EntityTechnology
	}

	ctxTokens := make(map[string]struct{})
	for _, tok := range lexicon.Tokenize(context) {
		ctxTokens[tok] = struct{}{}
	}
	bestType, bestHits := schemas.EntityType(""), 0
	for _, typ := range typeOrder {
		hits := 0
		for _, kw := range typeKeywords[typ] {
			if _, ok := ctxTokens[kw]; ok {
				hits++
			}
		}
		if hits > bestHits {
			bestType, bestHits = typ, hits
		}
	}
	if bestHits > 0 {
		return bestType
	}

	if orgMarker.MatchString(text) {
		return schemas.EntityOrganization
	}
	if locMarker.MatchString(text) {
		return schemas.EntityLocation
	}
	if dateLike.MatchString(lower) {
		return schemas.EntityDate
	}

	words := strings.Fields(text)
	if len(words) > 1 {
		return schemas.EntityConcept
	}
	if len(words) == 1 && lexicon.IsCapitalized(text) && !lexicon.IsAllCaps(text) {
		if has(ctxTokens, "who") || has(ctxTokens, "name") {
			return schemas.EntityPerson
		}
		return schemas.EntityConcept
	}
	if lexicon.IsAllCaps(text) {
		return schemas.EntityOrganization
	}
	return schemas.EntityConcept
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
