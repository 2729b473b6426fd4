package entity

import (
	"regexp"
	"strings"

	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

// clauseBreak splits input into clauses; chunks never cross one.
var clauseBreak = regexp.MustCompile(`[.,;:!?()\[\]]+\s*`)

type token struct {
	text string
	pos  int
}

// phrase is a candidate span of tokens.
type phrase struct {
	tokens []token
}

func (p phrase) text() string {
	words := make([]string, len(p.tokens))
	for i, t := range p.tokens {
		words[i] = t.text
	}
	return strings.Join(words, " ")
}

// tokenize splits text into clauses of positioned words. Positions are global
// so spans from different clauses never collide.
func tokenize(text string) [][]token {
	var clauses [][]token
	pos := 0
	for _, part := range clauseBreak.Split(text, -1) {
		words := lexicon.Words(part)
		if len(words) == 0 {
			continue
		}
		clause := make([]token, len(words))
		for i, w := range words {
			clause[i] = token{text: w, pos: pos}
			pos++
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

// chunk groups a clause into noun-phrase-like spans: leading stop-words are
// dropped, stop-words between content words are kept, trailing ones dropped.
func chunk(clause []token) []phrase {
	var chunks []phrase
	var current, pending []token
	for _, t := range clause {
		if lexicon.IsStopWord(t.text) {
			if len(current) > 0 {
				pending = append(pending, t)
			}
			continue
		}
		current = append(current, pending...)
		pending = nil
		current = append(current, t)
	}
	if len(current) > 0 {
		chunks = append(chunks, phrase{tokens: current})
	}
	return chunks
}

// candidates returns the multi-word spans worth looking up: each chunk and
// every 2 to 4 word window inside it that does not start or end on a
// stop-word. Longer spans come first.
func candidates(chunks []phrase) []phrase {
	var out []phrase
	seen := make(map[string]struct{})
	add := func(p phrase) {
		key := strings.ToLower(p.text())
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	for _, c := range chunks {
		if len(c.tokens) > 4 {
			add(c)
		}
	}
	for n := 4; n >= 2; n-- {
		for _, c := range chunks {
			for i := 0; i+n <= len(c.tokens); i++ {
				span := c.tokens[i : i+n]
				if lexicon.IsStopWord(span[0].text) || lexicon.IsStopWord(span[n-1].text) {
					continue
				}
				add(phrase{tokens: span})
			}
		}
	}
	return out
}
