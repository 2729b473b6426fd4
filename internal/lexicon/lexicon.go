// Package lexicon holds the tokenization rules and closed word lists shared by
// perception, entity resolution and intent detection.
package lexicon

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text, strips punctuation and splits on whitespace.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-_")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Words splits text on whitespace and trims surrounding punctuation, keeping
// the original case. Quotes are removed from the token edges.
func Words(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '-'
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Normalize produces the canonical node id form of a piece of text: lowercase,
// single spaced, with leading and trailing punctuation removed.
func Normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	joined := strings.Join(fields, " ")
	return strings.TrimFunc(joined, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// IsStopWord reports whether the lowercase form of w is a function word.
func IsStopWord(w string) bool {
	_, ok := stopWords[strings.ToLower(w)]
	return ok
}

// Sentiment returns the valence of a sentiment keyword, or 0 when w carries none.
func Sentiment(w string) int {
	return sentimentWords[strings.ToLower(w)]
}

// IsCapitalized reports whether w starts with an uppercase letter.
func IsCapitalized(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

// IsAllCaps reports whether w has at least two letters and all of them are uppercase.
func IsAllCaps(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}

var stopWords = toSet(
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "at", "by",
	"for", "with", "about", "from", "into", "over", "under", "is", "are", "was",
	"were", "be", "been", "am", "do", "does", "did", "i", "me", "my", "you",
	"your", "we", "our", "it", "its", "this", "that", "these", "those", "he",
	"she", "they", "them", "his", "her", "their", "what", "which", "who", "whom",
	"how", "why", "when", "where", "can", "could", "would", "should", "will",
	"shall", "may", "might", "must", "has", "have", "had", "not", "no", "so",
	"if", "then", "than", "as", "tell", "please", "some", "any",
)

var sentimentWords = map[string]int{
	"love": 1, "like": 1, "happy": 1, "glad": 1, "great": 1, "good": 1,
	"awesome": 1, "excellent": 1, "wonderful": 1, "amazing": 1, "nice": 1,
	"excited": 1, "fantastic": 1, "cool": 1,
	"hate": -1, "sad": -1, "angry": -1, "bad": -1, "terrible": -1,
	"awful": -1, "horrible": -1, "upset": -1, "annoyed": -1, "frustrated": -1,
	"tired": -1, "bored": -1, "worried": -1, "afraid": -1,
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
