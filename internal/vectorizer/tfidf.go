// Package vectorizer implements TF-IDF document vectors and cosine similarity.
package vectorizer

import (
	"math"
	"sort"
	"sync"

	"github.com/baihaki00/sentra-sub000/internal/lexicon"
)

// Match is the result of a nearest document lookup. Index is -1 when the
// corpus is empty.
type Match struct {
	Document   string
	Index      int
	Similarity float64
}

// Vectorizer holds a fitted vocabulary and the vectors of its corpus.
type Vectorizer struct {
	mu      sync.RWMutex
	vocab   map[string]int
	idf     []float64
	docs    []string
	vectors [][]float64
}

// New returns an unfitted vectorizer.
func New() *Vectorizer {
	return &Vectorizer{vocab: make(map[string]int)}
}

// Fit builds the vocabulary and IDF table (ln(N/df)) from docs, replacing
// any previous fit, and caches the vector of every document.
func (v *Vectorizer) Fit(docs []string) {
	tokenized := make([][]string, len(docs))
	df := make(map[string]int)
	for i, d := range docs {
		tokens := lexicon.Tokenize(d)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log(n / float64(df[term]))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.vocab = vocab
	v.idf = idf
	v.docs = append([]string(nil), docs...)
	v.vectors = make([][]float64, len(docs))
	for i, tokens := range tokenized {
		v.vectors[i] = v.vectorLocked(tokens)
	}
}

// Transform returns the TF-IDF vector of text over the fitted vocabulary.
// Unknown terms contribute nothing.
func (v *Vectorizer) Transform(text string) []float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.vectorLocked(lexicon.Tokenize(text))
}

func (v *Vectorizer) vectorLocked(tokens []string) []float64 {
	vec := make([]float64, len(v.idf))
	if len(tokens) == 0 {
		return vec
	}
	counts := make(map[int]int, len(tokens))
	for _, tok := range tokens {
		if i, ok := v.vocab[tok]; ok {
			counts[i]++
		}
	}
	length := float64(len(tokens))
	for i, c := range counts {
		vec[i] = float64(c) / length * v.idf[i]
	}
	return vec
}

// FindMostSimilar scans the corpus for the document closest to text. The
// first document wins ties.
func (v *Vectorizer) FindMostSimilar(text string) Match {
	v.mu.RLock()
	defer v.mu.RUnlock()

	best := Match{Index: -1}
	if len(v.docs) == 0 {
		return best
	}
	query := v.vectorLocked(lexicon.Tokenize(text))
	for i, vec := range v.vectors {
		sim := CosineSimilarity(query, vec)
		if best.Index == -1 || sim > best.Similarity {
			best = Match{Document: v.docs[i], Index: i, Similarity: sim}
		}
	}
	return best
}

// Similarity is the cosine similarity of two texts under the fitted vocabulary.
func (v *Vectorizer) Similarity(a, b string) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return CosineSimilarity(v.vectorLocked(lexicon.Tokenize(a)), v.vectorLocked(lexicon.Tokenize(b)))
}

// Len returns the number of fitted documents.
func (v *Vectorizer) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.docs)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either has zero norm. Vectors of different length are compared over their
// common prefix.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, x := range a {
		na += x * x
	}
	for _, x := range b {
		nb += x * x
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push identical vectors a hair past 1.
	if sim > 1 {
		return 1
	}
	return sim
}
