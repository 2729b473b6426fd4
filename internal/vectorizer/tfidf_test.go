package vectorizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"hello there",
	"good morning",
	"what is machine learning",
	"who are you",
	"goodbye see you later",
}

func TestFit(t *testing.T) {
	v := New()
	v.Fit(corpus)
	require.Equal(t, len(corpus), v.Len())

	vec := v.Transform("hello there")
	require.Len(t, vec, len(v.vocab))

	// "you" appears in two of five documents.
	idx := v.vocab["you"]
	assert.InDelta(t, math.Log(5.0/2.0), v.idf[idx], 1e-12)

	t.Run("term frequency is count over length", func(t *testing.T) {
		vec := v.Transform("hello hello world")
		h := v.vocab["hello"]
		assert.InDelta(t, 2.0/3.0*math.Log(5), vec[h], 1e-12)
	})

	t.Run("unknown terms contribute nothing", func(t *testing.T) {
		vec := v.Transform("quantum chromodynamics")
		for _, x := range vec {
			assert.Equal(t, 0.0, x)
		}
	})

	t.Run("refit replaces vocabulary", func(t *testing.T) {
		w := New()
		w.Fit(corpus)
		w.Fit([]string{"alpha", "beta"})
		assert.Equal(t, 2, w.Len())
		_, ok := w.vocab["hello"]
		assert.False(t, ok)
	})
}

func TestCosineSimilarity(t *testing.T) {
	v := []float64{0.3, 0, 1.7, 2}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-12)
	assert.LessOrEqual(t, CosineSimilarity(v, v), 1.0)

	zero := make([]float64, 4)
	assert.Equal(t, 0.0, CosineSimilarity(zero, v))
	assert.Equal(t, 0.0, CosineSimilarity(v, zero))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))

	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-12)
}

func TestFindMostSimilar(t *testing.T) {
	v := New()

	empty := v.FindMostSimilar("anything")
	assert.Equal(t, -1, empty.Index)
	assert.Equal(t, 0.0, empty.Similarity)

	v.Fit(corpus)

	for i, doc := range corpus {
		m := v.FindMostSimilar(doc)
		assert.Equal(t, i, m.Index, doc)
		assert.GreaterOrEqual(t, m.Similarity, 0.99, doc)
	}

	m := v.FindMostSimilar("Good morning!")
	assert.Equal(t, "good morning", m.Document)

	m = v.FindMostSimilar("zzz")
	assert.Equal(t, 0, m.Index, "ties resolve to the first document")
	assert.Equal(t, 0.0, m.Similarity)
}

func TestSimilarity(t *testing.T) {
	v := New()
	v.Fit([]string{"what is go", "what is rust", "tell me about go", "hello"})

	assert.Greater(t, v.Similarity("what is go", "tell me about go"), 0.0)
	assert.InDelta(t, 1.0, v.Similarity("hello", "HELLO!"), 1e-12)
	assert.Equal(t, 0.0, v.Similarity("", "hello"))
}
