package expectation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/baihaki00/sentra-sub000/api/schemas"
)

func TestPredict(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	paris := []schemas.Entity{
		{Text: "happy", Type: schemas.EntitySentiment},
		{Text: "Paris", Type: schemas.EntityLocation},
	}

	tests := []struct {
		name     string
		intent   string
		entities []schemas.Entity
		history  []string
		want     schemas.Prediction
	}{
		{
			name:   "greeting",
			intent: schemas.IntentGreeting,
			want:   schemas.Prediction{Intent: schemas.IntentGreeting, ResponseType: schemas.ResponseGreeting, ExpectedEntities: []string{}, Confidence: 0.95},
		},
		{
			name:     "fact query with subject",
			intent:   schemas.IntentFactQuery,
			entities: paris,
			want:     schemas.Prediction{Intent: schemas.IntentFactQuery, ResponseType: schemas.ResponseFactual, ExpectedEntities: []string{"Paris"}, Confidence: 0.8},
		},
		{
			name:   "fact query without subject",
			intent: schemas.IntentFactQuery,
			want:   schemas.Prediction{Intent: schemas.IntentFactQuery, ResponseType: schemas.ResponseFactual, ExpectedEntities: []string{}, Confidence: 0.4},
		},
		{
			name:    "repeated intent is discounted",
			intent:  schemas.IntentGreeting,
			history: []string{schemas.IntentFactQuery, schemas.IntentGreeting},
			want:    schemas.Prediction{Intent: schemas.IntentGreeting, ResponseType: schemas.ResponseGreeting, ExpectedEntities: []string{}, Confidence: 0.95 * 0.9},
		},
		{
			name:    "older repeats do not count",
			intent:  schemas.IntentGreeting,
			history: []string{schemas.IntentGreeting, schemas.IntentFactQuery},
			want:    schemas.Prediction{Intent: schemas.IntentGreeting, ResponseType: schemas.ResponseGreeting, ExpectedEntities: []string{}, Confidence: 0.95},
		},
		{
			name:   "unknown intent",
			intent: "INTENT:WEATHER",
			want:   schemas.Prediction{Intent: "INTENT:WEATHER", ResponseType: schemas.ResponseClarification, ExpectedEntities: []string{}, Confidence: 0.3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Predict(tt.intent, tt.entities, tt.history)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Predict() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckAdequacy(t *testing.T) {
	m := New(nil)

	t.Run("greeting with marker", func(t *testing.T) {
		pred := schemas.Prediction{ResponseType: schemas.ResponseGreeting, Confidence: 0.95}
		got := m.CheckAdequacy(pred, "Hello! Nice to meet you.", nil)
		assert.InDelta(t, 0.7+0.3*0.95, got.Score, 1e-12)
		assert.Empty(t, got.MismatchReason)
	})

	t.Run("greeting without marker", func(t *testing.T) {
		pred := schemas.Prediction{ResponseType: schemas.ResponseGreeting, Confidence: 1.0}
		got := m.CheckAdequacy(pred, "The weather is nice.", nil)
		assert.InDelta(t, 0.6, got.Score, 1e-12)
		assert.Equal(t, "greeting marker missing", got.MismatchReason)
	})

	t.Run("entity coverage", func(t *testing.T) {
		pred := schemas.Prediction{ResponseType: schemas.ResponseFactual, ExpectedEntities: []string{"Paris", "France"}, Confidence: 0.8}
		got := m.CheckAdequacy(pred, "Paris is lovely in spring.", nil)
		assert.InDelta(t, 0.75*(0.7+0.3*0.8), got.Score, 1e-12)
		assert.Contains(t, got.MismatchReason, "expected entities missing")

		got = m.CheckAdequacy(pred, "It is a city.", []schemas.Entity{{Text: "paris"}, {Text: "France"}})
		assert.InDelta(t, 0.7+0.3*0.8, got.Score, 1e-12)
	})

	t.Run("uncertain factual answer", func(t *testing.T) {
		pred := schemas.Prediction{ResponseType: schemas.ResponseFactual, Confidence: 1}
		got := m.CheckAdequacy(pred, "I don't know much about that.", nil)
		assert.InDelta(t, 0.5, got.Score, 1e-12)
	})

	require.Len(t, m.History(), 5)
}

func TestStats(t *testing.T) {
	m := New(nil)
	assert.Equal(t, 0, m.Stats().Total)

	greet := schemas.Prediction{ResponseType: schemas.ResponseGreeting, Confidence: 1}
	m.CheckAdequacy(greet, "hi", nil)
	m.CheckAdequacy(greet, "what?", nil)
	m.CheckAdequacy(schemas.Prediction{ResponseType: schemas.ResponseClarification, Confidence: 1}, "what do you mean?", nil)

	stats := m.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, (1.0+0.6+1.0)/3, stats.MeanAdequacy, 1e-12)
	assert.Equal(t, 2, stats.ByType[schemas.ResponseGreeting].Count)
	assert.InDelta(t, 0.8, stats.ByType[schemas.ResponseGreeting].MeanAdequacy, 1e-12)
	assert.InDelta(t, 1.0, stats.ByType[schemas.ResponseClarification].MeanAdequacy, 1e-12)
}
