package curiosity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
	"github.com/baihaki00/sentra-sub000/internal/linguistics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingGenerator struct {
	family string
	vars   linguistics.Vars
}

func (r *recordingGenerator) Generate(family string, _ []schemas.Entity, vars linguistics.Vars) string {
	r.family = family
	r.vars = vars
	return "reply for " + family
}

func newModule(t *testing.T) (*Module, *recordingGenerator) {
	t.Helper()
	gen := &recordingGenerator{}
	return NewModule(gen, config.NewDefaultConfig().Curiosity(), zaptest.NewLogger(t)), gen
}

func TestHandleUnknown_Priority(t *testing.T) {
	sad := schemas.Entity{Text: "sad", Type: schemas.EntitySentiment, Valence: -1}
	happy := schemas.Entity{Text: "happy", Type: schemas.EntitySentiment, Valence: 1}
	paris := schemas.Entity{Text: "Paris", Type: schemas.EntityLocation, NodeID: "paris"}

	tests := []struct {
		name     string
		text     string
		entities []schemas.Entity
		mode     schemas.CuriosityMode
		vars     linguistics.Vars
		pending  bool
	}{
		{"sentiment beats everything", "sad?", []schemas.Entity{paris, sad}, schemas.CuriositySentiment, linguistics.Vars{linguistics.VarQual: "negative"}, false},
		{"positive sentiment", "i am so happy with Paris", []schemas.Entity{happy, paris}, schemas.CuriositySentiment, linguistics.Vars{linguistics.VarQual: "positive"}, false},
		{"short input clarifies", "blorp zint", nil, schemas.CuriosityClarify, linguistics.Vars{linguistics.VarRef1: "blorp zint"}, true},
		{"question clarifies", "what about the thing we said?", []schemas.Entity{paris}, schemas.CuriosityClarify, linguistics.Vars{linguistics.VarRef1: "what about the thing we said?"}, true},
		{"entities infer", "tell me about Paris please", []schemas.Entity{paris}, schemas.CuriosityInfer, linguistics.Vars{linguistics.VarRef1: "Paris"}, true},
		{"default logs", "the quick brown fox", nil, schemas.CuriosityLog, linguistics.Vars{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, gen := newModule(t)
			res := m.HandleUnknown(tt.text, tt.entities, []string{"previous"})
			assert.Equal(t, tt.mode, res.Mode)
			assert.Equal(t, linguistics.CuriosityFamily(tt.mode), gen.family)
			assert.Equal(t, tt.vars, gen.vars)
			assert.Equal(t, "reply for "+linguistics.CuriosityFamily(tt.mode), res.Response)
			_, pending := m.Pending()
			assert.Equal(t, tt.pending, pending)
			assert.Equal(t, tt.pending, res.Pending != nil)
		})
	}
}

func TestHandleUnknown_Pending(t *testing.T) {
	m, _ := newModule(t)

	res := m.HandleUnknown("Tell me about Paris!", []schemas.Entity{{Text: "Paris", NodeID: "paris"}}, nil)
	require.NotNil(t, res.Pending)
	assert.Equal(t, schemas.PendingConfirmation{Mode: schemas.CuriosityInfer, Input: "tell me about paris", Candidate: "paris"}, *res.Pending)

	res = m.HandleUnknown("zorp", nil, []string{"zorp", "kettle"})
	require.NotNil(t, res.Pending)
	assert.Equal(t, "kettle", res.Pending.Candidate, "the input itself is not its own candidate")

	p, ok := m.TakePending()
	require.True(t, ok)
	assert.Equal(t, schemas.CuriosityClarify, p.Mode)
	_, ok = m.TakePending()
	assert.False(t, ok)

	m.HandleUnknown("zorp", nil, nil)
	m.ClearPending()
	_, ok = m.Pending()
	assert.False(t, ok)
}

func TestHandleUnknown_TeachAfterRepeats(t *testing.T) {
	m, gen := newModule(t)
	const phrase = "the moon hums at night"

	for i := 0; i < 3; i++ {
		res := m.HandleUnknown(phrase, nil, nil)
		assert.Equal(t, schemas.CuriosityLog, res.Mode, "sighting %d", i+1)
	}
	res := m.HandleUnknown("The moon hums at night.", nil, nil)
	assert.Equal(t, schemas.CuriosityTeach, res.Mode)
	assert.Equal(t, "The moon hums at night.", gen.vars[linguistics.VarRef1])
	assert.Equal(t, 4, m.Frequency(phrase))
}

func TestPurgeExpired(t *testing.T) {
	m, _ := newModule(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	m.HandleUnknown("old news here today", nil, nil)
	now = now.Add(23 * time.Hour)
	m.HandleUnknown("recent news here today", nil, nil)
	now = now.Add(2 * time.Hour)

	assert.Equal(t, 1, m.purgeExpired())
	assert.Zero(t, m.Frequency("old news here today"))
	assert.Equal(t, 1, m.Frequency("recent news here today"))
}

func TestJanitorLifecycle(t *testing.T) {
	cfg := config.NewDefaultConfig().Curiosity()
	cfg.JanitorInterval = 5 * time.Millisecond
	cfg.FrequencyTTL = time.Nanosecond
	m := NewModule(&recordingGenerator{}, cfg, nil)
	m.HandleUnknown("fleeting words said once", nil, nil)

	m.Start()
	assert.Eventually(t, func() bool { return m.Frequency("fleeting words said once") == 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestWithLinguistics(t *testing.T) {
	gen := linguistics.NewEngine(linguistics.NewRNG(3), nil)
	m := NewModule(gen, config.NewDefaultConfig().Curiosity(), nil)
	res := m.HandleUnknown("blorp", nil, nil)
	assert.Equal(t, schemas.CuriosityClarify, res.Mode)
	assert.Contains(t, res.Response, `"blorp"`)
	assert.Contains(t, res.Response, "?")
}
