// Package curiosity decides how to respond to input no intent claims.
package curiosity

import (
	"crypto/sha256"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/config"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
	"github.com/baihaki00/sentra-sub000/internal/linguistics"
)

const clarifyMaxTokens = 2

// Generator renders a response from a template family.
type Generator interface {
	Generate(family string, entities []schemas.Entity, vars linguistics.Vars) string
}

type sighting struct {
	count    int
	lastSeen time.Time
}

// Module tracks how often unrecognized inputs recur and picks a curiosity
// mode for each. Frequencies are keyed by a hash of the normalized input and
// expire after FrequencyTTL; a background janitor purges them.
type Module struct {
	gen Generator
	cfg config.CuriosityConfig
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	seen    map[[32]byte]*sighting
	pending *schemas.PendingConfirmation

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewModule creates a curiosity module. Start launches its janitor.
func NewModule(gen Generator, cfg config.CuriosityConfig, logger *zap.Logger) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{
		gen:      gen,
		cfg:      cfg,
		log:      logger.Named("curiosity"),
		now:      time.Now,
		seen:     make(map[[32]byte]*sighting),
		stopChan: make(chan struct{}),
	}
}

// SetClock replaces the time source.
func (m *Module) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// HandleUnknown records the input and selects a mode by fixed priority:
// SENTIMENT, CLARIFY, INFER, TEACH, LOG. CLARIFY and INFER leave a pending
// confirmation for the next turn.
func (m *Module) HandleUnknown(text string, entities []schemas.Entity, context []string) schemas.CuriosityResult {
	prior := m.record(text)
	trimmed := strings.TrimSpace(text)
	normalized := lexicon.Normalize(text)

	var (
		mode    schemas.CuriosityMode
		vars    = linguistics.Vars{}
		pending *schemas.PendingConfirmation
	)
	sentiment, hasSentiment := firstOfType(entities, schemas.EntitySentiment)
	subject, hasSubject := firstSubject(entities)

	switch {
	case hasSentiment:
		mode = schemas.CuriositySentiment
		vars[linguistics.VarQual] = "negative"
		if sentiment.Valence > 0 {
			vars[linguistics.VarQual] = "positive"
		}
	case len(lexicon.Tokenize(text)) <= clarifyMaxTokens || strings.HasSuffix(trimmed, "?"):
		mode = schemas.CuriosityClarify
		vars[linguistics.VarRef1] = trimmed
		pending = &schemas.PendingConfirmation{Mode: mode, Input: normalized, Candidate: recentOther(context, normalized)}
	case hasSubject:
		mode = schemas.CuriosityInfer
		vars[linguistics.VarRef1] = subject.Text
		candidate := subject.NodeID
		if candidate == "" {
			candidate = lexicon.Normalize(subject.Text)
		}
		pending = &schemas.PendingConfirmation{Mode: mode, Input: normalized, Candidate: candidate}
	case prior >= m.cfg.TeachAfter:
		mode = schemas.CuriosityTeach
		vars[linguistics.VarRef1] = trimmed
	default:
		mode = schemas.CuriosityLog
	}

	m.mu.Lock()
	m.pending = pending
	m.mu.Unlock()

	m.log.Debug("Curiosity mode selected",
		zap.String("mode", string(mode)),
		zap.Int("seen_before", prior))

	return schemas.CuriosityResult{
		Response: m.gen.Generate(linguistics.CuriosityFamily(mode), entities, vars),
		Mode:     mode,
		Pending:  pending,
	}
}

// record counts a sighting and returns how many times the input was seen
// before.
func (m *Module) record(text string) int {
	key := sha256.Sum256([]byte(lexicon.Normalize(text)))
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seen[key]
	if !ok {
		s = &sighting{}
		m.seen[key] = s
	}
	prior := s.count
	s.count++
	s.lastSeen = m.now()
	return prior
}

// Frequency returns how many times text was recorded and not yet expired.
func (m *Module) Frequency(text string) int {
	key := sha256.Sum256([]byte(lexicon.Normalize(text)))
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.seen[key]; ok {
		return s.count
	}
	return 0
}

// Pending returns the outstanding confirmation, if any.
func (m *Module) Pending() (schemas.PendingConfirmation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return schemas.PendingConfirmation{}, false
	}
	return *m.pending, true
}

// TakePending returns and clears the outstanding confirmation.
func (m *Module) TakePending() (schemas.PendingConfirmation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return schemas.PendingConfirmation{}, false
	}
	p := *m.pending
	m.pending = nil
	return p, true
}

// ClearPending drops any outstanding confirmation.
func (m *Module) ClearPending() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

func firstOfType(entities []schemas.Entity, typ schemas.EntityType) (schemas.Entity, bool) {
	for _, e := range entities {
		if e.Type == typ {
			return e, true
		}
	}
	return schemas.Entity{}, false
}

func firstSubject(entities []schemas.Entity) (schemas.Entity, bool) {
	for _, e := range entities {
		if e.Type != schemas.EntitySentiment && e.Text != "" {
			return e, true
		}
	}
	return schemas.Entity{}, false
}

// recentOther returns the newest context id that is not self.
func recentOther(context []string, self string) string {
	for _, id := range context {
		if id != self {
			return id
		}
	}
	return ""
}

// Start launches the background janitor that purges expired frequencies.
func (m *Module) Start() {
	m.wg.Add(1)
	go m.runJanitor()
}

func (m *Module) runJanitor() {
	defer m.wg.Done()
	interval := m.cfg.JanitorInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Debug("Frequency janitor started", zap.Duration("interval", interval))
	for {
		select {
		case <-ticker.C:
			m.purgeExpired()
		case <-m.stopChan:
			m.log.Debug("Frequency janitor stopped")
			return
		}
	}
}

// purgeExpired drops sightings older than FrequencyTTL.
func (m *Module) purgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ttl := m.cfg.FrequencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := m.now()
	purged := 0
	for key, s := range m.seen {
		if now.Sub(s.lastSeen) > ttl {
			delete(m.seen, key)
			purged++
		}
	}
	if purged > 0 {
		m.log.Debug("Purged expired frequencies", zap.Int("count", purged))
	}
	return purged
}

// Stop shuts the janitor down. Safe to call more than once.
func (m *Module) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
}
