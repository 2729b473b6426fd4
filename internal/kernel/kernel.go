// Package kernel wires the cognitive components into a single turn loop and
// owns persistence and idle maintenance of the knowledge graph.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/attention"
	"github.com/baihaki00/sentra-sub000/internal/config"
	"github.com/baihaki00/sentra-sub000/internal/curiosity"
	"github.com/baihaki00/sentra-sub000/internal/entity"
	"github.com/baihaki00/sentra-sub000/internal/expectation"
	"github.com/baihaki00/sentra-sub000/internal/intent"
	"github.com/baihaki00/sentra-sub000/internal/knowledgegraph"
	"github.com/baihaki00/sentra-sub000/internal/linguistics"
	"github.com/baihaki00/sentra-sub000/internal/observability"
	"github.com/baihaki00/sentra-sub000/internal/reflection"
	"github.com/baihaki00/sentra-sub000/internal/store"
)

// ErrInvalidPattern is returned by TeachPattern for malformed commands.
var ErrInvalidPattern = errors.New("usage: pattern <INTENT> <template>")

// Kernel processes conversation turns. All turn processing, reflection and
// saving are serialized by one mutex; the component packages are never
// entered concurrently by the kernel.
type Kernel struct {
	cfg config.Interface
	log *zap.Logger

	graph     *knowledgegraph.Graph
	resolver  *entity.Resolver
	intents   *intent.Engine
	attention *attention.Filter
	expect    *expectation.Module
	reflector *reflection.Engine
	curiosity *curiosity.Module
	lang      *linguistics.Engine
	store     store.SnapshotStore
	bus       *Bus
	limiter   *rate.Limiter

	mu       sync.Mutex
	dirty    bool
	lastTurn time.Time
	history  []string
	now      func() time.Time

	watcher   *linguistics.Watcher
	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// New assembles a kernel over an empty graph. Call Load before the first turn.
func New(cfg config.Interface, st store.SnapshotStore, logger *zap.Logger) *Kernel {
	if logger == nil {
		logger = zap.NewNop()
	}
	kcfg := cfg.Kernel()
	g := knowledgegraph.New(knowledgegraph.OptionsFromConfig(cfg.Graph()), logger)
	lang := linguistics.NewEngine(linguistics.NewRNG(kcfg.RNGSeed), logger)

	k := &Kernel{
		cfg:       cfg,
		log:       observability.Component(logger, "kernel"),
		graph:     g,
		resolver:  entity.NewResolver(g, logger),
		intents:   intent.NewEngine(g, cfg.Intent(), logger),
		attention: attention.NewFilter(g, cfg.Attention(), logger),
		expect:    expectation.New(logger),
		reflector: reflection.NewEngine(g, cfg.Reflection(), logger),
		curiosity: curiosity.NewModule(lang, cfg.Curiosity(), logger),
		lang:      lang,
		store:     st,
		bus:       NewBus(logger, kcfg.BusBufferSize),
		limiter:   rate.NewLimiter(rate.Limit(kcfg.CheckpointRate), kcfg.CheckpointBurst),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
	seed(g)
	return k
}

// Graph exposes the knowledge graph for inspection.
func (k *Kernel) Graph() *knowledgegraph.Graph { return k.graph }

// Bus returns the event bus.
func (k *Kernel) Bus() *Bus { return k.bus }

// SetClock replaces the time source of the kernel and its graph.
func (k *Kernel) SetClock(now func() time.Time) {
	k.mu.Lock()
	k.now = now
	k.mu.Unlock()
	k.graph.SetClock(now)
	k.curiosity.SetClock(now)
}

// Load restores the graph snapshot and the templates concurrently. A missing
// or unreadable snapshot leaves a freshly seeded graph; missing templates
// are written out from the defaults. The data directory is created first and
// failing to create it is an error, as is context cancellation.
func (k *Kernel) Load(ctx context.Context) error {
	dataDir := k.cfg.Kernel().DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	patternsPath := k.cfg.Kernel().PatternsPath()

	var (
		snap            *schemas.MemorySnapshot
		patterns        schemas.PatternSet
		patternsMissing bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := k.store.Load(gctx)
		switch {
		case err == nil:
			snap = s
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, store.ErrSnapshotNotFound):
			k.log.Info("No saved memory found, starting with a fresh graph")
		default:
			k.log.Warn("Saved memory is unreadable, starting with a fresh graph", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		ps, err := store.LoadPatterns(patternsPath)
		switch {
		case err == nil:
			patterns = ps
		case errors.Is(err, store.ErrPatternsNotFound):
			patternsMissing = true
			k.log.Info("No template file found, using defaults", zap.String("path", patternsPath))
		default:
			k.log.Warn("Template file is unreadable, using defaults", zap.String("path", patternsPath), zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if snap != nil {
		if err := k.graph.Import(snap); err != nil {
			k.log.Warn("Saved memory could not be imported, starting with a fresh graph", zap.Error(err))
		}
	}
	seed(k.graph)

	switch {
	case patterns != nil:
		k.lang.SetPatterns(patterns)
	case patternsMissing:
		if err := store.SavePatterns(patternsPath, k.lang.Patterns()); err != nil {
			k.log.Warn("Failed to write default templates", zap.Error(err))
		}
	}

	nodes, edges := k.graph.Len()
	k.log.Info("Memory loaded", zap.Int("nodes", nodes), zap.Int("edges", edges))
	return nil
}

// Start launches the idle reflection loop, the curiosity janitor and, when
// configured, the template file watcher.
func (k *Kernel) Start() {
	k.startOnce.Do(func() {
		k.curiosity.Start()
		if k.cfg.Kernel().WatchPatterns {
			k.startWatcher()
		}
		if k.cfg.Reflection().Enabled {
			k.wg.Add(1)
			go k.idleLoop()
		}
	})
}

func (k *Kernel) startWatcher() {
	path := k.cfg.Kernel().PatternsPath()
	w, err := linguistics.NewWatcher(path, k.reloadPatterns, k.log)
	if err != nil {
		k.log.Warn("Template watcher disabled", zap.Error(err))
		return
	}
	k.watcher = w
	w.Start()
}

func (k *Kernel) reloadPatterns() {
	ps, err := store.LoadPatterns(k.cfg.Kernel().PatternsPath())
	if err != nil {
		k.log.Warn("Template reload failed", zap.Error(err))
		return
	}
	k.lang.SetPatterns(ps)
	k.log.Info("Templates reloaded", zap.Int("families", len(ps)))
}

// Stop halts the background loops. It does not save; call Save afterwards.
func (k *Kernel) Stop() {
	k.stopOnce.Do(func() {
		close(k.stopChan)
		k.wg.Wait()
		k.curiosity.Stop()
		if k.watcher != nil {
			k.watcher.Stop()
		}
		k.bus.Shutdown()
	})
}

func (k *Kernel) idleLoop() {
	defer k.wg.Done()
	ticker := time.NewTicker(k.cfg.Reflection().CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.maybeReflect()
		case <-k.stopChan:
			return
		}
	}
}

// maybeReflect runs a reflection pass when the graph changed and no turn
// arrived for the idle timeout.
func (k *Kernel) maybeReflect() {
	k.mu.Lock()
	idle := k.now().Sub(k.lastTurn) >= k.cfg.Reflection().IdleTimeout
	if !k.dirty || !idle {
		k.mu.Unlock()
		return
	}
	report := k.reflectLocked(context.Background())
	k.mu.Unlock()
	k.post(context.Background(), MessageReflection, report)
}

// Reflect runs a reflection pass immediately and saves the result.
func (k *Kernel) Reflect(ctx context.Context) reflection.Report {
	k.mu.Lock()
	report := k.reflectLocked(ctx)
	k.mu.Unlock()
	k.post(ctx, MessageReflection, report)
	return report
}

func (k *Kernel) reflectLocked(ctx context.Context) reflection.Report {
	report := k.reflector.Reflect()
	k.graph.Compact()
	k.log.Info("Reflection complete", observability.ReflectionFields(report.Consolidated,
		report.Redundant, report.PrunedNodes, report.PrunedEdges, report.Duration)...)
	if err := k.saveLocked(ctx); err == nil {
		k.dirty = false
	}
	return report
}

// CheckpointEvent reports the outcome of a save attempt.
type CheckpointEvent struct {
	Reason string `json:"reason"`
	Saved  bool   `json:"saved"`
	Error  string `json:"error,omitempty"`
}

// Save writes the graph and templates unconditionally.
func (k *Kernel) Save(ctx context.Context) error {
	k.mu.Lock()
	err := k.saveLocked(ctx)
	if err == nil {
		k.dirty = false
	}
	k.mu.Unlock()
	k.postCheckpoint(ctx, "save", err)
	return err
}

// checkpoint saves after a learning event unless the rate limiter refuses;
// a refused checkpoint leaves the graph dirty for the next save.
func (k *Kernel) checkpoint(ctx context.Context, reason string) {
	if !k.limiter.Allow() {
		k.log.Debug("Checkpoint throttled", zap.String("reason", reason))
		return
	}
	k.mu.Lock()
	err := k.saveLocked(ctx)
	if err == nil {
		k.dirty = false
	}
	k.mu.Unlock()
	k.postCheckpoint(ctx, reason, err)
}

func (k *Kernel) postCheckpoint(ctx context.Context, reason string, err error) {
	ev := CheckpointEvent{Reason: reason, Saved: err == nil}
	if err != nil {
		ev.Error = err.Error()
	}
	k.post(ctx, MessageCheckpoint, ev)
}

func (k *Kernel) saveLocked(ctx context.Context) error {
	snap := k.graph.Export()
	if err := k.store.Save(ctx, snap); err != nil {
		k.log.Error("Failed to save memory", zap.Error(err))
		return fmt.Errorf("failed to save memory: %w", err)
	}
	if err := store.SavePatterns(k.cfg.Kernel().PatternsPath(), k.lang.Patterns()); err != nil {
		k.log.Error("Failed to save templates", zap.Error(err))
		return fmt.Errorf("failed to save templates: %w", err)
	}
	k.log.Debug("Memory saved", zap.Int("nodes", len(snap.Nodes)), zap.Int("edges", len(snap.Edges)))
	return nil
}

// Dirty reports whether the graph changed since the last successful save.
func (k *Kernel) Dirty() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.dirty
}

// TeachPattern handles "pattern <INTENT> <template>". The intent may be
// written bare ("GREETING") or fully qualified ("INTENT:GREETING"), and
// [x] placeholders are accepted for ${X}. It returns the stored template.
func (k *Kernel) TeachPattern(ctx context.Context, command string) (string, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(command), "/"))
	if len(fields) < 3 || !strings.EqualFold(fields[0], "pattern") {
		return "", ErrInvalidPattern
	}
	family := strings.ToUpper(fields[1])
	if !strings.Contains(family, ":") {
		family = "INTENT:" + family
	}
	template := strings.Join(fields[2:], " ")

	k.mu.Lock()
	stored, err := k.lang.LearnPattern(family, template)
	if err == nil {
		k.dirty = true
	}
	k.mu.Unlock()
	if err != nil {
		return "", err
	}

	k.post(ctx, MessageLearned, LearnedEvent{Kind: "pattern", From: family, To: stored})
	k.checkpoint(ctx, "pattern")
	return stored, nil
}

// Stats summarizes the kernel state.
type Stats struct {
	Graph          schemas.GraphStats  `json:"graph" yaml:"graph"`
	Expectation    expectation.Stats   `json:"expectation" yaml:"expectation"`
	Reflection     reflection.Counters `json:"reflection" yaml:"reflection"`
	LastReflection reflection.Report   `json:"lastReflection" yaml:"last_reflection"`
	Examples       int                 `json:"examples" yaml:"examples"`
	Families       int                 `json:"families" yaml:"families"`
	Dirty          bool                `json:"dirty" yaml:"dirty"`
}

// Stats returns a point in time summary.
func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return Stats{
		Graph:          k.graph.Stats(),
		Expectation:    k.expect.Stats(),
		Reflection:     k.reflector.Counters(),
		LastReflection: k.reflector.LastReport(),
		Examples:       k.intents.Examples(),
		Families:       len(k.lang.Families()),
		Dirty:          k.dirty,
	}
}

func (k *Kernel) post(ctx context.Context, t MessageType, payload interface{}) {
	if err := k.bus.Post(ctx, t, payload); err != nil {
		k.log.Debug("Event dropped", zap.String("type", string(t)), zap.Error(err))
	}
}
