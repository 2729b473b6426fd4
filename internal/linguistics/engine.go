// Package linguistics selects and fills weighted response templates and
// learns new ones from the user.
package linguistics

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
)

// Placeholder variables a template may reference as ${NAME}.
const (
	VarRef1 = "REF1"
	VarRef2 = "REF2"
	VarAct  = "ACT"
	VarQual = "QUAL"
)

// LearnedWeight is the initial weight of a taught template.
const LearnedWeight = 2.0

var (
	// ErrEmptyTemplate is returned when a taught template has no text.
	ErrEmptyTemplate = errors.New("template is empty")
	// ErrDuplicateTemplate is returned when the template already exists for
	// the intent.
	ErrDuplicateTemplate = errors.New("template already exists")
)

var (
	placeholderRe = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)
	bracketRe     = regexp.MustCompile(`\[([A-Za-z0-9_]+)\]`)
)

// Vars fills template placeholders, keyed by variable name.
type Vars map[string]string

// NewRNG returns a PCG generator. A zero seed selects a time based one.
func NewRNG(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Engine holds the template set. Generation draws from an injected RNG so
// runs are reproducible for a given seed.
type Engine struct {
	mu       sync.Mutex
	patterns schemas.PatternSet
	rng      *rand.Rand
	log      *zap.Logger
}

// NewEngine creates an engine seeded with DefaultPatterns.
func NewEngine(rng *rand.Rand, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = NewRNG(0)
	}
	return &Engine{
		patterns: DefaultPatterns(),
		rng:      rng,
		log:      logger.Named("linguistics"),
	}
}

// Patterns returns a deep copy of the template set.
func (e *Engine) Patterns() schemas.PatternSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePatterns(e.patterns)
}

// SetPatterns replaces the template set. Families missing from ps keep
// their defaults so the kernel always has something to say.
func (e *Engine) SetPatterns(ps schemas.PatternSet) {
	merged := DefaultPatterns()
	for family, templates := range ps {
		merged[family] = append([]schemas.PatternTemplate(nil), templates...)
	}
	e.mu.Lock()
	e.patterns = merged
	e.mu.Unlock()
	e.log.Debug("Patterns replaced", zap.Int("families", len(merged)))
}

// Generate picks a template for family by cumulative weight roulette among
// the templates whose placeholders can all be filled, and substitutes them.
// REF1 and REF2 default to the first two entity texts. When no template
// survives, a generic status line is returned.
func (e *Engine) Generate(family string, entities []schemas.Entity, vars Vars) string {
	values := make(Vars, 4)
	refs := 0
	for _, ent := range entities {
		if ent.Type == schemas.EntitySentiment || ent.Text == "" {
			continue
		}
		refs++
		if refs == 1 {
			values[VarRef1] = ent.Text
		} else if refs == 2 {
			values[VarRef2] = ent.Text
			break
		}
	}
	for k, v := range vars {
		if v != "" {
			values[k] = v
		}
	}

	e.mu.Lock()
	candidates := fillable(e.patterns[family], values)
	choice := e.pick(candidates)
	e.mu.Unlock()

	if choice == "" {
		return Fallback(family, entities)
	}
	return placeholderRe.ReplaceAllStringFunc(choice, func(m string) string {
		return values[placeholderRe.FindStringSubmatch(m)[1]]
	})
}

// Fallback is the reply used when no template applies.
func Fallback(family string, entities []schemas.Entity) string {
	names := make([]string, 0, len(entities))
	for _, ent := range entities {
		names = append(names, ent.Text)
	}
	list := "none"
	if len(names) > 0 {
		list = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Cognition active. Intent: %s. Entities: %s.", family, list)
}

func fillable(templates []schemas.PatternTemplate, values Vars) []schemas.PatternTemplate {
	var out []schemas.PatternTemplate
	for _, tpl := range templates {
		if tpl.Weight <= 0 {
			continue
		}
		ok := true
		for _, m := range placeholderRe.FindAllStringSubmatch(tpl.Template, -1) {
			if values[m[1]] == "" {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, tpl)
		}
	}
	return out
}

// pick runs the roulette. Callers hold e.mu since the RNG is not safe for
// concurrent use.
func (e *Engine) pick(candidates []schemas.PatternTemplate) string {
	if len(candidates) == 0 {
		return ""
	}
	total := 0.0
	for _, c := range candidates {
		total += c.Weight
	}
	r := e.rng.Float64() * total
	for _, c := range candidates {
		r -= c.Weight
		if r < 0 {
			return c.Template
		}
	}
	return candidates[len(candidates)-1].Template
}

// NormalizeTemplate trims the template and rewrites [NAME] placeholders as
// ${NAME}, upper-casing the name.
func NormalizeTemplate(template string) string {
	template = strings.TrimSpace(template)
	return bracketRe.ReplaceAllStringFunc(template, func(m string) string {
		name := bracketRe.FindStringSubmatch(m)[1]
		return "${" + strings.ToUpper(name) + "}"
	})
}

// LearnPattern adds a user supplied template to family with LearnedWeight.
// Exact duplicates, after normalization, are rejected.
func (e *Engine) LearnPattern(family, template string) (string, error) {
	normalized := NormalizeTemplate(template)
	if normalized == "" || strings.TrimSpace(family) == "" {
		return "", ErrEmptyTemplate
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.patterns[family] {
		if existing.Template == normalized {
			return normalized, fmt.Errorf("intent %s: %w", family, ErrDuplicateTemplate)
		}
	}
	e.patterns[family] = append(e.patterns[family], schemas.PatternTemplate{Template: normalized, Weight: LearnedWeight})
	e.log.Info("Pattern learned", zap.String("intent", family), zap.String("template", normalized))
	return normalized, nil
}

// Families lists the template families in sorted order.
func (e *Engine) Families() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	families := make([]string, 0, len(e.patterns))
	for f := range e.patterns {
		families = append(families, f)
	}
	sort.Strings(families)
	return families
}

func clonePatterns(ps schemas.PatternSet) schemas.PatternSet {
	out := make(schemas.PatternSet, len(ps))
	for family, templates := range ps {
		out[family] = append([]schemas.PatternTemplate(nil), templates...)
	}
	return out
}
