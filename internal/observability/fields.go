package observability

import (
	"time"

	"go.uber.org/zap"
)

// Field keys shared by every component that reports on a turn or a
// reflection pass, so one log file can be filtered by a single key.
const (
	KeyComponent   = "component"
	KeyRoute       = "route"
	KeyIntent      = "intent"
	KeyScore       = "score"
	KeyAdequacy    = "adequacy"
	KeyDuration    = "duration"
	KeyInteraction = "interaction"
)

// Component returns logger named after a kernel component and tagged with
// it, falling back to a no-op logger.
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Named(name).With(zap.String(KeyComponent, name))
}

// TurnFields describes a processed turn.
func TurnFields(route, intent string, score, adequacy float64, interaction string, d time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String(KeyRoute, route),
		zap.String(KeyIntent, intent),
		zap.Float64(KeyScore, score),
		zap.Float64(KeyAdequacy, adequacy),
		zap.Duration(KeyDuration, d),
	}
	if interaction != "" {
		fields = append(fields, zap.String(KeyInteraction, interaction))
	}
	return fields
}

// ReflectionFields describes a finished reflection pass.
func ReflectionFields(consolidated, redundant, prunedNodes, prunedEdges int, d time.Duration) []zap.Field {
	return []zap.Field{
		zap.Int("consolidated", consolidated),
		zap.Int("redundant", redundant),
		zap.Int("pruned_nodes", prunedNodes),
		zap.Int("pruned_edges", prunedEdges),
		zap.Duration(KeyDuration, d),
	}
}
