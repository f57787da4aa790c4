package engine

import (
	"time"

	"github.com/evoflow/pnmlcore/emit"
	"github.com/evoflow/pnmlcore/registry"
	"github.com/evoflow/pnmlcore/store"
	"go.opentelemetry.io/otel/trace"
)

// SelectionPolicy chooses which transition to fire next out of the
// currently enabled set (in net.TransitionOrder). Returning "" or an id
// not present in enabled falls back to enabled[0].
type SelectionPolicy func(enabled []string) string

type engineConfig struct {
	registry        *registry.Registry
	emitter         emit.Emitter
	metrics         *Metrics
	tracer          trace.Tracer
	nowMs           func() int64
	runID           string
	auditStore      store.AuditStore
	selectionPolicy SelectionPolicy
}

// Option configures an Engine at construction time.
type Option func(*engineConfig)

// WithRegistry supplies the inscription registry used to resolve guard
// and expression callables. Defaults to a fresh, empty registry.Registry
// if omitted, meaning every inscription resolves to "missing" (guards
// pass, expressions fire structurally) until the host registers
// callables into it.
func WithRegistry(r *registry.Registry) Option {
	return func(c *engineConfig) { c.registry = r }
}

// WithEmitter supplies an observability sink for fire/guard-reject/
// pending-register/pending-complete events. Defaults to emit.NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *engineConfig) { c.emitter = e }
}

// WithMetrics supplies a Metrics recorder. Defaults to a no-op Metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *engineConfig) { c.metrics = m }
}

// WithTracer supplies an OpenTelemetry tracer for per-step spans.
// Defaults to the global no-op tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *engineConfig) { c.tracer = t }
}

// WithRunID overrides the generated run_id, for deterministic tests.
func WithRunID(id string) Option {
	return func(c *engineConfig) { c.runID = id }
}

// WithClock overrides the millisecond clock used to stamp run_id,
// fallback pending-op ids, and generated resume tokens. For tests only.
func WithClock(nowMs func() int64) Option {
	return func(c *engineConfig) { c.nowMs = nowMs }
}

// WithAuditStore supplies a store.AuditStore that records one
// HistoryRecord per completed structural/expression fire and one
// PendingOpRecord per SubmitAsync completion. Defaults to nil, meaning no
// audit trail is kept — audit failures are logged via the emitter and
// never fail the engine.
func WithAuditStore(s store.AuditStore) Option {
	return func(c *engineConfig) { c.auditStore = s }
}

// WithSelectionPolicy supplies a SelectionPolicy to choose which
// transition fires next among the enabled set. Defaults to nil, meaning
// the first enabled transition in net.TransitionOrder always fires.
func WithSelectionPolicy(p SelectionPolicy) Option {
	return func(c *engineConfig) { c.selectionPolicy = p }
}

func defaultConfig() *engineConfig {
	return &engineConfig{
		registry: registry.New(),
		emitter:  emit.NewNullEmitter(),
		metrics:  NewNoopMetrics(),
		tracer:   trace.NewNoopTracerProvider().Tracer("pnmlcore/engine"),
		nowMs:    func() int64 { return time.Now().UnixMilli() },
	}
}
