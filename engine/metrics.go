package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics records Prometheus counters and a gauge for engine activity.
// The zero value from NewNoopMetrics discards everything; NewMetrics
// registers real collectors against reg.
type Metrics struct {
	steps        prometheus.Counter
	guardRejects prometheus.Counter
	pendingOps   prometheus.Gauge
	asyncOps     *prometheus.CounterVec
	noop         bool
}

// NewNoopMetrics returns a Metrics that records nothing. Safe as a
// default when the host doesn't care about engine metrics.
func NewNoopMetrics() *Metrics {
	return &Metrics{noop: true}
}

// NewMetrics registers PNML engine collectors under reg and returns a
// Metrics that records into them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pnml_engine_steps_total",
			Help: "Total number of completed (non-pending) transition fires.",
		}),
		guardRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pnml_engine_guard_rejects_total",
			Help: "Total number of fires aborted by a guard returning false.",
		}),
		pendingOps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pnml_engine_pending_ops",
			Help: "Current number of registered, uncompleted pending operations.",
		}),
		asyncOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pnml_engine_async_ops_total",
			Help: "Total async operations registered, labeled by operation_type.",
		}, []string{"operation_type"}),
	}
	reg.MustRegister(m.steps, m.guardRejects, m.pendingOps, m.asyncOps)
	return m
}

func (m *Metrics) recordStep() {
	if m.noop {
		return
	}
	m.steps.Inc()
}

func (m *Metrics) recordGuardReject() {
	if m.noop {
		return
	}
	m.guardRejects.Inc()
}

func (m *Metrics) recordPendingDelta(delta int) {
	if m.noop {
		return
	}
	m.pendingOps.Add(float64(delta))
}

func (m *Metrics) recordAsyncOp(operationType string) {
	if m.noop {
		return
	}
	m.asyncOps.WithLabelValues(operationType).Inc()
}
