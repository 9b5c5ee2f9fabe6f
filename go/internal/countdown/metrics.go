package countdown

import "sync/atomic"

// MetricsCollector defines the interface for collecting engine metrics
type MetricsCollector interface {
	RecordTick(complete bool)
	RecordCoalesced()
	RecordCompletion(callbackFailed bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordTick(complete bool)             {}
func (NoOpMetricsCollector) RecordCoalesced()                     {}
func (NoOpMetricsCollector) RecordCompletion(callbackFailed bool) {}

// CounterMetrics keeps process-wide counters, shared by every engine it is passed to.
type CounterMetrics struct {
	ticks           atomic.Uint64
	coalesced       atomic.Uint64
	completions     atomic.Uint64
	callbackFailure atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of CounterMetrics.
type MetricsSnapshot struct {
	Ticks            uint64 `json:"ticks"`
	Coalesced        uint64 `json:"coalesced"`
	Completions      uint64 `json:"completions"`
	CallbackFailures uint64 `json:"callback_failures"`
}

func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{}
}

func (m *CounterMetrics) RecordTick(complete bool) {
	m.ticks.Add(1)
}

func (m *CounterMetrics) RecordCoalesced() {
	m.coalesced.Add(1)
}

func (m *CounterMetrics) RecordCompletion(callbackFailed bool) {
	m.completions.Add(1)
	if callbackFailed {
		m.callbackFailure.Add(1)
	}
}

func (m *CounterMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Ticks:            m.ticks.Load(),
		Coalesced:        m.coalesced.Load(),
		Completions:      m.completions.Load(),
		CallbackFailures: m.callbackFailure.Load(),
	}
}
