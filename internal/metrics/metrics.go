package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the audit trail.
type Metrics struct {
	EntriesRecorded *prometheus.CounterVec
	UpdatesSkipped  *prometheus.CounterVec
	SaveFailures    *prometheus.CounterVec
	PublishFailures prometheus.Counter
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_trail_entries_recorded_total",
			Help: "Total audit trail entries persisted by kind and subject type",
		}, []string{"kind", "subject_type"}),

		UpdatesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_trail_updates_skipped_total",
			Help: "Updates that produced no significant change and were not logged",
		}, []string{"subject_type"}),

		SaveFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_trail_save_failures_total",
			Help: "Audit trail entries that could not be persisted",
		}, []string{"kind", "subject_type"}),

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_trail_publish_failures_total",
			Help: "Persisted entries that could not be mirrored to the message broker",
		}),
	}
}

func (m *Metrics) IncrementRecorded(kind, subjectType string) {
	if m != nil {
		m.EntriesRecorded.WithLabelValues(kind, subjectType).Inc()
	}
}

func (m *Metrics) IncrementUpdateSkipped(subjectType string) {
	if m != nil {
		m.UpdatesSkipped.WithLabelValues(subjectType).Inc()
	}
}

func (m *Metrics) IncrementSaveFailure(kind, subjectType string) {
	if m != nil {
		m.SaveFailures.WithLabelValues(kind, subjectType).Inc()
	}
}

func (m *Metrics) IncrementPublishFailure() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}
