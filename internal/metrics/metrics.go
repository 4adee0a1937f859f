package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters.  Everything is registered on the
// given Registerer so tests can use private registries.
type Metrics struct {
	// Decisions counts published decisions, labelled PERMIT or DENY.
	Decisions *prometheus.CounterVec

	// DroppedMessages counts inbound scan messages dropped before a
	// decision, labelled by reason (bad_payload, unknown_scanner,
	// storage_error, queue_full).
	DroppedMessages *prometheus.CounterVec

	// AuditWriteFailures counts decisions whose audit record could not be
	// written.  The decision is still published; a non-zero rate here
	// means the audit log is incomplete.
	AuditWriteFailures prometheus.Counter

	// PublishFailures counts decisions that could not be delivered back
	// to the scanner.
	PublishFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portier_scan_decisions_total",
			Help: "Access decisions published to scanners.",
		}, []string{"decision"}),
		DroppedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portier_scan_messages_dropped_total",
			Help: "Inbound scan messages dropped before a decision was made.",
		}, []string{"reason"}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "portier_audit_write_failures_total",
			Help: "Scan events that could not be appended to the audit log.",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "portier_decision_publish_failures_total",
			Help: "Decisions that could not be published to the scanner topic.",
		}),
	}
}
