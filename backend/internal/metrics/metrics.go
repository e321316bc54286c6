// Package metrics exposes prometheus counters for relationship activity.
// All methods are safe on a nil *Metrics so callers never have to guard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "daydei_social"

// Transition labels
const (
	TransitionRequested = "requested"
	TransitionAccepted  = "accepted"
	TransitionRemoved   = "removed"
	TransitionCanceled  = "canceled"
	TransitionRejected  = "rejected"
)

// Notification outcome labels
const (
	NotificationPublished = "published"
	NotificationFailed    = "failed"
	NotificationDropped   = "dropped"
)

type Metrics struct {
	transitions    *prometheus.CounterVec
	relationErrors *prometheus.CounterVec
	inconsistent   prometheus.Counter
	notifications  *prometheus.CounterVec
	recommended    prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "friend_transitions_total",
			Help:      "Committed friend state transitions.",
		}, []string{"transition"}),
		relationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relation_errors_total",
			Help:      "Rejected relationship operations by error kind.",
		}, []string{"kind"}),
		inconsistent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inconsistent_pairs_detected_total",
			Help:      "Operations that found friend edges in both directions.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by delivery outcome.",
		}, []string{"outcome"}),
		recommended: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_candidates",
			Help:      "Number of candidates returned per recommendation request.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

func (m *Metrics) Transition(name string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(name).Inc()
}

func (m *Metrics) RelationError(kind string) {
	if m == nil {
		return
	}
	m.relationErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Inconsistent() {
	if m == nil {
		return
	}
	m.inconsistent.Inc()
}

func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Recommended(n int) {
	if m == nil {
		return
	}
	m.recommended.Observe(float64(n))
}
