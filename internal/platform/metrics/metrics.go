// Package metrics registers the Prometheus instruments for the registration
// saga and the sign-in path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsStarted   prometheus.Counter
	RegistrationsCompleted prometheus.Counter
	RegistrationsFailed    *prometheus.CounterVec // labelled by saga step
	CompensationRuns       prometheus.Counter
	OrphanedIdentities     prometheus.Counter
	SagaDuration           prometheus.Histogram

	SignInDenied  *prometheus.CounterVec // labelled by deny reason
	SignInSuccess prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RegistrationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_registrations_started_total",
			Help: "Provider registration attempts started.",
		}),
		RegistrationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_registrations_completed_total",
			Help: "Provider registration attempts that fully succeeded.",
		}),
		RegistrationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carehub_registrations_failed_total",
			Help: "Provider registration attempts failed, by saga step.",
		}, []string{"step"}),
		CompensationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_registration_compensations_total",
			Help: "Compensation passes executed after a saga failure.",
		}),
		OrphanedIdentities: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_registration_orphaned_identities_total",
			Help: "Identities the compensation pass failed to delete.",
		}),
		SagaDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "carehub_registration_duration_seconds",
			Help:    "Wall time of registration attempts.",
			Buckets: prometheus.DefBuckets,
		}),
		SignInDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carehub_signin_denied_total",
			Help: "Sign-in attempts denied by the account gate, by reason.",
		}, []string{"reason"}),
		SignInSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_signin_success_total",
			Help: "Sign-in attempts that produced a session.",
		}),
	}
}

// ObserveSaga records one finished registration attempt.
func (m *Metrics) ObserveSaga(start time.Time, failedStep string) {
	if m == nil {
		return
	}
	m.SagaDuration.Observe(time.Since(start).Seconds())
	if failedStep == "" {
		m.RegistrationsCompleted.Inc()
		return
	}
	m.RegistrationsFailed.WithLabelValues(failedStep).Inc()
}
