package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solpos"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics groups the collectors of the checkout engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	useCaseRequests *prometheus.CounterVec
	useCaseDuration *prometheus.HistogramVec
	pollChecks      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		useCaseRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usecase_requests_total",
			Help:      "Use case invocations by outcome.",
		}, []string{"use_case", "outcome"}),
		useCaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "usecase_duration_seconds",
			Help:      "Use case latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"use_case"}),
		pollChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_poll_checks_total",
			Help:      "Ledger reference checks made by the confirmation poller.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.useCaseRequests, m.useCaseDuration, m.pollChecks)

	return m
}

// ObserveUseCase records one invocation of a use case that started at start.
// It is meant to be deferred.
func (m *Metrics) ObserveUseCase(useCase string, start time.Time, err error) {
	if m == nil {
		return
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}

	m.useCaseRequests.WithLabelValues(useCase, outcome).Inc()
	m.useCaseDuration.WithLabelValues(useCase).Observe(time.Since(start).Seconds())
}

// PollCheck counts one poller check; outcome is found, pending or error.
func (m *Metrics) PollCheck(outcome string) {
	if m == nil {
		return
	}

	m.pollChecks.WithLabelValues(outcome).Inc()
}
