package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the KYC workflow. All methods are
// safe on a nil receiver.
type Metrics struct {
	// Compliance and document check latency and outcomes by check name
	CheckLatency *prometheus.HistogramVec
	CheckOutcome *prometheus.CounterVec

	// Breaker transitions per check
	BreakerTransitions *prometheus.CounterVec

	// Pre-review decisions: auto_approved, auto_rejected, escalated
	Decisions *prometheus.CounterVec

	// Manual verdicts by step and result
	Reviews *prometheus.CounterVec

	RiskScore prometheus.Histogram

	// Pre-review latency including evidence gathering
	PreReviewLatency prometheus.Histogram

	// Sweep actions on stalled reviews: escalated, skipped, flagged
	StalledActions *prometheus.CounterVec

	ConflictRetries prometheus.Counter

	// Notification delivery: delivered, failed, dropped
	Notifications *prometheus.CounterVec
}

// New registers metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycflow_check_duration_seconds",
			Help:    "Duration of compliance and document checks by check name",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"check"}),

		CheckOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_check_outcomes_total",
			Help: "Check outcomes by check name and result",
		}, []string{"check", "result"}),

		BreakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_check_breaker_transitions_total",
			Help: "Circuit breaker transitions by check name and new state",
		}, []string{"check", "state"}),

		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_prereview_decisions_total",
			Help: "Automated pre-review decisions by outcome",
		}, []string{"outcome"}),

		Reviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_reviews_total",
			Help: "Manual review verdicts by step and result",
		}, []string{"step", "result"}),

		RiskScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycflow_risk_score",
			Help:    "Distribution of final risk scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 100, 200},
		}),

		PreReviewLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycflow_prereview_duration_seconds",
			Help:    "Duration of automated pre-review including evidence gathering",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		StalledActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_stalled_review_actions_total",
			Help: "Actions taken on reviews exceeding the timeout",
		}, []string{"action"}),

		ConflictRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "kycflow_conflict_retries_total",
			Help: "Transitions retried after losing an optimistic concurrency race",
		}),

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_notifications_total",
			Help: "Notification delivery outcomes",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveCheck(check, result string, d time.Duration) {
	if m != nil {
		m.CheckLatency.WithLabelValues(check).Observe(d.Seconds())
		m.CheckOutcome.WithLabelValues(check, result).Inc()
	}
}

func (m *Metrics) IncrementBreakerTransition(check, state string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(check, state).Inc()
	}
}

func (m *Metrics) IncrementDecision(outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementReview(step, result string) {
	if m != nil {
		m.Reviews.WithLabelValues(step, result).Inc()
	}
}

func (m *Metrics) ObserveRiskScore(score float64) {
	if m != nil {
		m.RiskScore.Observe(score)
	}
}

func (m *Metrics) ObservePreReviewLatency(d time.Duration) {
	if m != nil {
		m.PreReviewLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementStalled(action string) {
	if m != nil {
		m.StalledActions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncrementConflictRetry() {
	if m != nil {
		m.ConflictRetries.Inc()
	}
}

func (m *Metrics) IncrementNotification(outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(outcome).Inc()
	}
}
