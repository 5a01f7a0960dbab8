package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeImproved  = "improved"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Metrics holds the quiz collectors. A nil *Metrics records nothing.
type Metrics struct {
	attemptsStarted     *prometheus.CounterVec
	submissions         *prometheus.CounterVec
	leaderboardRequests *prometheus.CounterVec
	persistDuration     prometheus.Histogram
	gatherer            prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		attemptsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_started_total",
				Help: "Total number of quiz attempts started",
			},
			[]string{"quiz_id"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Total number of quiz submissions by persistence outcome",
			},
			[]string{"outcome"},
		),
		leaderboardRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderboard_requests_total",
				Help: "Leaderboard requests by source (rpc or client)",
			},
			[]string{"source"},
		),
		persistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quiz_score_persist_duration_seconds",
				Help:    "Time spent applying best-attempt-wins to the score store",
				Buckets: prometheus.DefBuckets,
			},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.attemptsStarted, m.submissions, m.leaderboardRequests, m.persistDuration)
	return m
}

func (m *Metrics) AttemptStarted(quizID string) {
	if m == nil {
		return
	}
	m.attemptsStarted.WithLabelValues(quizID).Inc()
}

func (m *Metrics) Submitted(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePersist(d time.Duration) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(d.Seconds())
}

func (m *Metrics) LeaderboardServed(source string) {
	if m == nil {
		return
	}
	m.leaderboardRequests.WithLabelValues(source).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
