package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the terminal service collectors. A zero value (or nil) is a
// valid no-op recorder.
type Metrics struct {
	actions  *prometheus.CounterVec
	upstream *prometheus.HistogramVec
	stale    prometheus.Counter
	polls    *prometheus.CounterVec
	sessions prometheus.Gauge
}

// New registers the terminal metrics on reg. A nil registerer yields a recorder
// that drops everything.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terminal_actions_total",
		Help: "Page actions dispatched, by page, action and outcome.",
	}, []string{"page", "action", "outcome"})
	upstream := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "terminal_upstream_request_duration_seconds",
		Help:    "Latency of requests to the Flowork server.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	stale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "terminal_search_stale_responses_total",
		Help: "Search responses dropped because a newer query was issued.",
	})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terminal_task_polls_total",
		Help: "Background task status polls, by outcome.",
	}, []string{"outcome"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "terminal_sessions_active",
		Help: "Open terminal sessions.",
	})
	reg.MustRegister(actions, upstream, stale, polls, sessions)
	return &Metrics{
		actions:  actions,
		upstream: upstream,
		stale:    stale,
		polls:    polls,
		sessions: sessions,
	}
}

func (m *Metrics) ObserveAction(page, action, outcome string) {
	if m == nil || m.actions == nil {
		return
	}
	m.actions.WithLabelValues(normalizeLabel(page), normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// ObserveUpstream records the latency of one upstream call.
func (m *Metrics) ObserveUpstream(endpoint string, d time.Duration) {
	if m == nil || m.upstream == nil {
		return
	}
	m.upstream.WithLabelValues(normalizeLabel(endpoint)).Observe(d.Seconds())
}

func (m *Metrics) IncStaleSearch() {
	if m == nil || m.stale == nil {
		return
	}
	m.stale.Inc()
}

func (m *Metrics) IncTaskPoll(outcome string) {
	if m == nil || m.polls == nil {
		return
	}
	m.polls.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Dec()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
