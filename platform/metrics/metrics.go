// Package metrics holds the Prometheus collectors for the lead engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LeadsIngested     *prometheus.CounterVec
	Assignments       *prometheus.CounterVec
	DuplicatesRemoved prometheus.Counter
	MailboxFetched    prometheus.Counter
	FollowUpsCreated  prometheus.Counter
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LeadsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leads_ingested_total",
			Help: "Inbound messages and candidates processed, by source and outcome",
		}, []string{"source", "outcome"}),
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_assignments_total",
			Help: "Assignment attempts by mode (auto, manual, reassign) and result",
		}, []string{"mode", "result"}),
		DuplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lead_duplicates_removed_total",
			Help: "Staging leads removed by batch deduplication",
		}),
		MailboxFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailbox_messages_fetched_total",
			Help: "Messages fetched from the intake mailbox",
		}),
		FollowUpsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lead_initial_followups_created_total",
			Help: "Initial follow-ups created on assignment",
		}),
	}
	reg.MustRegister(
		prometheus.NewGoCollector(),
		m.LeadsIngested,
		m.Assignments,
		m.DuplicatesRemoved,
		m.MailboxFetched,
		m.FollowUpsCreated,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Ingested records one intake outcome.
func (m *Metrics) Ingested(source, outcome string) {
	if m == nil {
		return
	}
	m.LeadsIngested.WithLabelValues(source, outcome).Inc()
}

// Assigned records one assignment attempt.
func (m *Metrics) Assigned(mode string, ok bool) {
	if m == nil {
		return
	}
	result := "assigned"
	if !ok {
		result = "failed"
	}
	m.Assignments.WithLabelValues(mode, result).Inc()
}

// DuplicatesDeleted adds n removed duplicates.
func (m *Metrics) DuplicatesDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesRemoved.Add(float64(n))
}

// Fetched adds n fetched mailbox messages.
func (m *Metrics) Fetched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MailboxFetched.Add(float64(n))
}

// FollowUpCreated records one initial follow-up.
func (m *Metrics) FollowUpCreated() {
	if m == nil {
		return
	}
	m.FollowUpsCreated.Inc()
}
