// Package metrics exposes Prometheus counters for the discovery and
// dispatch engines.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	leadsAccepted prometheus.Counter
	leadsRejected *prometheus.CounterVec
	queriesTotal  prometheus.Counter
	messagesTotal *prometheus.CounterVec
)

// Init registers the collectors on the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		leadsAccepted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadgen_leads_accepted_total",
			Help: "Leads written to the store.",
		})
		leadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgen_leads_rejected_total",
			Help: "Candidate listings rejected before the store.",
		}, []string{"reason"})
		queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadgen_queries_total",
			Help: "Search queries processed.",
		})
		messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgen_messages_total",
			Help: "Outreach attempts by final status.",
		}, []string{"status"})
	})
}

// LeadAccepted records a lead landing in the store.
func LeadAccepted() {
	if leadsAccepted != nil {
		leadsAccepted.Inc()
	}
}

// LeadRejected records a candidate dropped before the store.
func LeadRejected(reason string) {
	if leadsRejected != nil {
		leadsRejected.WithLabelValues(reason).Inc()
	}
}

// QueryProcessed records one completed search query.
func QueryProcessed() {
	if queriesTotal != nil {
		queriesTotal.Inc()
	}
}

// MessageOutcome records the terminal status of one outreach attempt.
func MessageOutcome(status string) {
	if messagesTotal != nil {
		messagesTotal.WithLabelValues(status).Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
