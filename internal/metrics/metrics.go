// Package metrics defines Prometheus metrics for the portal session layer.
//
// Metric naming follows Prometheus conventions:
//   - academy_ prefix for all custom metrics
//   - _total suffix for counters
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionChecksTotal counts session validations by role and outcome.
	SessionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_session_checks_total",
			Help: "Total session validations by role and result.",
		},
		[]string{"role", "result"},
	)

	// SessionClearsTotal counts sessions removed by role and reason.
	SessionClearsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_session_clears_total",
			Help: "Total sessions cleared by role and reason.",
		},
		[]string{"role", "reason"},
	)

	// LoginsTotal counts stored login responses by role and result.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_logins_total",
			Help: "Total login responses handled by role and result.",
		},
		[]string{"role", "result"},
	)
)

// Registry holds the portal metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		SessionChecksTotal,
		SessionClearsTotal,
		LoginsTotal,
		collectors.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
