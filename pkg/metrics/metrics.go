// Package metrics exposes the gateway's flow counters. Every counter carries
// an outcome label so dashboards can split successes from the various
// failure classes without a metric per class.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by the flow counters.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeDenied    = "denied"
	OutcomeInvalid   = "invalid"
	OutcomeBypass    = "bypass"
	OutcomeRefreshed = "refreshed"
)

var (
	logins             = registerOutcomeCounter("authgate_logins_total", "Total number of completed login flows by outcome.")
	validations        = registerOutcomeCounter("authgate_validations_total", "Total number of validate subrequests by outcome.")
	refreshes          = registerOutcomeCounter("authgate_refreshes_total", "Total number of silent session refresh attempts by outcome.")
	discoveryRefreshes = registerOutcomeCounter("authgate_discovery_refreshes_total", "Total number of background provider discovery fetches by outcome.")
)

// RecordLogin counts a finished login flow (callback handled).
func RecordLogin(outcome string) {
	logins.WithLabelValues(outcome).Inc()
}

// RecordValidation counts a validate subrequest.
func RecordValidation(outcome string) {
	validations.WithLabelValues(outcome).Inc()
}

// RecordRefresh counts a silent refresh attempt.
func RecordRefresh(outcome string) {
	refreshes.WithLabelValues(outcome).Inc()
}

// RecordDiscoveryRefresh counts a background discovery fetch.
func RecordDiscoveryRefresh(outcome string) {
	discoveryRefreshes.WithLabelValues(outcome).Inc()
}

func registerOutcomeCounter(name, help string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		[]string{"outcome"},
	)

	if err := prometheus.DefaultRegisterer.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			counter = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			panic(err)
		}
	}

	return counter
}
