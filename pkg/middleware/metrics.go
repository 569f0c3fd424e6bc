package middleware

import (
	"net/http"

	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMetricsHandler serves metrics from the default prometheus.Registry.
var DefaultMetricsHandler = NewMetricsHandlerWithDefaultRegistry()

// NewMetricsHandlerWithDefaultRegistry creates a new http.Handler for serving
// metrics from the default prometheus.Registry.
func NewMetricsHandlerWithDefaultRegistry() http.Handler {
	return NewMetricsHandler(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsHandler creates a new http.Handler for serving metrics from the
// provided prometheus.Registerer and prometheus.Gatherer
func NewMetricsHandler(registerer prometheus.Registerer, gatherer prometheus.Gatherer) http.Handler {
	return promhttp.InstrumentMetricHandler(
		registerer, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	)
}

// NewRequestMetricsWithDefaultRegistry returns a middleware that will record
// metrics for HTTP requests to the default prometheus.Registry
func NewRequestMetricsWithDefaultRegistry() alice.Constructor {
	return NewRequestMetrics(prometheus.DefaultRegisterer)
}

// NewRequestMetrics returns a middleware recording, for every request passing
// through it, a total bucketed by response code, an in-flight gauge, and a
// latency histogram bucketed by method. Collectors are registered once, when
// the middleware is built.
func NewRequestMetrics(registerer prometheus.Registerer) alice.Constructor {
	requests := register(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_requests_total",
			Help: "Total number of requests by HTTP status code.",
		},
		[]string{"code"},
	)).(*prometheus.CounterVec)

	inFlight := register(registerer, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "authgate_requests_in_flight",
			Help: "Current number of requests being served.",
		},
	)).(prometheus.Gauge)

	duration := register(registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authgate_response_duration_seconds",
			Help:    "A histogram of request latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)).(*prometheus.HistogramVec)

	return func(next http.Handler) http.Handler {
		next = promhttp.InstrumentHandlerDuration(duration, next)
		next = promhttp.InstrumentHandlerInFlight(inFlight, next)
		return promhttp.InstrumentHandlerCounter(requests, next)
	}
}

// register adds the collector to the registry, handing back the collector
// already registered under the same descriptor when there is one. Gateways
// are rebuilt freely in tests, so re-registration must not panic.
func register(registerer prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	if err := registerer.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return collector
}
