package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridewatch",
			Subsystem: "monitor",
			Name:      "polls_total",
			Help:      "Number of status polls performed per request.",
		}, []string{"request"},
	)
	pollFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridewatch",
			Subsystem: "monitor",
			Name:      "poll_failures_total",
			Help:      "Number of failed status polls per request.",
		}, []string{"request"},
	)
	noticesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridewatch",
			Subsystem: "notify",
			Name:      "notices_total",
			Help:      "Number of operator notices sent per category.",
		}, []string{"category"},
	)
	retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ridewatch",
			Subsystem: "monitor",
			Name:      "retries_total",
			Help:      "Number of automatic re-submissions after a no-driver outcome.",
		},
	)
	activeMonitors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ridewatch",
			Subsystem: "monitor",
			Name:      "active",
			Help:      "Monitors currently polling.",
		},
	)
	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridewatch",
			Subsystem: "monitor",
			Name:      "outcomes_total",
			Help:      "Terminal outcomes observed per category.",
		}, []string{"outcome"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{pollsTotal, pollFailures, noticesTotal, retriesTotal, activeMonitors, outcomesTotal}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncPoll(requestID string) {
	if regOK.Load() {
		pollsTotal.WithLabelValues(requestID).Inc()
	}
}

func IncPollFailure(requestID string) {
	if regOK.Load() {
		pollFailures.WithLabelValues(requestID).Inc()
	}
}

func IncNotice(category string) {
	if regOK.Load() {
		noticesTotal.WithLabelValues(category).Inc()
	}
}

func IncRetry() {
	if regOK.Load() {
		retriesTotal.Inc()
	}
}

func SetActiveMonitors(n int) {
	if regOK.Load() {
		activeMonitors.Set(float64(n))
	}
}

func IncOutcome(outcome string) {
	if regOK.Load() {
		outcomesTotal.WithLabelValues(outcome).Inc()
	}
}
