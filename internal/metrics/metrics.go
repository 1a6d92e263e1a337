// Package metrics holds the Prometheus metrics recorded by clicheck.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation outcomes.
const (
	OutcomeExited        = "exited"
	OutcomeLaunchFailure = "launch_failure"
	OutcomeIOFailure     = "io_failure"
	OutcomeTimeout       = "timeout"
	OutcomeCanceled      = "canceled"
)

var (
	// InvocationsTotal counts harness invocations by outcome.
	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clicheck",
			Subsystem: "runner",
			Name:      "invocations_total",
			Help:      "Total number of command invocations by outcome",
		},
		[]string{"outcome"},
	)

	// InvocationDuration tracks wall time from launch to exit.
	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clicheck",
			Subsystem: "runner",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of command invocations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 16), // 5ms to ~2.7m
		},
		[]string{"outcome"},
	)

	// CasesTotal counts suite cases by final status.
	CasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clicheck",
			Subsystem: "suite",
			Name:      "cases_total",
			Help:      "Total number of suite cases by status",
		},
		[]string{"status"},
	)
)

// ObserveInvocation records one harness invocation.
func ObserveInvocation(outcome string, d time.Duration) {
	InvocationsTotal.WithLabelValues(outcome).Inc()
	InvocationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveCase records the final status of one suite case.
func ObserveCase(status string) {
	CasesTotal.WithLabelValues(status).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
