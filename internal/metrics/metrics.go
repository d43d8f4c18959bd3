// Package metrics holds the Prometheus collectors for facter invocations
// and the fact cache.
package metrics

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "facter_lookup"

//nolint:gochecknoglobals // Collectors are process-wide by nature.
var (
	// InvocationLatency tracks wall time of one facter process run.
	InvocationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "invoker",
			Name:      "invocation_latency_seconds",
			Help:      "Time spent running the facter executable",
		},
		[]string{"format"},
	)

	// Invocations counts facter process runs by format and outcome.
	Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoker",
			Name:      "invocations_total",
			Help:      "Number of facter executable runs",
		},
		[]string{"format", "outcome"},
	)

	// FormatFallbacks counts JSON attempts that were retried in text mode.
	FormatFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "format_fallbacks_total",
			Help:      "Number of times JSON output was abandoned for text output",
		},
	)

	// CacheRequests counts cache lookups by result (hit, miss, bypass, disabled).
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Number of fact mapping requests by cache result",
		},
		[]string{"result"},
	)
)

// Outcome labels for Invocations.
const (
	OutcomeOK          = "ok"
	OutcomeStartFailed = "start_failed"
	OutcomeNonZeroExit = "non_zero_exit"
	OutcomeTimeout     = "timeout"
	OutcomeCanceled    = "canceled"
)

// Result labels for CacheRequests.
const (
	CacheResultHit      = "hit"
	CacheResultMiss     = "miss"
	CacheResultBypass   = "bypass"
	CacheResultDisabled = "disabled"
)

var registerOnce sync.Once //nolint:gochecknoglobals // Guards MustRegister.

// MustRegister registers all collectors with the default Prometheus registry.
// Calling it more than once is a no-op.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			InvocationLatency,
			Invocations,
			FormatFallbacks,
			CacheRequests,
		)
	})
}

// WriteText registers the collectors if needed and writes their current
// values to w in the Prometheus text exposition format.
func WriteText(w io.Writer) error {
	MustRegister()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
