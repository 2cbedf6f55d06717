// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// Metrics holds the orchestrator's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	fetchesTotal   *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	newSignals     prometheus.Counter
	dedupedSignals prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Name:      "search_runs_total",
				Help:      "Search runs recorded, by status",
			},
			[]string{"status"},
		),
		fetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Name:      "connector_fetches_total",
				Help:      "Connector fetches, by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Name:      "connector_fetch_duration_seconds",
				Help:      "Duration of connector fetches in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to 32s
			},
			[]string{"source"},
		),
		newSignals: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Name:      "new_signals_total",
				Help:      "Signals inserted by search runs",
			},
		),
		dedupedSignals: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Name:      "deduplicated_signals_total",
				Help:      "Candidates dropped as already known",
			},
		),
	}
}

func (m *Metrics) observeFetch(source types.SourceType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(string(source), outcome).Inc()
	m.fetchDuration.WithLabelValues(string(source)).Observe(d.Seconds())
}

func (m *Metrics) observeRun(status types.RunStatus, inserted, deduped int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(status)).Inc()
	m.newSignals.Add(float64(inserted))
	m.dedupedSignals.Add(float64(deduped))
}
