package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drvideo_pipeline_runs_total",
		Help: "Total number of pipeline runs, by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drvideo_pipeline_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
	}, []string{"stage"})

	EventsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drvideo_events_skipped_total",
		Help: "Storage events ignored by the extension allow-list",
	})

	PollAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drvideo_poll_attempts_total",
		Help: "Status polls issued against the video indexing service",
	})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drvideo_active_runs",
		Help: "Pipeline runs currently in flight",
	})
)
