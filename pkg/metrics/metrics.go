// Package metrics exposes the Prometheus collectors for the analysis pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts affordability analyses by outcome
	// (approved, refused, rejected_document, error).
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affordability_analyses_total",
		Help: "Total number of affordability analyses by outcome.",
	}, []string{"outcome"})

	// AnalysisDuration tracks end-to-end analysis latency.
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "affordability_analysis_duration_seconds",
		Help:    "End-to-end duration of an affordability analysis.",
		Buckets: prometheus.DefBuckets,
	})

	// DocumentPages tracks how many pages the uploaded documents carry.
	DocumentPages = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "affordability_document_pages",
		Help:    "Number of pages per uploaded document.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	}, []string{"kind"})
)

// Outcome labels for AnalysesTotal.
const (
	OutcomeApproved         = "approved"
	OutcomeRefused          = "refused"
	OutcomeRejectedDocument = "rejected_document"
	OutcomeError            = "error"
)

// ObserveAnalysis records one finished analysis.
func ObserveAnalysis(outcome string, started time.Time) {
	AnalysesTotal.WithLabelValues(outcome).Inc()
	AnalysisDuration.Observe(time.Since(started).Seconds())
}
