package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// MatchRuns counts match sessions by terminal outcome
	// (completed, empty, rate_limited, failed, cancelled).
	MatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_match_runs_total",
			Help: "Match sessions by outcome",
		},
		[]string{"outcome"},
	)

	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholarship_match_stage_duration_seconds",
			Help:    "Time spent per match session stage",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	EligibleCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholarship_match_eligible_candidates",
			Help:    "Scholarships passing the eligibility filter per run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	EnrichmentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_enrichment_outcomes_total",
			Help: "Explanation generation outcomes",
		},
		[]string{"outcome"},
	)

	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_catalog_cache_lookups_total",
			Help: "Catalog cache hits and misses",
		},
		[]string{"result"},
	)
)
