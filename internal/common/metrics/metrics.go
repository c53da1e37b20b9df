// Package metrics holds the Prometheus collectors shared by workers and the
// preparation pipeline.
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

	ValidationViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_validation_violations_total",
			Help: "Rule violations reported by payment field validation",
		},
		[]string{"rule_type"},
	)

	PreparationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_preparation_outcomes_total",
			Help: "Payment preparations by outcome",
		},
		[]string{"outcome"},
	)

	PreparationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_preparation_duration_seconds",
			Help:    "Time spent validating and encrypting one payment request",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	ProductCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_metadata_cache_lookups_total",
			Help: "Product metadata cache lookups by result",
		},
		[]string{"result"},
	)

	ProductCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "product_metadata_cache_evictions_total",
			Help: "Entries evicted from the product metadata cache",
		},
	)

	ProductCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_metadata_cache_entries",
			Help: "Entries currently held by the product metadata cache",
		},
	)
)

// Preparation outcome labels.
const (
	OutcomePrepared       = "prepared"
	OutcomeInvalid        = "invalid"
	OutcomeConfiguration  = "configuration_error"
	OutcomeKeyUnavailable = "key_unavailable"
	OutcomePayload        = "payload_encoding_error"
	OutcomeCipher         = "cipher_error"
	OutcomeFailed         = "failed"
)
