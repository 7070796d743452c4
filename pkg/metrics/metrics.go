package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring the relay orchestrator.
var (
	JobsIntaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_jobs_intaken_total",
		Help: "The total number of relay jobs admitted through the intake API",
	})

	JobsIntakeRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_jobs_intake_rejected_total",
		Help: "The total number of intake requests rejected by validation",
	}, []string{"reason"})

	JobsAttested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_jobs_attested_total",
		Help: "The total number of jobs that reached the attested state",
	})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_jobs_failed_total",
		Help: "The total number of jobs that reached the failed state, by reason",
	}, []string{"reason"})

	JobsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_jobs_confirmed_total",
		Help: "The total number of jobs that reached the confirmed state, by outcome",
	}, []string{"outcome"})

	PollAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_poll_attempts_total",
		Help: "The total number of attestation lookup attempts made by the poller",
	})

	PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_poll_cycle_seconds",
		Help:    "Time taken to process one attestation poller cycle",
		Buckets: prometheus.DefBuckets,
	})

	SubmissionAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_submission_attempts_total",
		Help: "The total number of destination submission attempts",
	})

	SubmissionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_submission_retries_total",
		Help: "The total number of transient submission failures that were retried",
	})

	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_submission_seconds",
		Help:    "Time from the start of a submission attempt (dry-run included) until the confirmation wait returns",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	PendingJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_jobs_pending",
		Help: "The number of jobs currently in each non-terminal status",
	}, []string{"status"})
)
