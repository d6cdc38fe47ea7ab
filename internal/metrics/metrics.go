package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchesTotal counts dispatch requests by result (created, reused).
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripgether_dispatches_total",
			Help: "Total number of extraction job dispatch requests",
		},
		[]string{"result"},
	)

	// DispatchErrors counts outbound calls the AI server did not acknowledge.
	DispatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripgether_dispatch_errors_total",
			Help: "Total number of unacknowledged dispatch calls to the AI server",
		},
	)

	// CallbacksTotal counts inbound callbacks by outcome
	// (applied_success, applied_failure, duplicate, unknown).
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripgether_callbacks_total",
			Help: "Total number of AI server callbacks received",
		},
		[]string{"outcome"},
	)

	// RedispatchesTotal counts retry re-dispatches performed by the sweeper.
	RedispatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripgether_redispatches_total",
			Help: "Total number of stalled jobs re-dispatched by the retry sweeper",
		},
	)

	// ExhaustedTotal counts jobs forced to failed after max attempts.
	ExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripgether_jobs_exhausted_total",
			Help: "Total number of jobs failed after exhausting their attempt budget",
		},
	)

	// VersionConflicts counts optimistic-lock losses on job writes.
	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripgether_job_version_conflicts_total",
			Help: "Total number of job writes rejected by the version guard",
		},
	)
)
