package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/cache"
	"github.com/suhsaechan/tripgether/internal/metrics"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

const defaultConflictRetries = 3

// ApplyResult reports how a callback was applied.
type ApplyResult struct {
	Job       *models.Job
	Duplicate bool
}

// Correlator resolves inbound AI server callbacks to jobs and applies them
// exactly once. Callback delivery is at-least-once, so duplicates must be
// acknowledged as successes without touching the job.
type Correlator struct {
	store           store.Store
	cache           cache.Cache
	sync            *Synchronizer
	conflictRetries int
}

// NewCorrelator creates a Correlator.
func NewCorrelator(st store.Store, ca cache.Cache, sy *Synchronizer) *Correlator {
	return &Correlator{store: st, cache: ca, sync: sy, conflictRetries: defaultConflictRetries}
}

// Apply resolves the correlation id (the content id) to its most recent job of
// the given type and applies the outcome. A terminal job makes the callback a
// duplicate no-op. A version conflict means a retry dispatch is racing this
// callback; the callback stays authoritative, so the transition is retried
// against fresh state a bounded number of times.
func (c *Correlator) Apply(ctx context.Context, contentID uuid.UUID, jobType string, outcome Outcome) (*ApplyResult, error) {
	for i := 0; i < c.conflictRetries; i++ {
		job, err := c.store.GetJobByCorrelation(ctx, contentID, jobType)
		if errors.Is(err, store.ErrNotFound) {
			metrics.CallbacksTotal.WithLabelValues("unknown").Inc()
			return nil, fmt.Errorf("%w: content %s", ErrUnknownCorrelation, contentID)
		}
		if err != nil {
			return nil, fmt.Errorf("resolving correlation: %w", err)
		}

		if job.Terminal() {
			metrics.CallbacksTotal.WithLabelValues("duplicate").Inc()
			slog.Info("duplicate callback ignored",
				"job_id", job.ID, "content_id", contentID, "status", job.Status)
			return &ApplyResult{Job: job, Duplicate: true}, nil
		}

		now := time.Now().UTC()
		if outcome.Success {
			job.Status = models.JobStatusCompleted
			job.Result = outcome.Result
			job.FailureReason = nil
		} else {
			job.Status = models.JobStatusFailed
			job.Result = nil
			reason := outcome.ReasonCode
			if reason == "" {
				reason = "reported failed by ai server"
			}
			job.FailureReason = &reason
		}
		job.FinishedAt = &now

		if err := c.store.UpdateJob(ctx, job); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				metrics.VersionConflicts.Inc()
				continue
			}
			return nil, fmt.Errorf("applying callback: %w", err)
		}

		_ = c.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL)
		if outcome.Success {
			metrics.CallbacksTotal.WithLabelValues("applied_success").Inc()
		} else {
			metrics.CallbacksTotal.WithLabelValues("applied_failure").Inc()
		}

		// The job's terminal state is already committed and authoritative;
		// owner-side failures must never roll it back.
		if err := c.sync.OnTerminal(ctx, job.ContentID, jobType, outcome); err != nil {
			slog.Warn("owner synchronization failed",
				"job_id", job.ID, "content_id", contentID, "error", err)
		}

		return &ApplyResult{Job: job}, nil
	}

	return nil, fmt.Errorf("%w: content %s", ErrConflictRetriesExceeded, contentID)
}
