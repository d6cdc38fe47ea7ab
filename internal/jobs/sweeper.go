package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/suhsaechan/tripgether/internal/aiserver"
	"github.com/suhsaechan/tripgether/internal/cache"
	"github.com/suhsaechan/tripgether/internal/config"
	"github.com/suhsaechan/tripgether/internal/metrics"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

// Sweeper periodically re-dispatches in-flight jobs whose dispatch was never
// acknowledged within the deadline, and fails jobs that exhausted their
// attempt budget. Only acceptance is deadlined: a job whose dispatch was
// acknowledged waits for its result callback indefinitely, so the deadline is
// measured from the last dispatch, not from job creation.
type Sweeper struct {
	store     store.Store
	cache     cache.Cache
	ai        aiserver.Client
	sync      *Synchronizer
	deadline  time.Duration
	interval  time.Duration
	batchSize int
}

// NewSweeper creates a Sweeper from job engine config.
func NewSweeper(st store.Store, ca cache.Cache, ai aiserver.Client, sy *Synchronizer, cfg config.JobsConfig) *Sweeper {
	return &Sweeper{
		store:     st,
		cache:     ca,
		ai:        ai,
		sync:      sy,
		deadline:  cfg.DispatchDeadline,
		interval:  cfg.SweepInterval,
		batchSize: cfg.SweepBatchSize,
	}
}

// Run ticks the sweep until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("retry sweeper started", "interval", s.interval, "dispatch_deadline", s.deadline)
	for {
		select {
		case <-ctx.Done():
			slog.Info("retry sweeper stopped")
			return
		case now := <-ticker.C:
			if _, _, err := s.Tick(ctx, now.UTC()); err != nil {
				slog.Error("retry sweep failed", "error", err)
			}
		}
	}
}

// Tick performs one sweep pass. Sweep order across jobs is irrelevant: each
// job's transition is guarded by its own version, so a pass racing callbacks
// or another pass only loses individual compare-and-swaps.
func (s *Sweeper) Tick(ctx context.Context, now time.Time) (redispatched, failed int, err error) {
	stalled, err := s.store.ListStalledJobs(ctx, now.Add(-s.deadline), s.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("listing stalled jobs: %w", err)
	}

	for _, job := range stalled {
		if job.Attempt >= job.MaxAttempt {
			if s.failExhausted(ctx, job, now) {
				failed++
			}
			continue
		}
		if s.redispatch(ctx, job, now) {
			redispatched++
		}
	}
	return redispatched, failed, nil
}

// failExhausted forces a job past its attempt budget to failed and notifies
// the owner. Reports whether this sweeper won the transition.
func (s *Sweeper) failExhausted(ctx context.Context, job *models.Job, now time.Time) bool {
	reason := fmt.Sprintf("no callback after %d attempts", job.Attempt)
	job.Status = models.JobStatusFailed
	job.FailureReason = &reason
	job.FinishedAt = &now

	if err := s.store.UpdateJob(ctx, job); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			// A late callback (or another pass) already moved the job.
			metrics.VersionConflicts.Inc()
			return false
		}
		slog.Error("failing exhausted job", "job_id", job.ID, "error", err)
		return false
	}

	_ = s.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL)
	metrics.ExhaustedTotal.Inc()
	slog.Warn("job failed after exhausting attempts",
		"job_id", job.ID, "content_id", job.ContentID, "attempts", job.Attempt)

	if err := s.sync.OnTerminal(ctx, job.ContentID, job.Type, Outcome{ReasonCode: "attempts_exhausted"}); err != nil {
		slog.Warn("owner synchronization failed",
			"job_id", job.ID, "content_id", job.ContentID, "error", err)
	}
	return true
}

// redispatch claims another attempt for a stalled job and re-sends the
// external request with the same correlation id, so a late callback for an
// earlier attempt still resolves. Reports whether this sweeper won the
// attempt increment.
func (s *Sweeper) redispatch(ctx context.Context, job *models.Job, now time.Time) bool {
	job.Attempt++
	job.LastDispatchedAt = &now

	if err := s.store.UpdateJob(ctx, job); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
			return false
		}
		slog.Error("claiming retry attempt", "job_id", job.ID, "error", err)
		return false
	}

	metrics.RedispatchesTotal.Inc()
	slog.Info("re-dispatching stalled job",
		"job_id", job.ID, "content_id", job.ContentID, "attempt", job.Attempt)

	content, err := s.store.GetContent(ctx, job.ContentID)
	if err != nil {
		// Attempt is already recorded; the job will exhaust normally.
		slog.Error("resolving content for re-dispatch", "job_id", job.ID, "error", err)
		return true
	}
	if err := s.ai.RequestExtraction(ctx, job.ContentID, content.OriginalURL); err != nil {
		metrics.DispatchErrors.Inc()
		slog.Warn("re-dispatch not acknowledged",
			"job_id", job.ID, "attempt", job.Attempt, "error", err)
	}
	return true
}
