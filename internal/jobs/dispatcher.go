// Package jobs is the extraction job engine: it dispatches place-extraction
// requests to the AI server, correlates the eventual webhook callbacks back to
// jobs, retries attempts that were never acknowledged, and propagates terminal
// outcomes to the owning content.
//
// Concurrency model: callbacks, retry sweeps and dispatch requests all run
// independently. The only shared state is the job row, and every mutation goes
// through the store's version-guarded compare-and-swap, so per-job transitions
// are linearized without any cross-job locking. No network call is ever made
// inside a store transaction.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/aiserver"
	"github.com/suhsaechan/tripgether/internal/cache"
	"github.com/suhsaechan/tripgether/internal/metrics"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

const statusCacheTTL = 30 * time.Minute

// Outcome is a terminal result reported for a job, either by the AI server's
// callback or by the sweeper exhausting the attempt budget.
type Outcome struct {
	Success     bool
	Result      []byte // raw callback payload, stored on the job when Success
	ReasonCode  string
	ContentInfo *models.CallbackContentInfo
	Places      []models.CallbackPlace
}

// Dispatcher creates extraction jobs and sends the external request.
type Dispatcher struct {
	store      store.Store
	cache      cache.Cache
	ai         aiserver.Client
	maxAttempt int
}

// NewDispatcher creates a Dispatcher. maxAttempt below 1 falls back to the
// model default.
func NewDispatcher(st store.Store, ca cache.Cache, ai aiserver.Client, maxAttempt int) *Dispatcher {
	if maxAttempt < 1 {
		maxAttempt = models.DefaultMaxAttempt
	}
	return &Dispatcher{store: st, cache: ca, ai: ai, maxAttempt: maxAttempt}
}

// Dispatch returns the active job for (contentID, jobType), creating and
// dispatching a new one if none exists. The bool reports whether a new job was
// created; a reused job means no external call was made. The external request
// is issued strictly after the claim transaction commits, and a transport
// failure does not fail the job: acceptance is then unknown and the retry
// sweeper re-dispatches once the dispatch deadline lapses.
func (d *Dispatcher) Dispatch(ctx context.Context, contentID uuid.UUID, jobType string) (*models.Job, bool, error) {
	content, err := d.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, false, fmt.Errorf("resolving content: %w", err)
	}

	job, created, err := d.store.ClaimJob(ctx, contentID, jobType, d.maxAttempt)
	if err != nil {
		return nil, false, fmt.Errorf("claiming job: %w", err)
	}
	if !created {
		metrics.DispatchesTotal.WithLabelValues("reused").Inc()
		return job, false, nil
	}

	metrics.DispatchesTotal.WithLabelValues("created").Inc()
	_ = d.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL)

	if err := d.ai.RequestExtraction(ctx, contentID, content.OriginalURL); err != nil {
		metrics.DispatchErrors.Inc()
		slog.Warn("dispatch not acknowledged, leaving job in flight",
			"job_id", job.ID,
			"content_id", contentID,
			"error", err,
		)
	}

	return job, true, nil
}
