package jobs

import "errors"

var (
	// ErrUnknownCorrelation means an inbound callback references a content id
	// with no extraction job. It indicates a foreign or stale delivery and is
	// never retried on our side.
	ErrUnknownCorrelation = errors.New("callback correlation matches no job")

	// ErrConflictRetriesExceeded means a callback apply kept losing the
	// version guard to concurrent writers. Surfaced as a transient failure so
	// the AI server re-delivers.
	ErrConflictRetriesExceeded = errors.New("concurrent job updates exceeded retry budget")
)
