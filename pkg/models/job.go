package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusInFlight  = "in_flight"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// JobTypePlaceExtraction asks the AI server to extract travel places from an SNS post.
const JobTypePlaceExtraction = "place_extraction"

// DefaultMaxAttempt bounds how many times a job may be dispatched before it is
// forced to failed.
const DefaultMaxAttempt = 3

// Job tracks one asynchronous extraction request delegated to the AI server.
// The server acknowledges the dispatch synchronously and delivers the actual
// result later via the webhook callback; the job row is the source of truth
// for that whole exchange. Every write goes through a compare-and-swap on
// Version, so a retry sweep and a late callback racing on the same job cannot
// corrupt it.
type Job struct {
	ID               uuid.UUID  `db:"id"                 json:"id"`
	ContentID        uuid.UUID  `db:"content_id"         json:"content_id"`
	Type             string     `db:"type"               json:"type"`
	Status           string     `db:"status"             json:"status"`
	Attempt          int        `db:"attempt"            json:"attempt"`
	MaxAttempt       int        `db:"max_attempt"        json:"max_attempt"`
	Result           []byte     `db:"result"             json:"result,omitempty"`
	FailureReason    *string    `db:"failure_reason"     json:"failure_reason,omitempty"`
	StartedAt        *time.Time `db:"started_at"         json:"started_at,omitempty"`
	LastDispatchedAt *time.Time `db:"last_dispatched_at" json:"last_dispatched_at,omitempty"`
	FinishedAt       *time.Time `db:"finished_at"        json:"finished_at,omitempty"`
	Version          int64      `db:"version"            json:"version"`
	CreatedAt        time.Time  `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"         json:"updated_at"`
}

// Terminal reports whether the job reached a final state. Terminal jobs are
// never mutated again.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
