// Package models contains shared data models used across the Tripgether codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ContentStatusPending   = "pending"
	ContentStatusCompleted = "completed"
	ContentStatusFailed    = "failed"
)

// Content is an SNS post submitted for place extraction. It is the owner
// entity of extraction jobs: jobs reference it by id, and its status is only
// moved to completed/failed by the synchronizer when a job goes terminal.
type Content struct {
	ID               uuid.UUID `db:"id"                json:"id"`
	OriginalURL      string    `db:"original_url"      json:"original_url"`
	Platform         *string   `db:"platform"          json:"platform,omitempty"`
	Title            *string   `db:"title"             json:"title,omitempty"`
	ThumbnailURL     *string   `db:"thumbnail_url"     json:"thumbnail_url,omitempty"`
	PlatformUploader *string   `db:"platform_uploader" json:"platform_uploader,omitempty"`
	Caption          *string   `db:"caption"           json:"caption,omitempty"`
	Status           string    `db:"status"            json:"status"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"        json:"updated_at"`
}
