package models

import (
	"time"

	"github.com/google/uuid"
)

// Place is a travel place extracted from SNS content. Places are deduplicated
// by (name, latitude, longitude) and shared across contents.
type Place struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Address     string    `db:"address"     json:"address"`
	Country     string    `db:"country"     json:"country"`
	Latitude    float64   `db:"latitude"    json:"latitude"`
	Longitude   float64   `db:"longitude"   json:"longitude"`
	Description *string   `db:"description" json:"description,omitempty"`
	RawData     *string   `db:"raw_data"    json:"-"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}

// ContentPlace links a content to an extracted place, preserving the order in
// which the AI server reported the places.
type ContentPlace struct {
	ContentID uuid.UUID `db:"content_id" json:"content_id"`
	PlaceID   uuid.UUID `db:"place_id"   json:"place_id"`
	Position  int       `db:"position"   json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
