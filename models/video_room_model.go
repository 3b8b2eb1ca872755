package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoomStatusCreated    = "created"
	RoomStatusInProgress = "in-progress"
	RoomStatusCompleted  = "completed"
	RoomStatusFailed     = "failed"
)

// VideoRoom mirrors one conferencing room at the external provider. A slate
// accumulates rooms as a log; only the latest entry is authoritative.
type VideoRoom struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SlateID uuid.UUID `gorm:"not null;index" json:"slate_id"`

	SID         string  `gorm:"size:64;not null" json:"sid"`
	Status      string  `gorm:"size:20;not null" json:"status"`
	ResourceURL string  `gorm:"size:255" json:"url"`
	Duration    *int    `json:"duration"`
	Links       *string `gorm:"type:text" json:"links"`

	DateCreated time.Time `json:"date_created"`
	DateUpdated time.Time `json:"date_updated"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
