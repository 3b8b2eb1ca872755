package models

import (
	"time"

	"github.com/google/uuid"
)

// Slate is a tutoring time slot, from open listing through registration,
// video session and dual completion confirmation.
type Slate struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AccountID uuid.UUID `gorm:"not null" json:"account_id"`
	Subject   Subject   `gorm:"size:50;not null" json:"subject"`
	Details   *string   `gorm:"type:text" json:"details"`

	StartDateTime time.Time `gorm:"not null" json:"start_date_time"`
	EndDateTime   time.Time `gorm:"not null" json:"end_date_time"`

	RegisteredID *uuid.UUID `json:"registered_id"`
	RegisterDate *time.Time `json:"register_date"`

	MarkedCompletedTutor   bool `gorm:"not null;default:false" json:"marked_completed_tutor"`
	MarkedCompletedStudent bool `gorm:"not null;default:false" json:"marked_completed_student"`

	TutorContentRatingByStudent   *int `json:"tutor_content_rating_by_student"`
	TutorBehaviourRatingByStudent *int `json:"tutor_behaviour_rating_by_student"`
	StudentBehaviourRatingByTutor *int `json:"student_behaviour_rating_by_tutor"`

	// Elapsed seconds of the video encounter, set once both parties have
	// confirmed completion and the room is closed.
	SessionDuration *int `json:"session_duration"`

	Deleted    bool       `gorm:"not null;default:false" json:"-"`
	DeleteDate *time.Time `json:"-"`

	Account    User        `gorm:"foreignkey:AccountID" json:"-"`
	Registered *User       `gorm:"foreignkey:RegisteredID" json:"-"`
	Rooms      []VideoRoom `gorm:"foreignkey:SlateID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Slate) IsCreator(id uuid.UUID) bool {
	return s.AccountID == id
}

func (s *Slate) IsRegistrant(id uuid.UUID) bool {
	return s.RegisteredID != nil && *s.RegisteredID == id
}

func (s *Slate) IsParticipant(id uuid.UUID) bool {
	return s.IsCreator(id) || s.IsRegistrant(id)
}

// DualConfirmed reports whether both parties have acknowledged completion.
func (s *Slate) DualConfirmed() bool {
	return s.MarkedCompletedTutor && s.MarkedCompletedStudent
}

func (s *Slate) Finalized() bool {
	return s.SessionDuration != nil
}

// LatestRoom returns the authoritative room: rooms are kept as a log and only
// the most recently created entry drives completion and token logic.
func (s *Slate) LatestRoom() *VideoRoom {
	if len(s.Rooms) == 0 {
		return nil
	}
	latest := &s.Rooms[0]
	for i := range s.Rooms {
		if s.Rooms[i].CreatedAt.After(latest.CreatedAt) {
			latest = &s.Rooms[i]
		}
	}
	return latest
}

// SlateDetails is a slate joined with the counterpart profiles for display.
type SlateDetails struct {
	Slate
	AccountDetails    *PublicProfile `json:"account_details,omitempty"`
	RegisteredDetails *PublicProfile `json:"registered_details,omitempty"`
}
