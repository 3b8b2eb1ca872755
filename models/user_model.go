package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FirstName string    `gorm:"size:100;not null" json:"first_name"`
	LastName  string    `gorm:"size:100;not null" json:"last_name"`
	Email     string    `gorm:"size:255;not null;unique" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"size:20;not null;default:'student'" json:"role"`

	// Aggregates are nullable on purpose: a mean over zero sessions is
	// undefined, never zero.
	BehaviourRating                         *float64 `gorm:"type:numeric(4,2)" json:"behaviour_rating"`
	OverallContentRating                    *float64 `gorm:"type:numeric(4,2)" json:"overall_content_rating"`
	MathContentRating                       *float64 `gorm:"type:numeric(4,2)" json:"math_content_rating"`
	ScienceContentRating                    *float64 `gorm:"type:numeric(4,2)" json:"science_content_rating"`
	SocialStudiesContentRating              *float64 `gorm:"type:numeric(4,2)" json:"social_studies_content_rating"`
	LanguageArtsContentRating               *float64 `gorm:"type:numeric(4,2)" json:"language_arts_content_rating"`
	ForeignLanguageAcquisitionContentRating *float64 `gorm:"type:numeric(4,2)" json:"foreign_language_acquisition_content_rating"`

	TotalTutoringSeconds int64 `gorm:"not null;default:0" json:"total_tutoring_seconds"`

	Chats []*Chat `gorm:"many2many:chat_participants;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicProfile is the projection of a user attached to slates and messages.
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

// ContentRatingBySubject maps each subject to the user's stored aggregate for
// it, nil when no rated session exists for that subject yet.
func (u *User) ContentRatingBySubject() map[Subject]*float64 {
	return map[Subject]*float64{
		SubjectMath:                       u.MathContentRating,
		SubjectScience:                    u.ScienceContentRating,
		SubjectSocialStudies:              u.SocialStudiesContentRating,
		SubjectLanguageArts:               u.LanguageArtsContentRating,
		SubjectForeignLanguageAcquisition: u.ForeignLanguageAcquisitionContentRating,
	}
}
