package services

import (
	"fmt"

	"github.com/engagenetwork/engage-api/database"
	"github.com/engagenetwork/engage-api/models"
	"github.com/google/uuid"
)

// mean returns nil for an empty slice: an aggregate with no contributing
// sessions stays unset rather than dropping to zero.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var total float64
	for _, v := range values {
		total += v
	}
	m := total / float64(len(values))
	return &m
}

func toFloats(ratings []int) []float64 {
	values := make([]float64, len(ratings))
	for i, r := range ratings {
		values[i] = float64(r)
	}
	return values
}

// overallContentRating averages whichever per-subject aggregates are present.
// It is not re-derived from raw sessions.
func overallContentRating(bySubject map[models.Subject]*float64) *float64 {
	var values []float64
	for _, v := range bySubject {
		if v != nil {
			values = append(values, *v)
		}
	}
	return mean(values)
}

// RecalculateSubjectContentRating recomputes the tutor's content rating for
// the subject of the given slate, over every rated slate of that tutor in the
// same subject.
func RecalculateSubjectContentRating(slateID uuid.UUID) error {
	var slate models.Slate
	if err := database.DB.First(&slate, "id = ?", slateID).Error; err != nil {
		return err
	}

	column := slate.Subject.RatingColumn()
	if column == "" {
		return fmt.Errorf("unknown subject %q on slate %s", slate.Subject, slateID)
	}

	var ratings []int
	err := database.DB.Model(&models.Slate{}).
		Where("account_id = ? AND subject = ? AND tutor_content_rating_by_student IS NOT NULL AND deleted = false", slate.AccountID, slate.Subject).
		Pluck("tutor_content_rating_by_student", &ratings).Error
	if err != nil {
		return err
	}

	return database.DB.Model(&models.User{}).
		Where("id = ?", slate.AccountID).
		Update(column, mean(toFloats(ratings))).Error
}

// RecalculateOverallContentRating refreshes the tutor's overall rating from
// the per-subject aggregates currently stored on the account.
func RecalculateOverallContentRating(slateID uuid.UUID) error {
	var slate models.Slate
	if err := database.DB.First(&slate, "id = ?", slateID).Error; err != nil {
		return err
	}

	var account models.User
	if err := database.DB.First(&account, "id = ?", slate.AccountID).Error; err != nil {
		return err
	}

	return database.DB.Model(&models.User{}).
		Where("id = ?", account.ID).
		Update("overall_content_rating", overallContentRating(account.ContentRatingBySubject())).Error
}

// RecalculateTutorBehaviourRating recomputes the tutor's behaviour aggregate
// over every slate of theirs a student has rated.
func RecalculateTutorBehaviourRating(slateID uuid.UUID) error {
	var slate models.Slate
	if err := database.DB.First(&slate, "id = ?", slateID).Error; err != nil {
		return err
	}

	var ratings []int
	err := database.DB.Model(&models.Slate{}).
		Where("account_id = ? AND tutor_behaviour_rating_by_student IS NOT NULL AND deleted = false", slate.AccountID).
		Pluck("tutor_behaviour_rating_by_student", &ratings).Error
	if err != nil {
		return err
	}

	return database.DB.Model(&models.User{}).
		Where("id = ?", slate.AccountID).
		Update("behaviour_rating", mean(toFloats(ratings))).Error
}

// RecalculateStudentBehaviourRating recomputes the registrant's behaviour
// aggregate over every slate they registered for that the tutor has rated.
func RecalculateStudentBehaviourRating(slateID uuid.UUID) error {
	var slate models.Slate
	if err := database.DB.First(&slate, "id = ?", slateID).Error; err != nil {
		return err
	}
	if slate.RegisteredID == nil {
		return fmt.Errorf("slate %s has no registrant", slateID)
	}

	var ratings []int
	err := database.DB.Model(&models.Slate{}).
		Where("registered_id = ? AND student_behaviour_rating_by_tutor IS NOT NULL AND deleted = false", *slate.RegisteredID).
		Pluck("student_behaviour_rating_by_tutor", &ratings).Error
	if err != nil {
		return err
	}

	return database.DB.Model(&models.User{}).
		Where("id = ?", *slate.RegisteredID).
		Update("behaviour_rating", mean(toFloats(ratings))).Error
}

// RecalculateTutoringTime refreshes the tutor's total tutoring seconds from
// the durations of their finalized slates.
func RecalculateTutoringTime(slateID uuid.UUID) error {
	var slate models.Slate
	if err := database.DB.First(&slate, "id = ?", slateID).Error; err != nil {
		return err
	}

	var total int64
	err := database.DB.Model(&models.Slate{}).
		Where("account_id = ? AND session_duration IS NOT NULL AND deleted = false", slate.AccountID).
		Select("COALESCE(SUM(session_duration), 0)").
		Scan(&total).Error
	if err != nil {
		return err
	}

	return database.DB.Model(&models.User{}).
		Where("id = ?", slate.AccountID).
		Update("total_tutoring_seconds", total).Error
}
