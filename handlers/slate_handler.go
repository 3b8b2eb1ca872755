package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/engagenetwork/engage-api/database"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/engagenetwork/engage-api/models"
	"github.com/engagenetwork/engage-api/notifications"
	"github.com/engagenetwork/engage-api/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errSlateUnauthorized = errors.New("caller is not a participant of this slate")
	errNoVideoRoom       = errors.New("no video session has taken place for this slate")
	errVideoRoomExists   = errors.New("a video session has already taken place for this slate")
)

type CreateListingRequest struct {
	Subject       string  `json:"subject" validate:"required"`
	Details       *string `json:"details,omitempty"`
	StartDateTime string  `json:"start_date_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndDateTime   string  `json:"end_date_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

func CreateListing(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var req CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	subject := models.Subject(req.Subject)
	if !subject.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown subject"})
	}

	start, _ := time.Parse(time.RFC3339, req.StartDateTime)
	end, _ := time.Parse(time.RFC3339, req.EndDateTime)
	if !end.After(start) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "End time must be after start time"})
	}

	listing := models.Slate{
		AccountID:     userID,
		Subject:       subject,
		Details:       req.Details,
		StartDateTime: start,
		EndDateTime:   end,
	}
	if err := database.DB.Create(&listing).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create listing"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Listing created successfully", "listing": listing})
}

// RegisterForSlate claims an open listing. Registration is a single
// conditional update so concurrent attempts cannot double-book: exactly one
// caller flips the registrant, the rest see a conflict.
func RegisterForSlate(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	id := c.Params("id")

	slateID, err := uuid.Parse(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	res := database.DB.Model(&models.Slate{}).
		Where("id = ? AND deleted = false AND registered_id IS NULL", slateID).
		Updates(map[string]interface{}{"registered_id": userID, "register_date": time.Now()})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register"})
	}

	if res.RowsAffected == 0 {
		var slate models.Slate
		if err := database.DB.First(&slate, "id = ? AND deleted = false", slateID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session already taken"})
	}

	var slate models.Slate
	if err := database.DB.Preload("Account").Preload("Registered").First(&slate, "id = ?", slateID).Error; err == nil && slate.Registered != nil {
		go notifications.SendEmail(slate.Registered.FirstName, slate.Registered.Email, "Engage Network - Registered for Session",
			fmt.Sprintf("<h4>Registered for Session</h4><p>You are registered for a %s session.</p>", slate.Subject))
		go notifications.SendEmail(slate.Account.FirstName, slate.Account.Email, "Engage Network - Listing Claimed",
			fmt.Sprintf("<h4>Listing Claimed</h4><p>A student has registered for your %s listing.</p>", slate.Subject))
	}

	return c.JSON(fiber.Map{"message": "Successfully registered for session"})
}

// CancelRegistration reverts a registration, provided no video session has
// taken place. The room check and the revert run under a row lock so a
// concurrently opened room cannot slip in between them.
func CancelRegistration(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	slateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var slate models.Slate
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slate, "id = ? AND deleted = false", slateID).Error; err != nil {
			return err
		}
		if !slate.IsRegistrant(userID) {
			return errSlateUnauthorized
		}

		var roomCount int64
		if err := tx.Model(&models.VideoRoom{}).Where("slate_id = ?", slate.ID).Count(&roomCount).Error; err != nil {
			return err
		}
		if roomCount > 0 {
			return errVideoRoomExists
		}

		return tx.Model(&models.Slate{}).
			Where("id = ?", slate.ID).
			Updates(map[string]interface{}{"registered_id": nil, "register_date": nil}).Error
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, errSlateUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the registered student can cancel"})
	case errors.Is(err, errVideoRoomExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Cannot cancel: session already has a video encounter"})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel registration"})
	}

	return c.JSON(fiber.Map{"message": "Successfully cancelled session registration"})
}

type UpdateListingRequest struct {
	Subject       *string `json:"subject,omitempty"`
	Details       *string `json:"details,omitempty"`
	StartDateTime *string `json:"start_date_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndDateTime   *string `json:"end_date_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func UpdateListing(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	role := middleware.CurrentUserRole(c)

	var req UpdateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	slate, status, err := findSlate(c.Params("id"))
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if !slate.IsCreator(userID) && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the listing owner or an admin can update it"})
	}
	if slate.RegisteredID != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Listing details are frozen once a student has registered"})
	}

	updates := map[string]interface{}{}
	if req.Subject != nil {
		subject := models.Subject(*req.Subject)
		if !subject.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown subject"})
		}
		updates["subject"] = subject
	}
	if req.Details != nil {
		updates["details"] = *req.Details
	}
	if req.StartDateTime != nil {
		start, _ := time.Parse(time.RFC3339, *req.StartDateTime)
		updates["start_date_time"] = start
	}
	if req.EndDateTime != nil {
		end, _ := time.Parse(time.RFC3339, *req.EndDateTime)
		updates["end_date_time"] = end
	}

	if len(updates) > 0 {
		// Guarded on registered_id so a registration landing after the load
		// above cannot have its listing rewritten under it.
		res := database.DB.Model(&models.Slate{}).
			Where("id = ? AND deleted = false AND registered_id IS NULL", slate.ID).
			Updates(updates)
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update listing"})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Listing details are frozen once a student has registered"})
		}
	}

	var updated models.Slate
	database.DB.First(&updated, "id = ?", slate.ID)
	return c.JSON(updated)
}

func DeleteListing(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	role := middleware.CurrentUserRole(c)

	slate, status, err := findSlate(c.Params("id"))
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if !slate.IsCreator(userID) && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the listing owner or an admin can delete it"})
	}
	if slate.RegisteredID != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Unable to delete: student registered"})
	}

	// The registration guard is part of the statement itself: registration's
	// conditional update requires deleted = false, this one requires
	// registered_id IS NULL, so exactly one of two concurrent attempts wins.
	res := database.DB.Model(&models.Slate{}).
		Where("id = ? AND deleted = false AND registered_id IS NULL", slate.ID).
		Updates(map[string]interface{}{"deleted": true, "delete_date": time.Now()})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete listing"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Unable to delete: student registered"})
	}

	return c.JSON(fiber.Map{"message": "Listing removed successfully"})
}

// MarkComplete toggles the caller's completion flag. The flag only becomes
// meaningful once a video room has existed for the slate. When both parties
// have confirmed, finalization captures the room duration and updates the
// tutor's tutoring-time aggregate.
func MarkComplete(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	slateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	var slate models.Slate
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slate, "id = ? AND deleted = false", slateID).Error; err != nil {
			return err
		}
		if !slate.IsParticipant(userID) {
			return errSlateUnauthorized
		}

		var roomCount int64
		if err := tx.Model(&models.VideoRoom{}).Where("slate_id = ?", slate.ID).Count(&roomCount).Error; err != nil {
			return err
		}
		if roomCount == 0 {
			return errNoVideoRoom
		}

		if slate.IsCreator(userID) {
			slate.MarkedCompletedTutor = !slate.MarkedCompletedTutor
			return tx.Model(&models.Slate{}).Where("id = ?", slate.ID).
				Update("marked_completed_tutor", slate.MarkedCompletedTutor).Error
		}
		slate.MarkedCompletedStudent = !slate.MarkedCompletedStudent
		return tx.Model(&models.Slate{}).Where("id = ?", slate.ID).
			Update("marked_completed_student", slate.MarkedCompletedStudent).Error
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, errSlateUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this session"})
	case errors.Is(err, errNoVideoRoom):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session cannot be completed before a video session has taken place"})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update completion status"})
	}

	if slate.DualConfirmed() {
		go func(slateID uuid.UUID) {
			if err := services.FinalizeSlate(slateID); err != nil {
				log.Printf("🔥 Failed to finalize slate %s: %v", slateID, err)
			}
		}(slate.ID)
	}

	return c.JSON(fiber.Map{
		"message":                  "Completion status updated",
		"marked_completed_tutor":   slate.MarkedCompletedTutor,
		"marked_completed_student": slate.MarkedCompletedStudent,
	})
}

type RatingRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

func SubmitContentRating(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var req RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	slate, status, err := findSlate(c.Params("id"))
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if !slate.IsRegistrant(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the registered student can rate session content"})
	}

	err = database.DB.Model(&models.Slate{}).
		Where("id = ?", slate.ID).
		Update("tutor_content_rating_by_student", req.Rating).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save rating"})
	}

	services.EnqueueRecompute(services.RecomputeSubjectContent, slate.ID)
	services.EnqueueRecompute(services.RecomputeOverallContent, slate.ID)
	go func(slateID uuid.UUID) {
		if err := services.FinalizeSlate(slateID); err != nil {
			log.Printf("🔥 Failed to finalize slate %s: %v", slateID, err)
		}
	}(slate.ID)

	return c.JSON(fiber.Map{"message": "Content rating submitted"})
}

// SubmitBehaviourRating stores the caller's behaviour rating of the other
// party: the tutor rates the registered student, the student rates the tutor.
func SubmitBehaviourRating(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var req RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	slate, status, err := findSlate(c.Params("id"))
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var column string
	var kind services.RecomputeKind
	switch {
	case slate.IsCreator(userID):
		column = "student_behaviour_rating_by_tutor"
		kind = services.RecomputeStudentBehaviour
	case slate.IsRegistrant(userID):
		column = "tutor_behaviour_rating_by_student"
		kind = services.RecomputeTutorBehaviour
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this session"})
	}

	if err := database.DB.Model(&models.Slate{}).Where("id = ?", slate.ID).Update(column, req.Rating).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save rating"})
	}

	services.EnqueueRecompute(kind, slate.ID)
	go func(slateID uuid.UUID) {
		if err := services.FinalizeSlate(slateID); err != nil {
			log.Printf("🔥 Failed to finalize slate %s: %v", slateID, err)
		}
	}(slate.ID)

	return c.JSON(fiber.Map{"message": "Behaviour rating submitted"})
}

func GetAllSlates(c *fiber.Ctx) error {
	var slates []models.Slate
	err := database.DB.Preload("Account").Preload("Registered").
		Where("deleted = false").
		Order("start_date_time desc").
		Find(&slates).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch slates"})
	}

	details := make([]models.SlateDetails, 0, len(slates))
	for _, s := range slates {
		details = append(details, slateWithProfiles(s, true, true))
	}
	return c.JSON(details)
}

func GetSlateByIDAdmin(c *fiber.Ctx) error {
	var slate models.Slate
	err := database.DB.Preload("Account").Preload("Registered").
		First(&slate, "id = ? AND deleted = false", c.Params("id")).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Slate not found"})
	}
	return c.JSON(slateWithProfiles(slate, true, true))
}

// GetAllListings returns open listings: unregistered, not deleted.
func GetAllListings(c *fiber.Ctx) error {
	var slates []models.Slate
	err := database.DB.Preload("Account").
		Where("registered_id IS NULL AND deleted = false").
		Order("start_date_time asc").
		Find(&slates).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listings"})
	}

	details := make([]models.SlateDetails, 0, len(slates))
	for _, s := range slates {
		details = append(details, slateWithProfiles(s, true, false))
	}
	return c.JSON(details)
}

func GetMyListings(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var slates []models.Slate
	err := database.DB.Preload("Registered").
		Where("account_id = ? AND deleted = false", userID).
		Order("start_date_time desc").
		Find(&slates).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listings"})
	}

	details := make([]models.SlateDetails, 0, len(slates))
	for _, s := range slates {
		details = append(details, slateWithProfiles(s, false, true))
	}
	return c.JSON(details)
}

func GetListingByID(c *fiber.Ctx) error {
	var slate models.Slate
	err := database.DB.Preload("Registered").
		First(&slate, "id = ? AND deleted = false", c.Params("id")).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
	}
	return c.JSON(slateWithProfiles(slate, false, true))
}

func GetMySessions(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var slates []models.Slate
	err := database.DB.Preload("Account").
		Where("registered_id = ? AND deleted = false", userID).
		Order("start_date_time desc").
		Find(&slates).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch sessions"})
	}

	details := make([]models.SlateDetails, 0, len(slates))
	for _, s := range slates {
		details = append(details, slateWithProfiles(s, true, false))
	}
	return c.JSON(details)
}

func GetSessionByID(c *fiber.Ctx) error {
	var slate models.Slate
	err := database.DB.Preload("Account").
		First(&slate, "id = ? AND deleted = false", c.Params("id")).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	return c.JSON(slateWithProfiles(slate, true, false))
}

// findSlate loads a live (not soft-deleted) slate, mapping absence to 404.
func findSlate(id string) (*models.Slate, int, error) {
	slateID, err := uuid.Parse(id)
	if err != nil {
		return nil, fiber.StatusNotFound, errors.New("Session not found")
	}

	var slate models.Slate
	if err := database.DB.First(&slate, "id = ? AND deleted = false", slateID).Error; err != nil {
		return nil, fiber.StatusNotFound, errors.New("Session not found")
	}
	return &slate, fiber.StatusOK, nil
}

func slateWithProfiles(s models.Slate, withAccount, withRegistered bool) models.SlateDetails {
	d := models.SlateDetails{Slate: s}
	if withAccount {
		p := s.Account.Public()
		d.AccountDetails = &p
	}
	if withRegistered && s.Registered != nil {
		p := s.Registered.Public()
		d.RegisteredDetails = &p
	}
	return d
}
