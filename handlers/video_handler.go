package handlers

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/engagenetwork/engage-api/database"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/engagenetwork/engage-api/models"
	"github.com/engagenetwork/engage-api/video"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errSlateUnregistered = errors.New("no student is registered for this slate")

// InitiateVideoChat returns the session's live room, refreshing it from the
// provider, or opens a new one. A room still in progress is always reused so
// a session never has two simultaneous rooms.
func InitiateVideoChat(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	slate, status, err := findSlate(c.Params("id"))
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	if !slate.IsParticipant(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this session"})
	}

	var latest models.VideoRoom
	err = database.DB.Where("slate_id = ?", slate.ID).Order("created_at desc").First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load video room"})
	}

	if err == nil {
		// Only the latest room needs to be up to date; older entries are a log.
		desc, ferr := video.FetchRoom(latest.SID)
		if ferr != nil {
			log.Printf("🔥 Failed to refresh room %s: %v", latest.SID, ferr)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Video provider unavailable"})
		}
		applyDescriptor(&latest, desc)
		if err := database.DB.Save(&latest).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update video room"})
		}

		if latest.Status == models.RoomStatusInProgress {
			return c.JSON(fiber.Map{"slate": slate, "room": latest})
		}
	}

	desc, err := video.CreateRoom()
	if err != nil {
		log.Printf("🔥 Failed to create video room for slate %s: %v", slate.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Video provider unavailable"})
	}

	room := models.VideoRoom{SlateID: slate.ID}
	applyDescriptor(&room, desc)

	// The room row lands under the same slate row lock that cancellation
	// takes, so a cancel either sees this room or completes before it.
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var current models.Slate
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ? AND deleted = false", slate.ID).Error; err != nil {
			return err
		}
		if current.RegisteredID == nil {
			return errSlateUnregistered
		}
		return tx.Create(&room).Error
	})
	if errors.Is(err, errSlateUnregistered) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "No student is registered for this session"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save video room"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slate": slate, "room": room})
}

// GetVideoToken issues a short-lived credential scoping the caller to the
// session's current room.
func GetVideoToken(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	slate, status, err := findSlate(c.Params("id"))
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	if !slate.IsParticipant(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this session"})
	}

	var latest models.VideoRoom
	err = database.DB.Where("slate_id = ?", slate.ID).Order("created_at desc").First(&latest).Error
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "No video room exists for this session"})
	}

	token, err := video.AccessToken(userID.String(), latest.SID)
	if err != nil {
		log.Printf("🔥 Failed to issue video token for slate %s: %v", slate.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to issue access token"})
	}

	return c.JSON(fiber.Map{"sid": latest.SID, "token": token})
}

func applyDescriptor(room *models.VideoRoom, desc *video.RoomDescriptor) {
	room.SID = desc.SID
	room.Status = desc.Status
	room.ResourceURL = desc.URL
	room.Duration = desc.Duration
	room.DateCreated = desc.DateCreated
	room.DateUpdated = desc.DateUpdated
	if len(desc.Links) > 0 {
		if raw, err := json.Marshal(desc.Links); err == nil {
			links := string(raw)
			room.Links = &links
		}
	}
}
