package services

import (
	"fmt"
	"log"

	"github.com/engagenetwork/engage-api/database"
	"github.com/engagenetwork/engage-api/models"
	"github.com/engagenetwork/engage-api/video"
	"github.com/google/uuid"
)

// FinalizeSlate closes out a dual-confirmed slate: the latest room is fetched
// from the provider, completed if still in progress, its duration persisted,
// and the tutor's tutoring-time aggregate queued for recomputation. Safe to
// call repeatedly; already-finalized and not-yet-confirmed slates are left
// untouched.
func FinalizeSlate(slateID uuid.UUID) error {
	var slate models.Slate
	if err := database.DB.Preload("Rooms").First(&slate, "id = ?", slateID).Error; err != nil {
		return err
	}

	if !slate.DualConfirmed() || slate.Finalized() {
		return nil
	}

	room := slate.LatestRoom()
	if room == nil {
		return fmt.Errorf("slate %s confirmed complete without a video room", slateID)
	}

	desc, err := video.FetchRoom(room.SID)
	if err != nil {
		return err
	}
	if desc.Status == models.RoomStatusInProgress {
		desc, err = video.CompleteRoom(room.SID)
		if err != nil {
			return err
		}
	}

	duration := 0
	if desc.Duration != nil {
		duration = *desc.Duration
	}

	err = database.DB.Model(&models.VideoRoom{}).
		Where("id = ?", room.ID).
		Updates(map[string]interface{}{
			"status":       desc.Status,
			"duration":     desc.Duration,
			"date_updated": desc.DateUpdated,
		}).Error
	if err != nil {
		return err
	}

	err = database.DB.Model(&models.Slate{}).
		Where("id = ?", slate.ID).
		Update("session_duration", duration).Error
	if err != nil {
		return err
	}

	log.Printf("Slate %s finalized with duration %ds", slate.ID, duration)
	EnqueueRecompute(RecomputeTutoringTime, slate.ID)
	return nil
}
