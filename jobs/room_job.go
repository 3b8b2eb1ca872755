package jobs

import (
	"log"

	"github.com/engagenetwork/engage-api/database"
	"github.com/engagenetwork/engage-api/models"
	"github.com/engagenetwork/engage-api/services"
	"github.com/google/uuid"
)

// SweepUnfinalizedSessions finds slates both parties have confirmed complete
// but whose room was never closed out, and finalizes them. This backstops the
// inline finalization path if the process died between the completion toggle
// and the provider call.
func SweepUnfinalizedSessions() {
	log.Println("Running job: SweepUnfinalizedSessions...")

	var slateIDs []uuid.UUID
	err := database.DB.Model(&models.Slate{}).
		Where("marked_completed_tutor = true AND marked_completed_student = true AND session_duration IS NULL AND deleted = false").
		Pluck("id", &slateIDs).Error
	if err != nil {
		log.Printf("Error sweeping unfinalized sessions: %v", err)
		return
	}

	if len(slateIDs) == 0 {
		log.Println("No unfinalized sessions found.")
		return
	}

	for _, id := range slateIDs {
		if err := services.FinalizeSlate(id); err != nil {
			log.Printf("Error finalizing slate %s: %v", id, err)
		}
	}

	log.Printf("Swept %d unfinalized session(s).", len(slateIDs))
}
