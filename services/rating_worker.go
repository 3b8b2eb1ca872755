package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

type RecomputeKind string

const (
	RecomputeSubjectContent   RecomputeKind = "subject_content"
	RecomputeOverallContent   RecomputeKind = "overall_content"
	RecomputeTutorBehaviour   RecomputeKind = "tutor_behaviour"
	RecomputeStudentBehaviour RecomputeKind = "student_behaviour"
	RecomputeTutoringTime     RecomputeKind = "tutoring_time"
)

type RecomputeTask struct {
	Kind    RecomputeKind
	SlateID uuid.UUID
}

const recomputeAttempts = 3

var recomputeQueue = make(chan RecomputeTask, 256)

// EnqueueRecompute schedules an aggregate recomputation. Recomputes are pure
// functions of stored state, so running one twice is harmless. The send
// blocks when the buffer is full rather than dropping the task: a dropped
// task would leave the aggregate stale until the next submission, so a full
// queue backpressures the caller instead.
func EnqueueRecompute(kind RecomputeKind, slateID uuid.UUID) {
	recomputeQueue <- RecomputeTask{Kind: kind, SlateID: slateID}
}

// RunRatingWorker drains the recompute queue. Started once from main.
func RunRatingWorker() {
	for task := range recomputeQueue {
		if err := runRecompute(task); err != nil {
			log.Printf("🔥 Recompute %s for slate %s failed after %d attempts: %v", task.Kind, task.SlateID, recomputeAttempts, err)
		}
	}
}

func runRecompute(task RecomputeTask) error {
	var err error
	for attempt := 1; attempt <= recomputeAttempts; attempt++ {
		if err = recompute(task); err == nil {
			return nil
		}
		log.Printf("Recompute %s for slate %s attempt %d failed: %v", task.Kind, task.SlateID, attempt, err)
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	return err
}

func recompute(task RecomputeTask) error {
	switch task.Kind {
	case RecomputeSubjectContent:
		return RecalculateSubjectContentRating(task.SlateID)
	case RecomputeOverallContent:
		return RecalculateOverallContentRating(task.SlateID)
	case RecomputeTutorBehaviour:
		return RecalculateTutorBehaviourRating(task.SlateID)
	case RecomputeStudentBehaviour:
		return RecalculateStudentBehaviourRating(task.SlateID)
	case RecomputeTutoringTime:
		return RecalculateTutoringTime(task.SlateID)
	}
	return fmt.Errorf("unknown recompute kind %q", task.Kind)
}
