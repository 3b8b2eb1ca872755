package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSlateParticipants(t *testing.T) {
	tutor := uuid.New()
	student := uuid.New()
	stranger := uuid.New()

	slate := Slate{AccountID: tutor, RegisteredID: &student}

	if !slate.IsCreator(tutor) || slate.IsCreator(student) {
		t.Fatalf("creator check failed")
	}
	if !slate.IsRegistrant(student) || slate.IsRegistrant(tutor) {
		t.Fatalf("registrant check failed")
	}
	if !slate.IsParticipant(tutor) || !slate.IsParticipant(student) || slate.IsParticipant(stranger) {
		t.Fatalf("participant check failed")
	}
}

func TestSlateRegistrantUnsetOnOpenListing(t *testing.T) {
	slate := Slate{AccountID: uuid.New()}
	if slate.IsRegistrant(uuid.New()) {
		t.Fatalf("open listing must have no registrant")
	}
}

func TestDualConfirmed(t *testing.T) {
	slate := Slate{}
	if slate.DualConfirmed() {
		t.Fatalf("unconfirmed slate reported as dual confirmed")
	}
	slate.MarkedCompletedTutor = true
	if slate.DualConfirmed() {
		t.Fatalf("single confirmation reported as dual confirmed")
	}
	slate.MarkedCompletedStudent = true
	if !slate.DualConfirmed() {
		t.Fatalf("expected dual confirmation")
	}
}

func TestFinalized(t *testing.T) {
	slate := Slate{}
	if slate.Finalized() {
		t.Fatalf("slate without duration reported finalized")
	}
	duration := 3600
	slate.SessionDuration = &duration
	if !slate.Finalized() {
		t.Fatalf("slate with duration not reported finalized")
	}
}

func TestLatestRoomPicksNewest(t *testing.T) {
	now := time.Now()
	slate := Slate{
		Rooms: []VideoRoom{
			{SID: "RM1", CreatedAt: now.Add(-2 * time.Hour)},
			{SID: "RM3", CreatedAt: now},
			{SID: "RM2", CreatedAt: now.Add(-1 * time.Hour)},
		},
	}

	latest := slate.LatestRoom()
	if latest == nil || latest.SID != "RM3" {
		t.Fatalf("expected RM3 as latest room, got %+v", latest)
	}
}

func TestLatestRoomNilWithoutRooms(t *testing.T) {
	slate := Slate{}
	if slate.LatestRoom() != nil {
		t.Fatalf("expected nil latest room for slate without rooms")
	}
}

func TestSubjectRatingColumns(t *testing.T) {
	cases := map[Subject]string{
		SubjectMath:                       "math_content_rating",
		SubjectScience:                    "science_content_rating",
		SubjectSocialStudies:              "social_studies_content_rating",
		SubjectLanguageArts:               "language_arts_content_rating",
		SubjectForeignLanguageAcquisition: "foreign_language_acquisition_content_rating",
	}
	for subject, column := range cases {
		if !subject.Valid() {
			t.Fatalf("expected subject %q to be valid", subject)
		}
		if subject.RatingColumn() != column {
			t.Fatalf("expected column %q for subject %q, got %q", column, subject, subject.RatingColumn())
		}
	}
	if Subject("Astrology").Valid() {
		t.Fatalf("expected unknown subject to be invalid")
	}
}
