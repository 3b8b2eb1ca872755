package services

import (
	"testing"

	"github.com/engagenetwork/engage-api/models"
)

func TestMean(t *testing.T) {
	got := mean([]float64{4, 5, 3})
	if got == nil {
		t.Fatalf("expected a mean, got nil")
	}
	if *got != 4.0 {
		t.Fatalf("expected mean 4.0, got %v", *got)
	}
}

func TestMeanOfEmptySetIsUndefined(t *testing.T) {
	if got := mean(nil); got != nil {
		t.Fatalf("expected nil mean for empty input, got %v", *got)
	}
	if got := mean([]float64{}); got != nil {
		t.Fatalf("expected nil mean for empty slice, got %v", *got)
	}
}

func TestToFloats(t *testing.T) {
	values := toFloats([]int{1, 2, 3})
	if len(values) != 3 || values[0] != 1 || values[2] != 3 {
		t.Fatalf("unexpected conversion result: %v", values)
	}
}

func TestOverallContentRating(t *testing.T) {
	math := 4.0
	science := 5.0
	bySubject := map[models.Subject]*float64{
		models.SubjectMath:                       &math,
		models.SubjectScience:                    &science,
		models.SubjectSocialStudies:              nil,
		models.SubjectLanguageArts:               nil,
		models.SubjectForeignLanguageAcquisition: nil,
	}

	got := overallContentRating(bySubject)
	if got == nil {
		t.Fatalf("expected overall rating, got nil")
	}
	if *got != 4.5 {
		t.Fatalf("expected overall 4.5, got %v", *got)
	}
}

func TestOverallContentRatingWithNoSubjectsStaysUnset(t *testing.T) {
	bySubject := map[models.Subject]*float64{
		models.SubjectMath:    nil,
		models.SubjectScience: nil,
	}
	if got := overallContentRating(bySubject); got != nil {
		t.Fatalf("expected nil overall with no per-subject ratings, got %v", *got)
	}
}

func TestRecomputeDispatchRejectsUnknownKind(t *testing.T) {
	if err := recompute(RecomputeTask{Kind: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown recompute kind")
	}
}
