package models

type Subject string

const (
	SubjectMath                       Subject = "Math"
	SubjectScience                    Subject = "Science"
	SubjectSocialStudies              Subject = "Social Studies"
	SubjectLanguageArts               Subject = "Language Arts"
	SubjectForeignLanguageAcquisition Subject = "Foreign Language Acquisition"
)

// subjectRatingColumns maps each subject to the users column holding the
// tutor's aggregate content rating for it.
var subjectRatingColumns = map[Subject]string{
	SubjectMath:                       "math_content_rating",
	SubjectScience:                    "science_content_rating",
	SubjectSocialStudies:              "social_studies_content_rating",
	SubjectLanguageArts:               "language_arts_content_rating",
	SubjectForeignLanguageAcquisition: "foreign_language_acquisition_content_rating",
}

func (s Subject) Valid() bool {
	_, ok := subjectRatingColumns[s]
	return ok
}

func (s Subject) RatingColumn() string {
	return subjectRatingColumns[s]
}
