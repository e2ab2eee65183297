package savematcherprofile

import "scholarship-matcher/internal/models"

// Input is the submitted profile. Either a fresh submission or an edit of
// the user's existing profile.
type Input struct {
	UserID               string   `json:"userId"`
	GPAValue             float64  `json:"gpaValue"`
	GPAGrade             string   `json:"gpaGrade,omitempty"`
	GPASystem            string   `json:"gpaSystem"`
	CurrentLevel         string   `json:"currentLevel"`
	TargetLevel          string   `json:"targetLevel"`
	FieldsOfStudy        []string `json:"fieldsOfStudy"`
	CountryOfOrigin      string   `json:"countryOfOrigin"`
	Languages            []string `json:"languages"`
	Age                  *int     `json:"age,omitempty"`
	FundingPreference    string   `json:"fundingPreference"`
	SpecialCircumstances *string  `json:"specialCircumstances,omitempty"`
}

// ToProfile copies the input into the domain type. Enum values are checked
// later by profile validation.
func (in *Input) ToProfile() *models.MatcherProfile {
	fields := make([]models.FieldOfStudy, len(in.FieldsOfStudy))
	for i, f := range in.FieldsOfStudy {
		fields[i] = models.FieldOfStudy(f)
	}
	return &models.MatcherProfile{
		UserID:               in.UserID,
		GPAValue:             in.GPAValue,
		GPAGrade:             in.GPAGrade,
		GPASystem:            models.GradingSystem(in.GPASystem),
		CurrentLevel:         models.Level(in.CurrentLevel),
		TargetLevel:          models.Level(in.TargetLevel),
		FieldsOfStudy:        fields,
		CountryOfOrigin:      in.CountryOfOrigin,
		Languages:            append([]string(nil), in.Languages...),
		Age:                  in.Age,
		FundingPreference:    models.FundingPreference(in.FundingPreference),
		SpecialCircumstances: in.SpecialCircumstances,
	}
}

type Output struct {
	ProfileID        string `json:"profileId"`
	UserID           string `json:"userId"`
	ProfileCreated   bool   `json:"profileCreated"`
	ProfileUpdatedAt string `json:"profileUpdatedAt"` // ISO 8601
}
