package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidEnum    = errors.New("INVALID_ENUM")
	ErrInvalidProfile = errors.New("INVALID_PROFILE")
	ErrNotFound       = errors.New("NOT_FOUND")
)

const (
	MinFieldsOfStudy = 1
	MaxFieldsOfStudy = 4
	MinAge           = 15
	MaxAge           = 60
)

// MatcherProfile is a student's academic profile. One per user.
type MatcherProfile struct {
	ID                   string            `json:"id"`
	UserID               string            `json:"userId"`
	GPAValue             float64           `json:"gpaValue"`
	GPAGrade             string            `json:"gpaGrade,omitempty"`
	GPASystem            GradingSystem     `json:"gpaSystem"`
	CurrentLevel         Level             `json:"currentLevel"`
	TargetLevel          Level             `json:"targetLevel"`
	FieldsOfStudy        []FieldOfStudy    `json:"fieldsOfStudy"`
	CountryOfOrigin      string            `json:"countryOfOrigin"`
	Languages            []string          `json:"languages"`
	Age                  *int              `json:"age,omitempty"`
	FundingPreference    FundingPreference `json:"fundingPreference"`
	SpecialCircumstances *string           `json:"specialCircumstances,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// Validate checks the structural invariants of a profile. Grade range and
// symbol checks belong to the grade package.
func (p *MatcherProfile) Validate() error {
	var problems []string

	if !p.GPASystem.Valid() {
		problems = append(problems, fmt.Sprintf("gpaSystem %q is not supported", p.GPASystem))
	}
	if p.GPAValue < 0 {
		problems = append(problems, "gpaValue must be non-negative")
	}
	if !p.CurrentLevel.Valid() {
		problems = append(problems, fmt.Sprintf("currentLevel %q is not supported", p.CurrentLevel))
	}
	if !p.TargetLevel.Valid() {
		problems = append(problems, fmt.Sprintf("targetLevel %q is not supported", p.TargetLevel))
	}

	if n := len(p.FieldsOfStudy); n < MinFieldsOfStudy || n > MaxFieldsOfStudy {
		problems = append(problems, fmt.Sprintf("fieldsOfStudy must contain %d-%d entries, got %d", MinFieldsOfStudy, MaxFieldsOfStudy, n))
	}
	seen := make(map[FieldOfStudy]bool, len(p.FieldsOfStudy))
	for _, f := range p.FieldsOfStudy {
		if !f.Valid() {
			problems = append(problems, fmt.Sprintf("fieldOfStudy %q is not supported", f))
		}
		if seen[f] {
			problems = append(problems, fmt.Sprintf("fieldOfStudy %q is duplicated", f))
		}
		seen[f] = true
	}

	if len(p.CountryOfOrigin) != 2 {
		problems = append(problems, "countryOfOrigin must be an ISO 3166-1 alpha-2 code")
	}

	hasLanguage := false
	for _, l := range p.Languages {
		if strings.TrimSpace(l) != "" {
			hasLanguage = true
			break
		}
	}
	if !hasLanguage {
		problems = append(problems, "languages must not be empty")
	}

	if p.Age != nil && (*p.Age < MinAge || *p.Age > MaxAge) {
		problems = append(problems, fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge))
	}
	if !p.FundingPreference.Valid() {
		problems = append(problems, fmt.Sprintf("fundingPreference %q is not supported", p.FundingPreference))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(problems, "; "))
	}
	return nil
}

// HasField reports whether f is one of the profile's fields of study.
func (p *MatcherProfile) HasField(f FieldOfStudy) bool {
	for _, pf := range p.FieldsOfStudy {
		if pf == f {
			return true
		}
	}
	return false
}

// Snapshot freezes the profile. Slices are copied so later edits to the
// live profile cannot leak into history.
func (p *MatcherProfile) Snapshot(at time.Time) ProfileSnapshot {
	s := ProfileSnapshot{
		ProfileID:         p.ID,
		GPAValue:          p.GPAValue,
		GPAGrade:          p.GPAGrade,
		GPASystem:         p.GPASystem,
		CurrentLevel:      p.CurrentLevel,
		TargetLevel:       p.TargetLevel,
		FieldsOfStudy:     append([]FieldOfStudy(nil), p.FieldsOfStudy...),
		CountryOfOrigin:   p.CountryOfOrigin,
		Languages:         append([]string(nil), p.Languages...),
		FundingPreference: p.FundingPreference,
		CapturedAt:        at.UTC(),
	}
	if p.Age != nil {
		age := *p.Age
		s.Age = &age
	}
	if p.SpecialCircumstances != nil {
		sc := *p.SpecialCircumstances
		s.SpecialCircumstances = &sc
	}
	return s
}

// ProfileSnapshot is the frozen copy stored with a MatchResult.
type ProfileSnapshot struct {
	ProfileID            string            `json:"profileId"`
	GPAValue             float64           `json:"gpaValue"`
	GPAGrade             string            `json:"gpaGrade,omitempty"`
	GPASystem            GradingSystem     `json:"gpaSystem"`
	CurrentLevel         Level             `json:"currentLevel"`
	TargetLevel          Level             `json:"targetLevel"`
	FieldsOfStudy        []FieldOfStudy    `json:"fieldsOfStudy"`
	CountryOfOrigin      string            `json:"countryOfOrigin"`
	Languages            []string          `json:"languages"`
	Age                  *int              `json:"age,omitempty"`
	FundingPreference    FundingPreference `json:"fundingPreference"`
	SpecialCircumstances *string           `json:"specialCircumstances,omitempty"`
	CapturedAt           time.Time         `json:"capturedAt"`
}

// Scholarship is the read-only catalog view the engine needs.
type Scholarship struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Levels           []Level      `json:"levels"`
	FundingType      FundingType  `json:"fundingType"`
	Field            FieldOfStudy `json:"field"`
	CountryCode      string       `json:"countryCode"`
	Deadline         time.Time    `json:"deadline"`
	IsPublished      bool         `json:"isPublished"`
	MinGPAPercentage *float64     `json:"minGpaPercentage,omitempty"`
}

// OffersLevel reports whether l is one of the scholarship's levels.
func (s *Scholarship) OffersLevel(l Level) bool {
	for _, sl := range s.Levels {
		if sl == l {
			return true
		}
	}
	return false
}

// Bilingual holds English text plus the same text in the requested locale.
type Bilingual struct {
	EN     string `json:"en"`
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

func (b Bilingual) Empty() bool {
	return strings.TrimSpace(b.EN) == "" && strings.TrimSpace(b.Text) == ""
}

// Factor is one scoring dimension of a match.
type Factor struct {
	Type     FactorType   `json:"type"`
	Status   FactorStatus `json:"status"`
	Score    int          `json:"score"`
	MaxScore int          `json:"maxScore"`
	Detail   Bilingual    `json:"detail"`
}

// ScholarshipMatch is a scored, ranked candidate. Embedded in MatchResult.
type ScholarshipMatch struct {
	ScholarshipID string     `json:"scholarshipId"`
	Title         string     `json:"title,omitempty"`
	Score         int        `json:"score"`
	MatchLevel    MatchLevel `json:"matchLevel"`
	Explanation   *Bilingual `json:"explanation,omitempty"`
	Factors       []Factor   `json:"factors"`
	Deadline      time.Time  `json:"deadline"`
}

// MatchResult is the immutable record of one match run.
type MatchResult struct {
	ID               string             `json:"id"`
	ProfileID        string             `json:"profileId"`
	Matches          []ScholarshipMatch `json:"matches"`
	TotalMatched     int                `json:"totalMatched"`
	ProfileSnapshot  ProfileSnapshot    `json:"profileSnapshot"`
	ModelIdentifier  string             `json:"modelIdentifier"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
	CreatedAt        time.Time          `json:"createdAt"`
}
