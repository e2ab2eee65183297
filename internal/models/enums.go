package models

import "fmt"

// GradingSystem identifies how a raw GPA is expressed.
type GradingSystem string

const (
	GradingUS4        GradingSystem = "us-4.0"
	GradingUS5        GradingSystem = "us-5.0"
	GradingPercentage GradingSystem = "percentage"
	GradingLetter     GradingSystem = "letter"
	GradingUK         GradingSystem = "uk"
	GradingGerman     GradingSystem = "german"
	GradingFrench     GradingSystem = "french"
)

var gradingSystems = []GradingSystem{
	GradingUS4, GradingUS5, GradingPercentage, GradingLetter, GradingUK, GradingGerman, GradingFrench,
}

func (g GradingSystem) Valid() bool {
	for _, s := range gradingSystems {
		if s == g {
			return true
		}
	}
	return false
}

// Discrete systems carry a grade symbol instead of a numeric value.
func (g GradingSystem) Discrete() bool {
	return g == GradingLetter || g == GradingUK
}

func ParseGradingSystem(s string) (GradingSystem, error) {
	g := GradingSystem(s)
	if !g.Valid() {
		return "", fmt.Errorf("%w: grading system %q", ErrInvalidEnum, s)
	}
	return g, nil
}

// Level is an academic level, used both as a profile's current/target level
// and as a scholarship's eligible levels.
type Level string

const (
	LevelHighSchool Level = "high-school"
	LevelBachelor   Level = "bachelor"
	LevelMaster     Level = "master"
	LevelPhD        Level = "phd"
)

func (l Level) Valid() bool {
	switch l {
	case LevelHighSchool, LevelBachelor, LevelMaster, LevelPhD:
		return true
	}
	return false
}

func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: level %q", ErrInvalidEnum, s)
	}
	return l, nil
}

// FieldOfStudy is a catalog field tag.
type FieldOfStudy string

const (
	FieldEngineering     FieldOfStudy = "engineering"
	FieldComputerScience FieldOfStudy = "computer-science"
	FieldMedicine        FieldOfStudy = "medicine"
	FieldNaturalSciences FieldOfStudy = "natural-sciences"
	FieldBusiness        FieldOfStudy = "business"
	FieldEconomics       FieldOfStudy = "economics"
	FieldLaw             FieldOfStudy = "law"
	FieldSocialSciences  FieldOfStudy = "social-sciences"
	FieldHumanities      FieldOfStudy = "humanities"
	FieldArts            FieldOfStudy = "arts"
	FieldEducation       FieldOfStudy = "education"
	FieldAgriculture     FieldOfStudy = "agriculture"
)

var fieldsOfStudy = map[FieldOfStudy]struct{}{
	FieldEngineering: {}, FieldComputerScience: {}, FieldMedicine: {}, FieldNaturalSciences: {},
	FieldBusiness: {}, FieldEconomics: {}, FieldLaw: {}, FieldSocialSciences: {},
	FieldHumanities: {}, FieldArts: {}, FieldEducation: {}, FieldAgriculture: {},
}

func (f FieldOfStudy) Valid() bool {
	_, ok := fieldsOfStudy[f]
	return ok
}

func ParseFieldOfStudy(s string) (FieldOfStudy, error) {
	f := FieldOfStudy(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: field of study %q", ErrInvalidEnum, s)
	}
	return f, nil
}

// FundingType describes what a scholarship covers.
type FundingType string

const (
	FundingFull    FundingType = "fully-funded"
	FundingPartial FundingType = "partially-funded"
)

func (f FundingType) Valid() bool {
	return f == FundingFull || f == FundingPartial
}

// FundingPreference is the profile-side funding requirement.
type FundingPreference string

const (
	PreferFullyFundedOnly FundingPreference = "fully-funded-only"
	PreferAny             FundingPreference = "any"
)

func (f FundingPreference) Valid() bool {
	return f == PreferFullyFundedOnly || f == PreferAny
}

// MatchLevel is the coarse band shown next to a score.
type MatchLevel string

const (
	MatchHigh   MatchLevel = "high"
	MatchMedium MatchLevel = "medium"
	MatchLow    MatchLevel = "low"
)

func (m MatchLevel) Valid() bool {
	return m == MatchHigh || m == MatchMedium || m == MatchLow
}

// BandForScore derives the match level from a numeric score.
func BandForScore(score int) MatchLevel {
	switch {
	case score >= 80:
		return MatchHigh
	case score >= 50:
		return MatchMedium
	default:
		return MatchLow
	}
}

// FactorType names a scoring factor.
type FactorType string

const (
	FactorField           FactorType = "field"
	FactorLevel           FactorType = "level"
	FactorFunding         FactorType = "funding"
	FactorDeadline        FactorType = "deadline"
	FactorCountryLanguage FactorType = "country_language"
)

// FactorStatus is how well a single factor was satisfied.
type FactorStatus string

const (
	StatusMatched   FactorStatus = "matched"
	StatusPartial   FactorStatus = "partial"
	StatusUnmatched FactorStatus = "unmatched"
)
