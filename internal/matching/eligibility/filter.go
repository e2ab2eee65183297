// Package eligibility decides which scholarships a profile may apply to.
// Eligibility is binary; how good a fit is belongs to scoring.
package eligibility

import (
	"time"

	"scholarship-matcher/internal/matching/grade"
	"scholarship-matcher/internal/models"
)

// Rule names one hard eligibility requirement.
type Rule string

const (
	RuleOpen    Rule = "open"    // published and not past its deadline
	RuleField   Rule = "field"   // field is one of the profile's fields
	RuleLevel   Rule = "level"   // target level is offered
	RuleFunding Rule = "funding" // fully-funded-only profiles need fully-funded scholarships
	RuleGPA     Rule = "gpa"     // normalized GPA meets the minimum
)

// Verdict explains the decision for one scholarship.
type Verdict struct {
	ScholarshipID string
	Failed        []Rule
}

func (v Verdict) Eligible() bool {
	return len(v.Failed) == 0
}

// Filter returns the scholarships passing every rule, in input order. The
// profile must be validated; an unknown grading system is a programmer error
// and is returned as such.
func Filter(scholarships []models.Scholarship, profile *models.MatcherProfile, now time.Time) ([]models.Scholarship, error) {
	gpa, err := grade.ProfilePercentage(profile)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.Scholarship, 0, len(scholarships))
	for i := range scholarships {
		if evaluate(&scholarships[i], profile, gpa, now).Eligible() {
			eligible = append(eligible, scholarships[i])
		}
	}
	return eligible, nil
}

// Evaluate reports every rule a single scholarship fails.
func Evaluate(s *models.Scholarship, profile *models.MatcherProfile, now time.Time) (Verdict, error) {
	gpa, err := grade.ProfilePercentage(profile)
	if err != nil {
		return Verdict{}, err
	}
	return evaluate(s, profile, gpa, now), nil
}

func evaluate(s *models.Scholarship, profile *models.MatcherProfile, gpaPct float64, now time.Time) Verdict {
	v := Verdict{ScholarshipID: s.ID}

	if !s.IsPublished || s.Deadline.Before(now) {
		v.Failed = append(v.Failed, RuleOpen)
	}
	if !profile.HasField(s.Field) {
		v.Failed = append(v.Failed, RuleField)
	}
	if !s.OffersLevel(profile.TargetLevel) {
		v.Failed = append(v.Failed, RuleLevel)
	}
	if profile.FundingPreference == models.PreferFullyFundedOnly && s.FundingType != models.FundingFull {
		v.Failed = append(v.Failed, RuleFunding)
	}
	if s.MinGPAPercentage != nil && *s.MinGPAPercentage > gpaPct {
		v.Failed = append(v.Failed, RuleGPA)
	}

	return v
}
