package session

import (
	"context"
	"strings"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/models"
)

// NormalizeProfile trims and canonicalizes free-form profile fields in place.
func NormalizeProfile(p *models.MatcherProfile) {
	p.UserID = strings.TrimSpace(p.UserID)
	p.CountryOfOrigin = strings.ToUpper(strings.TrimSpace(p.CountryOfOrigin))
	p.GPAGrade = strings.TrimSpace(p.GPAGrade)

	langs := make([]string, 0, len(p.Languages))
	seen := make(map[string]bool, len(p.Languages))
	for _, l := range p.Languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		langs = append(langs, l)
	}
	p.Languages = langs

	if p.SpecialCircumstances != nil && strings.TrimSpace(*p.SpecialCircumstances) == "" {
		p.SpecialCircumstances = nil
	}
}

// SaveProfile validates a submitted profile and creates or updates the
// user's single profile.
func (o *Orchestrator) SaveProfile(ctx context.Context, p *models.MatcherProfile) (*models.MatcherProfile, error) {
	if p == nil {
		return nil, apperrors.NewInvalidInputError("profile is required")
	}
	NormalizeProfile(p)
	if p.UserID == "" {
		return nil, apperrors.NewProfileInvalidError("userId is required", nil)
	}
	if err := validateProfile(p); err != nil {
		return nil, apperrors.NewProfileInvalidError(err.Error(), err)
	}

	saved, err := o.profiles.UpsertProfile(ctx, p)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("upsert profile", err)
	}
	return saved, nil
}
