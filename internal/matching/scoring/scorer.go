// Package scoring ranks eligible scholarships by how well they fit a profile.
package scoring

import (
	"sort"
	"strings"
	"time"

	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

// DefaultK bounds the ranked list when the caller passes k <= 0.
const DefaultK = 15

// Factor weights. They sum to 100.
const (
	MaxField           = 30
	MaxLevel           = 20
	MaxFunding         = 20
	MaxDeadline        = 15
	MaxCountryLanguage = 15
)

// Score computes every factor for each eligible scholarship, ranks them by
// score, then nearer deadline, then ID, and keeps the first k.
func Score(eligible []models.Scholarship, profile *models.MatcherProfile, k int, now time.Time, locale i18n.Locale) []models.ScholarshipMatch {
	if len(eligible) == 0 {
		return []models.ScholarshipMatch{}
	}
	if k <= 0 {
		k = DefaultK
	}

	matches := make([]models.ScholarshipMatch, 0, len(eligible))
	for i := range eligible {
		matches = append(matches, scoreOne(&eligible[i], profile, now, locale))
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		return a.ScholarshipID < b.ScholarshipID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func scoreOne(s *models.Scholarship, profile *models.MatcherProfile, now time.Time, locale i18n.Locale) models.ScholarshipMatch {
	factors := []models.Factor{
		fieldFactor(s, profile, locale),
		levelFactor(s, profile, locale),
		fundingFactor(s, locale),
		deadlineFactor(s, now, locale),
		countryLanguageFactor(s, profile, locale),
	}

	total := 0
	for _, f := range factors {
		total += f.Score
	}
	total = clamp(total, 0, 100)

	return models.ScholarshipMatch{
		ScholarshipID: s.ID,
		Title:         s.Title,
		Score:         total,
		MatchLevel:    models.BandForScore(total),
		Factors:       factors,
		Deadline:      s.Deadline,
	}
}

func fieldFactor(s *models.Scholarship, p *models.MatcherProfile, locale i18n.Locale) models.Factor {
	f := models.Factor{Type: models.FactorField, MaxScore: MaxField}
	switch {
	case len(p.FieldsOfStudy) > 0 && p.FieldsOfStudy[0] == s.Field:
		f.Status, f.Score = models.StatusMatched, MaxField
		f.Detail = detail(locale, i18n.FieldPrimary, string(s.Field))
	case p.HasField(s.Field):
		f.Status, f.Score = models.StatusPartial, 22
		f.Detail = detail(locale, i18n.FieldSecondary, string(s.Field))
	default:
		f.Status = models.StatusUnmatched
		f.Detail = detail(locale, i18n.FieldSecondary, string(s.Field))
	}
	return f
}

func levelFactor(s *models.Scholarship, p *models.MatcherProfile, locale i18n.Locale) models.Factor {
	f := models.Factor{Type: models.FactorLevel, MaxScore: MaxLevel}
	switch {
	case len(s.Levels) == 1 && s.Levels[0] == p.TargetLevel:
		f.Status, f.Score = models.StatusMatched, MaxLevel
		f.Detail = detail(locale, i18n.LevelExact, string(p.TargetLevel))
	case s.OffersLevel(p.TargetLevel):
		f.Status, f.Score = models.StatusPartial, 14
		f.Detail = detail(locale, i18n.LevelMulti, string(p.TargetLevel))
	default:
		f.Status = models.StatusUnmatched
		f.Detail = detail(locale, i18n.LevelMulti, string(p.TargetLevel))
	}
	return f
}

func fundingFactor(s *models.Scholarship, locale i18n.Locale) models.Factor {
	f := models.Factor{Type: models.FactorFunding, MaxScore: MaxFunding}
	if s.FundingType == models.FundingFull {
		f.Status, f.Score = models.StatusMatched, MaxFunding
		f.Detail = detail(locale, i18n.FundingFull)
	} else {
		f.Status, f.Score = models.StatusPartial, 10
		f.Detail = detail(locale, i18n.FundingPartial)
	}
	return f
}

// deadlineFactor rewards deadlines that leave time to prepare but are close
// enough to act on.
func deadlineFactor(s *models.Scholarship, now time.Time, locale i18n.Locale) models.Factor {
	f := models.Factor{Type: models.FactorDeadline, MaxScore: MaxDeadline}
	days := int(s.Deadline.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}

	switch {
	case days < 7:
		f.Status, f.Score = models.StatusPartial, 5
		f.Detail = detail(locale, i18n.DeadlineUrgent, days)
	case days <= 60:
		f.Status, f.Score = models.StatusMatched, MaxDeadline
		f.Detail = detail(locale, i18n.DeadlineIdeal, days)
	case days <= 180:
		f.Status, f.Score = models.StatusPartial, 11
		f.Detail = detail(locale, i18n.DeadlineComfortable, days)
	default:
		f.Status, f.Score = models.StatusPartial, 8
		f.Detail = detail(locale, i18n.DeadlineDistant, days)
	}
	return f
}

func countryLanguageFactor(s *models.Scholarship, p *models.MatcherProfile, locale i18n.Locale) models.Factor {
	f := models.Factor{Type: models.FactorCountryLanguage, MaxScore: MaxCountryLanguage}
	country := strings.ToUpper(s.CountryCode)

	host, known := hostCountries[country]
	if !known {
		f.Status, f.Score = models.StatusPartial, 7
		f.Detail = detail(locale, i18n.CountryUnknown, country)
		return f
	}

	spoken := make(map[string]bool, len(p.Languages))
	for _, l := range p.Languages {
		spoken[normalizeLanguage(l)] = true
	}

	for _, l := range host.languages {
		if spoken[l] {
			f.Status, f.Score = models.StatusMatched, MaxCountryLanguage
			f.Detail = detail(locale, i18n.CountrySpeaksLocal, country)
			return f
		}
	}
	if host.englishTaught && spoken["en"] {
		f.Status, f.Score = models.StatusPartial, 9
		f.Detail = detail(locale, i18n.CountryEnglish, country)
		return f
	}

	f.Status, f.Score = models.StatusUnmatched, 3
	f.Detail = detail(locale, i18n.CountryNoLanguage, country)
	return f
}

func detail(locale i18n.Locale, key string, args ...interface{}) models.Bilingual {
	return models.Bilingual{
		EN:     i18n.T(i18n.EN, key, args...),
		Locale: string(locale),
		Text:   i18n.T(locale, key, args...),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
