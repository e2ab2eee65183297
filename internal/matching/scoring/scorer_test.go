package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

var now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func days(n int) time.Time { return now.Add(time.Duration(n) * 24 * time.Hour) }

func profile() *models.MatcherProfile {
	return &models.MatcherProfile{
		ID:                "p-1",
		GPAValue:          3.6,
		GPASystem:         models.GradingUS4,
		TargetLevel:       models.LevelMaster,
		FieldsOfStudy:     []models.FieldOfStudy{models.FieldComputerScience, models.FieldEngineering},
		CountryOfOrigin:   "MA",
		Languages:         []string{"Arabic", "fr", "en-US"},
		FundingPreference: models.PreferAny,
	}
}

func scholarship(id string) models.Scholarship {
	return models.Scholarship{
		ID:          id,
		Levels:      []models.Level{models.LevelMaster},
		FundingType: models.FundingFull,
		Field:       models.FieldComputerScience,
		CountryCode: "FR",
		Deadline:    days(30),
		IsPublished: true,
	}
}

func factorByType(t *testing.T, m models.ScholarshipMatch, ft models.FactorType) models.Factor {
	t.Helper()
	for _, f := range m.Factors {
		if f.Type == ft {
			return f
		}
	}
	t.Fatalf("factor %s not found", ft)
	return models.Factor{}
}

// ==========================
// Factors
// ==========================

func TestScore_PerfectMatch(t *testing.T) {
	out := Score([]models.Scholarship{scholarship("s")}, profile(), 15, now, i18n.EN)
	require.Len(t, out, 1)

	m := out[0]
	assert.Equal(t, 100, m.Score)
	assert.Equal(t, models.MatchHigh, m.MatchLevel)
	assert.Nil(t, m.Explanation)
	require.Len(t, m.Factors, 5)

	maxTotal := 0
	for _, f := range m.Factors {
		assert.Equal(t, models.StatusMatched, f.Status, "factor %s", f.Type)
		assert.NotEmpty(t, f.Detail.EN)
		maxTotal += f.MaxScore
	}
	assert.Equal(t, 100, maxTotal)
}

func TestScore_Factors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(s *models.Scholarship)
		factor     models.FactorType
		wantScore  int
		wantStatus models.FactorStatus
	}{
		{"secondary field", func(s *models.Scholarship) { s.Field = models.FieldEngineering }, models.FactorField, 22, models.StatusPartial},
		{"multi level", func(s *models.Scholarship) { s.Levels = []models.Level{models.LevelMaster, models.LevelPhD} }, models.FactorLevel, 14, models.StatusPartial},
		{"partial funding", func(s *models.Scholarship) { s.FundingType = models.FundingPartial }, models.FactorFunding, 10, models.StatusPartial},
		{"urgent deadline", func(s *models.Scholarship) { s.Deadline = days(3) }, models.FactorDeadline, 5, models.StatusPartial},
		{"deadline at 60 days", func(s *models.Scholarship) { s.Deadline = days(60) }, models.FactorDeadline, 15, models.StatusMatched},
		{"deadline in 4 months", func(s *models.Scholarship) { s.Deadline = days(120) }, models.FactorDeadline, 11, models.StatusPartial},
		{"distant deadline", func(s *models.Scholarship) { s.Deadline = days(300) }, models.FactorDeadline, 8, models.StatusPartial},
		{"english taught host", func(s *models.Scholarship) { s.CountryCode = "DE" }, models.FactorCountryLanguage, 9, models.StatusPartial},
		{"unknown host", func(s *models.Scholarship) { s.CountryCode = "ZZ" }, models.FactorCountryLanguage, 7, models.StatusPartial},
		{"lowercase host code", func(s *models.Scholarship) { s.CountryCode = "ma" }, models.FactorCountryLanguage, 15, models.StatusMatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scholarship("s")
			tt.mutate(&s)

			out := Score([]models.Scholarship{s}, profile(), 15, now, i18n.EN)
			require.Len(t, out, 1)

			f := factorByType(t, out[0], tt.factor)
			assert.Equal(t, tt.wantScore, f.Score)
			assert.Equal(t, tt.wantStatus, f.Status)
		})
	}
}

func TestScore_NoSharedLanguage(t *testing.T) {
	p := profile()
	p.Languages = []string{"ar"}

	s := scholarship("s")
	s.CountryCode = "ES"

	out := Score([]models.Scholarship{s}, p, 15, now, i18n.EN)
	f := factorByType(t, out[0], models.FactorCountryLanguage)
	assert.Equal(t, 3, f.Score)
	assert.Equal(t, models.StatusUnmatched, f.Status)
}

func TestScore_BilingualDetails(t *testing.T) {
	out := Score([]models.Scholarship{scholarship("s")}, profile(), 15, now, i18n.FR)
	f := factorByType(t, out[0], models.FactorFunding)

	assert.Equal(t, "Fully funded.", f.Detail.EN)
	assert.Equal(t, "fr", f.Detail.Locale)
	assert.Equal(t, "Entièrement financée.", f.Detail.Text)
}

// ==========================
// Ranking
// ==========================

func TestScore_RankingAndTieBreak(t *testing.T) {
	low := scholarship("low")
	low.FundingType = models.FundingPartial

	laterDeadline := scholarship("b-later")
	laterDeadline.Deadline = days(40)

	sameDeadlineA := scholarship("a-same")
	sameDeadlineB := scholarship("c-same")

	in := []models.Scholarship{low, laterDeadline, sameDeadlineB, sameDeadlineA}
	out := Score(in, profile(), 15, now, i18n.EN)

	ids := make([]string, 0, len(out))
	for _, m := range out {
		ids = append(ids, m.ScholarshipID)
	}
	assert.Equal(t, []string{"a-same", "c-same", "b-later", "low"}, ids)
}

func TestScore_Deterministic(t *testing.T) {
	var in []models.Scholarship
	for i := 0; i < 40; i++ {
		s := scholarship(fmt.Sprintf("s-%02d", i))
		s.Deadline = days(5 + i%7*30)
		if i%3 == 0 {
			s.FundingType = models.FundingPartial
		}
		in = append(in, s)
	}

	first := Score(in, profile(), 15, now, i18n.EN)
	for run := 0; run < 5; run++ {
		assert.Equal(t, first, Score(in, profile(), 15, now, i18n.EN))
	}
}

func TestScore_BoundedOutput(t *testing.T) {
	var in []models.Scholarship
	for i := 0; i < 20; i++ {
		in = append(in, scholarship(fmt.Sprintf("s-%02d", i)))
	}

	assert.Len(t, Score(in, profile(), 15, now, i18n.EN), 15)
	assert.Len(t, Score(in, profile(), 0, now, i18n.EN), DefaultK)
	assert.Len(t, Score(in[:3], profile(), 15, now, i18n.EN), 3)
	assert.Empty(t, Score(nil, profile(), 15, now, i18n.EN))
}

func TestScore_InputNotReordered(t *testing.T) {
	in := []models.Scholarship{scholarship("b"), scholarship("a")}
	_ = Score(in, profile(), 15, now, i18n.EN)
	assert.Equal(t, "b", in[0].ID)
}
