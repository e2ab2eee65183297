package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() *MatcherProfile {
	age := 24
	return &MatcherProfile{
		ID:                "p-1",
		UserID:            "u-1",
		GPAValue:          3.6,
		GPASystem:         GradingUS4,
		CurrentLevel:      LevelBachelor,
		TargetLevel:       LevelMaster,
		FieldsOfStudy:     []FieldOfStudy{FieldComputerScience, FieldEngineering},
		CountryOfOrigin:   "EG",
		Languages:         []string{"en", "ar"},
		Age:               &age,
		FundingPreference: PreferAny,
	}
}

func TestMatcherProfile_Validate(t *testing.T) {
	tooYoung := 14
	tests := []struct {
		name    string
		mutate  func(p *MatcherProfile)
		wantErr string
	}{
		{"valid", func(p *MatcherProfile) {}, ""},
		{"no age", func(p *MatcherProfile) { p.Age = nil }, ""},
		{"unknown system", func(p *MatcherProfile) { p.GPASystem = "ib" }, "gpaSystem"},
		{"negative gpa", func(p *MatcherProfile) { p.GPAValue = -1 }, "non-negative"},
		{"bad target", func(p *MatcherProfile) { p.TargetLevel = "diploma" }, "targetLevel"},
		{"no fields", func(p *MatcherProfile) { p.FieldsOfStudy = nil }, "fieldsOfStudy must contain"},
		{"five fields", func(p *MatcherProfile) {
			p.FieldsOfStudy = []FieldOfStudy{FieldLaw, FieldArts, FieldMedicine, FieldBusiness, FieldEducation}
		}, "got 5"},
		{"duplicate field", func(p *MatcherProfile) {
			p.FieldsOfStudy = []FieldOfStudy{FieldLaw, FieldLaw}
		}, "duplicated"},
		{"country length", func(p *MatcherProfile) { p.CountryOfOrigin = "EGY" }, "countryOfOrigin"},
		{"blank languages", func(p *MatcherProfile) { p.Languages = []string{" "} }, "languages"},
		{"age out of range", func(p *MatcherProfile) { p.Age = &tooYoung }, "age must be between"},
		{"funding", func(p *MatcherProfile) { p.FundingPreference = "loans" }, "fundingPreference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(p)

			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProfile))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMatcherProfile_SnapshotIsIndependent(t *testing.T) {
	p := validProfile()
	note := "refugee status"
	p.SpecialCircumstances = &note
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	snap := p.Snapshot(at)

	p.FieldsOfStudy[0] = FieldLaw
	p.Languages[0] = "fr"
	*p.Age = 40
	*p.SpecialCircumstances = "changed"

	assert.Equal(t, FieldComputerScience, snap.FieldsOfStudy[0])
	assert.Equal(t, "en", snap.Languages[0])
	assert.Equal(t, 24, *snap.Age)
	assert.Equal(t, "refugee status", *snap.SpecialCircumstances)
	assert.Equal(t, time.UTC, snap.CapturedAt.Location())
	assert.True(t, snap.CapturedAt.Equal(at))
}

func TestBandForScore(t *testing.T) {
	assert.Equal(t, MatchHigh, BandForScore(100))
	assert.Equal(t, MatchHigh, BandForScore(80))
	assert.Equal(t, MatchMedium, BandForScore(79))
	assert.Equal(t, MatchMedium, BandForScore(50))
	assert.Equal(t, MatchLow, BandForScore(49))
	assert.Equal(t, MatchLow, BandForScore(0))
}

func TestParseEnums(t *testing.T) {
	_, err := ParseGradingSystem("gpa-10")
	assert.True(t, errors.Is(err, ErrInvalidEnum))

	l, err := ParseLevel("phd")
	require.NoError(t, err)
	assert.Equal(t, LevelPhD, l)

	_, err = ParseFieldOfStudy("astrology")
	assert.True(t, errors.Is(err, ErrInvalidEnum))

	assert.True(t, GradingUK.Discrete())
	assert.False(t, GradingGerman.Discrete())
}
