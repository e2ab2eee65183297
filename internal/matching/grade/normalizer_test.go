package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-matcher/internal/models"
)

func TestToPercentage(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		system models.GradingSystem
		want   float64
	}{
		{"percentage identity", 72, models.GradingPercentage, 72},
		{"us 4.0 perfect", 4.0, models.GradingUS4, 100},
		{"us 4.0 three", 3.0, models.GradingUS4, 75},
		{"us 5.0", 4.0, models.GradingUS5, 80},
		{"german best", 1.0, models.GradingGerman, 100},
		{"german 1.5", 1.5, models.GradingGerman, 87.5},
		{"german failing", 5.0, models.GradingGerman, 0},
		{"german below scale clamps", 6.0, models.GradingGerman, 0},
		{"french", 15, models.GradingFrench, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToPercentage(tt.value, tt.system)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestToPercentage_UnknownSystem(t *testing.T) {
	_, err := ToPercentage(3, models.GradingSystem("ib"))
	assert.ErrorIs(t, err, ErrUnknownSystem)

	_, err = ToPercentage(3, models.GradingLetter)
	assert.ErrorIs(t, err, ErrDiscreteSystem)
}

func TestRoundTrip_Continuous(t *testing.T) {
	samples := map[models.GradingSystem][]float64{
		models.GradingPercentage: {0, 12.5, 50, 72, 99.9, 100},
		models.GradingUS4:        {0, 1.7, 2.5, 3.33, 4},
		models.GradingUS5:        {0, 2.2, 3.9, 5},
		models.GradingGerman:     {1, 1.3, 2.7, 3.9, 5},
		models.GradingFrench:     {0, 9.5, 14.25, 20},
	}

	for system, values := range samples {
		for _, v := range values {
			pct, err := ToPercentage(v, system)
			require.NoError(t, err)
			back, err := FromPercentage(pct, system)
			require.NoError(t, err)
			assert.InDelta(t, v, back, 1e-9, "system=%s value=%g", system, v)
		}
	}
}

func TestRoundTrip_Discrete(t *testing.T) {
	for _, system := range []models.GradingSystem{models.GradingLetter, models.GradingUK} {
		table, ok := TableFor(system)
		require.True(t, ok)

		for _, band := range table.Bands {
			pct, err := GradeToPercentage(band.Symbol, system)
			require.NoError(t, err)
			assert.Equal(t, band.Midpoint, pct)

			back, err := PercentageToGrade(pct, system)
			require.NoError(t, err)
			assert.Equal(t, band.Symbol, back)
		}
	}
}

func TestPercentageToGrade_NearestBand(t *testing.T) {
	tests := []struct {
		pct    float64
		system models.GradingSystem
		want   string
	}{
		{100, models.GradingLetter, "A+"},
		{91, models.GradingLetter, "A-"},
		{85, models.GradingLetter, "B+"}, // equidistant from B+ (87) and B (83)
		{12, models.GradingLetter, "F"},
		{70, models.GradingUK, "First"}, // equidistant from First and 2:1
		{58, models.GradingUK, "2:2"},
		{0, models.GradingUK, "Fail"},
	}

	for _, tt := range tests {
		got, err := PercentageToGrade(tt.pct, tt.system)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "pct=%g system=%s", tt.pct, tt.system)
	}
}

func TestMonotonicity(t *testing.T) {
	for _, system := range []models.GradingSystem{
		models.GradingPercentage, models.GradingUS4, models.GradingUS5, models.GradingFrench, models.GradingGerman,
	} {
		scale, err := ScaleFor(system)
		require.NoError(t, err)

		step := (scale.Max - scale.Min) / 40
		prev, _ := ToPercentage(scale.Min, system)
		for v := scale.Min + step; v <= scale.Max+1e-9; v += step {
			cur, err := ToPercentage(v, system)
			require.NoError(t, err)
			if system == models.GradingGerman {
				assert.Less(t, cur, prev, "german value=%g", v)
			} else {
				assert.Greater(t, cur, prev, "%s value=%g", system, v)
			}
			prev = cur
		}
	}
}

func TestGradeToPercentage_UnknownSymbol(t *testing.T) {
	_, err := GradeToPercentage("E", models.GradingLetter)
	assert.ErrorIs(t, err, ErrUnknownGrade)
}

func TestProfilePercentage(t *testing.T) {
	german := &models.MatcherProfile{GPAValue: 1.5, GPASystem: models.GradingGerman}
	pct, err := ProfilePercentage(german)
	require.NoError(t, err)
	assert.InDelta(t, 87.5, pct, 1e-9)

	uk := &models.MatcherProfile{GPAGrade: "2:1", GPASystem: models.GradingUK}
	pct, err = ProfilePercentage(uk)
	require.NoError(t, err)
	assert.Equal(t, 65.0, pct)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(3.7, "", models.GradingUS4))
	assert.ErrorIs(t, Validate(4.2, "", models.GradingUS4), ErrOutOfRange)
	assert.ErrorIs(t, Validate(0.5, "", models.GradingGerman), ErrOutOfRange)
	assert.NoError(t, Validate(0, "B+", models.GradingLetter))
	assert.ErrorIs(t, Validate(0, "1st", models.GradingUK), ErrUnknownGrade)
	assert.ErrorIs(t, Validate(1, "", models.GradingSystem("ib")), ErrUnknownSystem)
}
