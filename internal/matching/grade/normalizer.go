// Package grade converts grades between their native grading systems and the
// canonical 0-100 percentage scale.
package grade

import (
	"errors"
	"fmt"

	"scholarship-matcher/internal/models"
)

var (
	ErrUnknownSystem  = errors.New("UNKNOWN_GRADING_SYSTEM")
	ErrDiscreteSystem = errors.New("DISCRETE_GRADING_SYSTEM")
	ErrUnknownGrade   = errors.New("UNKNOWN_GRADE")
	ErrOutOfRange     = errors.New("GRADE_OUT_OF_RANGE")
)

// Scale is the valid raw range of a continuous system.
type Scale struct {
	Min, Max float64
}

var continuousScales = map[models.GradingSystem]Scale{
	models.GradingUS4:        {0, 4},
	models.GradingUS5:        {0, 5},
	models.GradingPercentage: {0, 100},
	models.GradingGerman:     {1, 5},
	models.GradingFrench:     {0, 20},
}

// ScaleFor returns the raw range of a continuous system.
func ScaleFor(system models.GradingSystem) (Scale, error) {
	s, ok := continuousScales[system]
	if !ok {
		return Scale{}, systemError(system)
	}
	return s, nil
}

// ToPercentage converts a raw value of a continuous system. The value is
// assumed to be validated already.
func ToPercentage(value float64, system models.GradingSystem) (float64, error) {
	switch system {
	case models.GradingPercentage:
		return value, nil
	case models.GradingUS4:
		return value / 4.0 * 100, nil
	case models.GradingUS5:
		return value / 5.0 * 100, nil
	case models.GradingGerman:
		// 1.0 is best, 5.0 is failing.
		return clamp(100-(value-1.0)/4.0*100, 0, 100), nil
	case models.GradingFrench:
		return value / 20.0 * 100, nil
	default:
		return 0, systemError(system)
	}
}

// FromPercentage is the inverse of ToPercentage for continuous systems.
func FromPercentage(pct float64, system models.GradingSystem) (float64, error) {
	switch system {
	case models.GradingPercentage:
		return pct, nil
	case models.GradingUS4:
		return pct / 100 * 4.0, nil
	case models.GradingUS5:
		return pct / 100 * 5.0, nil
	case models.GradingGerman:
		return 1.0 + (100-pct)/100*4.0, nil
	case models.GradingFrench:
		return pct / 100 * 20.0, nil
	default:
		return 0, systemError(system)
	}
}

// GradeToPercentage returns the configured midpoint of a discrete grade.
func GradeToPercentage(symbol string, system models.GradingSystem) (float64, error) {
	t, ok := TableFor(system)
	if !ok {
		return 0, systemError(system)
	}
	b, ok := t.lookup(symbol)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a %s grade", ErrUnknownGrade, symbol, system)
	}
	return b.Midpoint, nil
}

// PercentageToGrade returns the discrete band nearest to pct. The result is
// always one of the table's symbols.
func PercentageToGrade(pct float64, system models.GradingSystem) (string, error) {
	t, ok := TableFor(system)
	if !ok {
		return "", systemError(system)
	}
	return t.nearest(pct).Symbol, nil
}

// ProfilePercentage normalizes a profile's GPA whatever its system.
func ProfilePercentage(p *models.MatcherProfile) (float64, error) {
	if p.GPASystem.Discrete() {
		return GradeToPercentage(p.GPAGrade, p.GPASystem)
	}
	return ToPercentage(p.GPAValue, p.GPASystem)
}

// Validate checks a raw grade against its system before it reaches the
// conversion functions.
func Validate(value float64, symbol string, system models.GradingSystem) error {
	if system.Discrete() {
		_, err := GradeToPercentage(symbol, system)
		return err
	}
	s, err := ScaleFor(system)
	if err != nil {
		return err
	}
	if value < s.Min || value > s.Max {
		return fmt.Errorf("%w: %g not in [%g, %g] for %s", ErrOutOfRange, value, s.Min, s.Max, system)
	}
	return nil
}

func systemError(system models.GradingSystem) error {
	if system.Discrete() {
		return fmt.Errorf("%w: %s", ErrDiscreteSystem, system)
	}
	return fmt.Errorf("%w: %q", ErrUnknownSystem, system)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
