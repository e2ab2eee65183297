// Package catalog reads candidate scholarships for a match run. The query is
// a coarse prefilter; the eligibility filter still decides.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"scholarship-matcher/internal/models"
)

var ErrCatalogUnavailable = errors.New("CATALOG_UNAVAILABLE")

// Criteria narrows the catalog query.
type Criteria struct {
	Level           models.Level
	Fields          []models.FieldOfStudy
	FullyFundedOnly bool
	OpenAt          time.Time
}

// CriteriaFor derives the query criteria from a profile.
func CriteriaFor(p *models.MatcherProfile, now time.Time) Criteria {
	return Criteria{
		Level:           p.TargetLevel,
		Fields:          append([]models.FieldOfStudy(nil), p.FieldsOfStudy...),
		FullyFundedOnly: p.FundingPreference == models.PreferFullyFundedOnly,
		OpenAt:          now,
	}
}

// CacheKey identifies the criteria independent of OpenAt and field order.
func (c Criteria) CacheKey() string {
	fields := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	funding := "any"
	if c.FullyFundedOnly {
		funding = string(models.FundingFull)
	}
	return strings.Join([]string{string(c.Level), strings.Join(fields, ","), funding}, ":")
}

type Catalog interface {
	ListEligibleCandidates(ctx context.Context, c Criteria) ([]models.Scholarship, error)
}
