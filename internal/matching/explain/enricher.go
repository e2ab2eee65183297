// Package explain attaches generated natural-language explanations to ranked
// matches. Explanations are best effort: a failed call leaves the match
// without one and never changes its score or factors.
package explain

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/common/metrics"
	"scholarship-matcher/internal/matching/grade"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

// Outcome is the result class of one generator call.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeEmpty     Outcome = "empty"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeMalformed Outcome = "malformed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Result is the explicit outcome of one call, consumed by apply.
type Result struct {
	Outcome   Outcome
	Generated *Generated
	Err       error
}

// Classify maps a generator return pair onto an Outcome.
func Classify(gen *Generated, err error) Result {
	switch {
	case err == nil && gen.Empty():
		return Result{Outcome: OutcomeEmpty, Generated: gen}
	case err == nil:
		return Result{Outcome: OutcomeOK, Generated: gen}
	case errors.Is(err, ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return Result{Outcome: OutcomeTimeout, Err: err}
	case errors.Is(err, ErrMalformedOutput):
		return Result{Outcome: OutcomeMalformed, Err: err}
	default:
		return Result{Outcome: OutcomeFailed, Err: err}
	}
}

const (
	DefaultConcurrency = 4
	DefaultCallTimeout = 4 * time.Second
)

// Config bounds the fan-out.
type Config struct {
	TopN        int           // matches beyond TopN are not sent to the generator
	Concurrency int           // outstanding calls
	CallTimeout time.Duration // per call
}

// Enrichment is the output of Enrich.
type Enrichment struct {
	Matches  []models.ScholarshipMatch
	Outcomes []Outcome
	Model    string // model reported by the first successful call, if any
}

type Enricher struct {
	generator Generator
	config    Config
	logger    logger.Logger
}

func NewEnricher(generator Generator, config Config, log logger.Logger) *Enricher {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}
	return &Enricher{
		generator: generator,
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"component": "explain"}),
	}
}

// Enrich calls the generator for each of the top matches with bounded
// concurrency. If ctx is cancelled it returns ctx.Err() at once without
// waiting for calls still in flight.
func (e *Enricher) Enrich(ctx context.Context, matches []models.ScholarshipMatch, profile *models.MatcherProfile, locale i18n.Locale) (*Enrichment, error) {
	n := len(matches)
	if e.config.TopN > 0 && e.config.TopN < n {
		n = e.config.TopN
	}

	summary := summarize(profile)
	results := make([]Result, n)
	done := make(chan struct{})

	go func() {
		defer close(done)

		var g errgroup.Group
		g.SetLimit(e.config.Concurrency)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				if ctx.Err() != nil {
					results[i] = Result{Outcome: OutcomeSkipped, Err: ctx.Err()}
					return nil
				}
				callCtx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
				defer cancel()

				gen, err := e.generator.GenerateExplanation(callCtx, ExplanationRequest{
					ScholarshipID:    matches[i].ScholarshipID,
					ScholarshipTitle: matches[i].Title,
					Score:            matches[i].Score,
					Factors:          matches[i].Factors,
					Profile:          summary,
					Locale:           locale,
				})
				results[i] = Classify(gen, err)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("enrichment abandoned", map[string]interface{}{
			"candidates": n,
			"reason":     ctx.Err().Error(),
		})
		return nil, ctx.Err()
	}

	out := &Enrichment{
		Matches:  make([]models.ScholarshipMatch, len(matches)),
		Outcomes: make([]Outcome, len(matches)),
	}
	copy(out.Matches, matches)

	for i := range matches {
		res := Result{Outcome: OutcomeSkipped}
		if i < n {
			res = results[i]
		}
		out.Matches[i] = apply(out.Matches[i], res)
		out.Outcomes[i] = res.Outcome
		metrics.EnrichmentOutcomes.WithLabelValues(string(res.Outcome)).Inc()

		if res.Outcome == OutcomeOK && out.Model == "" {
			out.Model = res.Generated.Model
		}
		if res.Err != nil && res.Outcome != OutcomeSkipped {
			e.logger.Warn("explanation unavailable", map[string]interface{}{
				"scholarshipId": matches[i].ScholarshipID,
				"outcome":       string(res.Outcome),
				"error":         res.Err.Error(),
			})
		}
	}

	return out, nil
}

// apply folds one result into a match. Only Explanation and MatchLevel change.
func apply(m models.ScholarshipMatch, res Result) models.ScholarshipMatch {
	m.Explanation = nil
	m.MatchLevel = models.BandForScore(m.Score)

	switch res.Outcome {
	case OutcomeOK:
		exp := res.Generated.Explanation
		m.Explanation = &exp
		if res.Generated.MatchLevel.Valid() {
			m.MatchLevel = res.Generated.MatchLevel
		}
	case OutcomeEmpty:
		if res.Generated != nil && res.Generated.MatchLevel.Valid() {
			m.MatchLevel = res.Generated.MatchLevel
		}
	}
	return m
}

func summarize(p *models.MatcherProfile) ProfileSummary {
	pct, _ := grade.ProfilePercentage(p)
	return ProfileSummary{
		GPAPercentage:     pct,
		CurrentLevel:      p.CurrentLevel,
		TargetLevel:       p.TargetLevel,
		FieldsOfStudy:     append([]models.FieldOfStudy(nil), p.FieldsOfStudy...),
		CountryOfOrigin:   p.CountryOfOrigin,
		Languages:         append([]string(nil), p.Languages...),
		FundingPreference: p.FundingPreference,
	}
}
