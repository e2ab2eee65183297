// Package session runs one match invocation end to end and is the only
// layer that turns internal failures into caller-facing error codes.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/common/metrics"
	"scholarship-matcher/internal/matching/eligibility"
	"scholarship-matcher/internal/matching/explain"
	"scholarship-matcher/internal/matching/grade"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/matching/scoring"
	"scholarship-matcher/internal/models"
	"scholarship-matcher/internal/ratelimit"
	"scholarship-matcher/internal/store/catalog"
)

// State is a step of one invocation.
type State string

const (
	StateStart      State = "start"
	StateFiltering  State = "filtering"
	StateScoring    State = "scoring"
	StateEnriching  State = "enriching"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateAborted    State = "aborted"
)

// Abort reasons for runs that end without a persisted result.
const (
	AbortRateLimited = "rate_limited"
	AbortNoMatches   = "no_matches"
)

// resultNamespace seeds result ids derived from a run key.
var resultNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a10-2b4c6d8e0f12")

// ResultIDForKey is the result id a run with the given key persists under.
func ResultIDForKey(runKey string) string {
	return uuid.NewSHA1(resultNamespace, []byte(runKey)).String()
}

// RunOption tunes one RunMatch call.
type RunOption func(*runOptions)

type runOptions struct {
	runKey string
}

// WithRunKey makes a run idempotent. The result id is derived from key, and a
// repeated run with the same key returns the stored result without spending
// budget or matching again.
func WithRunKey(key string) RunOption {
	return func(o *runOptions) { o.runKey = strings.TrimSpace(key) }
}

// ProfileStore reads and writes matcher profiles. Lookups of unknown ids
// return an error wrapping models.ErrNotFound.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*models.MatcherProfile, error)
	UpsertProfile(ctx context.Context, p *models.MatcherProfile) (*models.MatcherProfile, error)
}

// ResultStore persists match results. Lookups and deletes of unknown ids
// return an error wrapping models.ErrNotFound.
type ResultStore interface {
	CreateMatchResult(ctx context.Context, res *models.MatchResult) error
	ListMatchResults(ctx context.Context, profileID string, page, limit int) ([]models.MatchResult, int, error)
	GetMatchResult(ctx context.Context, id string) (*models.MatchResult, error)
	DeleteMatchResult(ctx context.Context, id string) error
}

// Enricher attaches explanations to ranked matches.
type Enricher interface {
	Enrich(ctx context.Context, matches []models.ScholarshipMatch, profile *models.MatcherProfile, locale i18n.Locale) (*explain.Enrichment, error)
}

type Config struct {
	TopK            int
	RateLimit       int
	RateWindow      time.Duration
	DefaultLocale   i18n.Locale
	ModelIdentifier string
}

type Dependencies struct {
	Profiles ProfileStore
	Results  ResultStore
	Catalog  catalog.Catalog
	Limiter  ratelimit.Limiter
	Enricher Enricher
	Tracer   trace.Tracer
	Logger   logger.Logger
	Now      func() time.Time
}

// RunOutcome is what RunMatch returns. An empty run has no ResultID and
// carries a localized Message instead.
type RunOutcome struct {
	ResultID         string                    `json:"resultId,omitempty"`
	Matches          []models.ScholarshipMatch `json:"matches"`
	TotalMatched     int                       `json:"totalMatched"`
	ProcessingTimeMs int64                     `json:"processingTimeMs"`
	Message          string                    `json:"message,omitempty"`
	Result           *models.MatchResult       `json:"-"`
	States           []State                   `json:"-"`
	AbortReason      string                    `json:"-"`
	Replayed         bool                      `json:"-"` // returned from an earlier run with the same key
}

// Final is the last state the run reached.
func (o *RunOutcome) Final() State {
	if len(o.States) == 0 {
		return StateStart
	}
	return o.States[len(o.States)-1]
}

type HistoryPage struct {
	Results []models.MatchResult `json:"results"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	Limit   int                  `json:"limit"`
}

type Orchestrator struct {
	config   Config
	profiles ProfileStore
	results  ResultStore
	catalog  catalog.Catalog
	limiter  ratelimit.Limiter
	enricher Enricher
	tracer   trace.Tracer
	logger   logger.Logger
	now      func() time.Time
}

func NewOrchestrator(config Config, deps Dependencies) *Orchestrator {
	if config.TopK <= 0 {
		config.TopK = scoring.DefaultK
	}
	if !i18n.Supported(config.DefaultLocale) {
		config.DefaultLocale = i18n.Default
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("session")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		config:   config,
		profiles: deps.Profiles,
		results:  deps.Results,
		catalog:  deps.Catalog,
		limiter:  deps.Limiter,
		enricher: deps.Enricher,
		tracer:   deps.Tracer,
		logger:   deps.Logger.WithFields(map[string]interface{}{"component": "session"}),
		now:      deps.Now,
	}
}

func (o *Orchestrator) locale(tag string) i18n.Locale {
	if strings.TrimSpace(tag) == "" {
		return o.config.DefaultLocale
	}
	return i18n.Parse(tag)
}

// RunMatch matches one profile against the catalog and persists the result.
func (o *Orchestrator) RunMatch(ctx context.Context, profileID, localeTag string, opts ...RunOption) (*RunOutcome, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	ctx, span := o.tracer.Start(ctx, "session.RunMatch", trace.WithAttributes(
		attribute.String("profile.id", profileID),
	))
	defer span.End()

	out, err := o.run(ctx, profileID, o.locale(localeTag), ro)
	outcome := "completed"
	switch {
	case err != nil:
		outcome = "failed"
		if se, ok := apperrors.AsStandard(err); ok {
			outcome = strings.ToLower(string(se.Code))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case out.AbortReason != "":
		outcome = out.AbortReason
	case out.Replayed:
		outcome = "replayed"
	}
	metrics.MatchRuns.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("match.outcome", outcome))
	return out, err
}

func (o *Orchestrator) run(ctx context.Context, profileID string, locale i18n.Locale, ro runOptions) (*RunOutcome, error) {
	out := &RunOutcome{States: []State{StateStart}, Matches: []models.ScholarshipMatch{}}
	log := o.logger.WithFields(map[string]interface{}{"profileId": profileID, "locale": string(locale)})

	resultID := uuid.New().String()
	if ro.runKey != "" {
		resultID = ResultIDForKey(ro.runKey)
		prior, err := o.priorResult(ctx, profileID, resultID)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			log.Info("match already persisted for run key", map[string]interface{}{"resultId": prior.ID})
			out.States = append(out.States, StateDone)
			out.Replayed = true
			out.fill(prior)
			return out, nil
		}
	}

	// Start: the profile first, then the budget. Unknown or invalid
	// profiles never spend quota.
	profile, err := o.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if o.limiter != nil && o.config.RateLimit > 0 {
		now := o.now()
		decision, err := o.limiter.CheckAndConsume(ctx, profileID, o.config.RateLimit, o.config.RateWindow)
		if err != nil {
			return nil, apperrors.NewRateLimitCheckFailedError(err)
		}
		if !decision.Allowed {
			out.States = append(out.States, StateAborted)
			out.AbortReason = AbortRateLimited
			log.Warn("match rate limited", map[string]interface{}{"resetAt": decision.ResetAt})
			return out, apperrors.NewRateLimitedError(decision.ResetAt, now)
		}
	}

	// Filtering through Enriching is the timed window.
	started := o.now()
	out.States = append(out.States, StateFiltering)

	stageStart := time.Now()
	candidates, err := o.catalog.ListEligibleCandidates(ctx, catalog.CriteriaFor(profile, started))
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewMatchCancelledError(ctx.Err())
		}
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	eligible, err := eligibility.Filter(candidates, profile, started)
	if err != nil {
		return nil, apperrors.NewProfileInvalidError(err.Error(), err)
	}
	observeStage(StateFiltering, stageStart)
	metrics.EligibleCandidates.Observe(float64(len(eligible)))

	if len(eligible) == 0 {
		out.States = append(out.States, StateAborted)
		out.AbortReason = AbortNoMatches
		out.Message = i18n.T(locale, i18n.NoMatch)
		out.ProcessingTimeMs = o.now().Sub(started).Milliseconds()
		log.Info("no eligible scholarships", map[string]interface{}{"candidates": len(candidates)})
		return out, nil
	}

	out.States = append(out.States, StateScoring)
	stageStart = time.Now()
	ranked := scoring.Score(eligible, profile, o.config.TopK, started, locale)
	observeStage(StateScoring, stageStart)

	out.States = append(out.States, StateEnriching)
	stageStart = time.Now()
	matches, model, err := o.enrich(ctx, ranked, profile, locale)
	if err != nil {
		log.Warn("match cancelled during enrichment", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewMatchCancelledError(err)
	}
	observeStage(StateEnriching, stageStart)
	elapsed := o.now().Sub(started)

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewMatchCancelledError(err)
	}

	out.States = append(out.States, StatePersisting)
	result := &models.MatchResult{
		ID:               resultID,
		ProfileID:        profile.ID,
		Matches:          matches,
		TotalMatched:     len(eligible),
		ProfileSnapshot:  profile.Snapshot(started),
		ModelIdentifier:  model,
		ProcessingTimeMs: elapsed.Milliseconds(),
		CreatedAt:        o.now().UTC(),
	}

	stageStart = time.Now()
	if err := o.results.CreateMatchResult(ctx, result); err != nil {
		log.Error("failed to persist match result", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewMatchPersistFailedError(err)
	}
	observeStage(StatePersisting, stageStart)

	out.States = append(out.States, StateDone)
	out.fill(result)

	log.Info("match completed", map[string]interface{}{
		"resultId":         result.ID,
		"eligible":         len(eligible),
		"returned":         len(matches),
		"processingTimeMs": result.ProcessingTimeMs,
	})
	return out, nil
}

func (o *RunOutcome) fill(res *models.MatchResult) {
	o.ResultID = res.ID
	o.Matches = res.Matches
	o.TotalMatched = res.TotalMatched
	o.ProcessingTimeMs = res.ProcessingTimeMs
	o.Result = res
}

// priorResult returns the result an earlier run with the same key stored, or
// nil when there is none.
func (o *Orchestrator) priorResult(ctx context.Context, profileID, resultID string) (*models.MatchResult, error) {
	res, err := o.results.GetMatchResult(ctx, resultID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get match result", err)
	}
	if res.ProfileID != profileID {
		return nil, apperrors.NewInvalidInputError("run key was already used for another profile")
	}
	return res, nil
}

func (o *Orchestrator) loadProfile(ctx context.Context, profileID string) (*models.MatcherProfile, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, apperrors.NewProfileInvalidError("profileId is required", nil)
	}
	profile, err := o.profiles.GetProfile(ctx, profileID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperrors.NewProfileNotFoundError(profileID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get profile", err)
	}
	if err := validateProfile(profile); err != nil {
		return nil, apperrors.NewProfileInvalidError(err.Error(), err)
	}
	return profile, nil
}

// enrich runs the enricher when one is configured. Without it, or when no
// call succeeds, the model identifier is the configured rules model.
func (o *Orchestrator) enrich(ctx context.Context, ranked []models.ScholarshipMatch, profile *models.MatcherProfile, locale i18n.Locale) ([]models.ScholarshipMatch, string, error) {
	if o.enricher == nil {
		return ranked, o.config.ModelIdentifier, ctx.Err()
	}
	res, err := o.enricher.Enrich(ctx, ranked, profile, locale)
	if err != nil {
		return nil, "", err
	}
	model := res.Model
	if model == "" {
		model = o.config.ModelIdentifier
	}
	return res.Matches, model, nil
}

func validateProfile(p *models.MatcherProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := grade.Validate(p.GPAValue, p.GPAGrade, p.GPASystem); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidProfile, err)
	}
	return nil
}

func observeStage(s State, start time.Time) {
	metrics.MatchDuration.WithLabelValues(string(s)).Observe(time.Since(start).Seconds())
}
