package explain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

// ==========================
// Fake generator
// ==========================

type fakeGenerator struct {
	mu       sync.Mutex
	calls    []string
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	respond  func(ctx context.Context, req ExplanationRequest) (*Generated, error)
}

func (f *fakeGenerator) GenerateExplanation(ctx context.Context, req ExplanationRequest) (*Generated, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxSeen, prev, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.ScholarshipID)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.respond(ctx, req)
}

func okResponse(_ context.Context, req ExplanationRequest) (*Generated, error) {
	return &Generated{
		Explanation: models.Bilingual{EN: "Good fit for " + req.ScholarshipID, Locale: string(req.Locale), Text: "Bon choix"},
		MatchLevel:  models.MatchHigh,
		Model:       "explainer-v2",
	}, nil
}

func makeMatches(n int) []models.ScholarshipMatch {
	out := make([]models.ScholarshipMatch, n)
	for i := range out {
		score := 90 - i*10
		out[i] = models.ScholarshipMatch{
			ScholarshipID: fmt.Sprintf("s-%d", i),
			Score:         score,
			MatchLevel:    models.BandForScore(score),
			Factors: []models.Factor{
				{Type: models.FactorFunding, Status: models.StatusMatched, Score: 20, MaxScore: 20},
			},
		}
	}
	return out
}

func testProfile() *models.MatcherProfile {
	return &models.MatcherProfile{
		ID:                "p-1",
		GPAValue:          80,
		GPASystem:         models.GradingPercentage,
		TargetLevel:       models.LevelMaster,
		FieldsOfStudy:     []models.FieldOfStudy{models.FieldLaw},
		CountryOfOrigin:   "TN",
		Languages:         []string{"ar", "fr"},
		FundingPreference: models.PreferAny,
	}
}

// ==========================
// Classify
// ==========================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		gen  *Generated
		err  error
		want Outcome
	}{
		{"ok", &Generated{Explanation: models.Bilingual{EN: "x"}}, nil, OutcomeOK},
		{"empty text", &Generated{}, nil, OutcomeEmpty},
		{"nil response", nil, nil, OutcomeEmpty},
		{"timeout sentinel", nil, fmt.Errorf("%w: slow", ErrGenerationTimeout), OutcomeTimeout},
		{"context deadline", nil, context.DeadlineExceeded, OutcomeTimeout},
		{"malformed", nil, fmt.Errorf("%w: bad json", ErrMalformedOutput), OutcomeMalformed},
		{"failed", nil, fmt.Errorf("%w: status 500", ErrGenerationFailed), OutcomeFailed},
		{"quota", nil, errors.New("quota exceeded"), OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.gen, tt.err).Outcome)
		})
	}
}

// ==========================
// Enrich
// ==========================

func TestEnrich_AllSucceed(t *testing.T) {
	gen := &fakeGenerator{respond: okResponse}
	e := NewEnricher(gen, Config{Concurrency: 3, CallTimeout: time.Second}, logger.NewTestLogger(t))

	in := makeMatches(5)
	out, err := e.Enrich(context.Background(), in, testProfile(), i18n.FR)
	require.NoError(t, err)
	require.Len(t, out.Matches, 5)

	for i, m := range out.Matches {
		require.NotNil(t, m.Explanation)
		assert.Equal(t, "Good fit for "+m.ScholarshipID, m.Explanation.EN)
		assert.Equal(t, models.MatchHigh, m.MatchLevel)
		assert.Equal(t, in[i].Score, m.Score)
		assert.Equal(t, OutcomeOK, out.Outcomes[i])
	}
	assert.Equal(t, "explainer-v2", out.Model)

	// Input untouched.
	assert.Nil(t, in[0].Explanation)
}

func TestEnrich_FailureIsolation(t *testing.T) {
	gen := &fakeGenerator{respond: func(ctx context.Context, req ExplanationRequest) (*Generated, error) {
		switch req.ScholarshipID {
		case "s-1":
			return nil, fmt.Errorf("%w: status 503", ErrGenerationFailed)
		case "s-2":
			return &Generated{MatchLevel: models.MatchLow}, nil
		case "s-3":
			return nil, fmt.Errorf("%w: missing explanation", ErrMalformedOutput)
		}
		return okResponse(ctx, req)
	}}
	e := NewEnricher(gen, Config{Concurrency: 4, CallTimeout: time.Second}, logger.NewNoOpLogger())

	in := makeMatches(5) // scores 90, 80, 70, 60, 50
	out, err := e.Enrich(context.Background(), in, testProfile(), i18n.EN)
	require.NoError(t, err)

	assert.NotNil(t, out.Matches[0].Explanation)
	assert.Nil(t, out.Matches[1].Explanation)
	assert.Nil(t, out.Matches[2].Explanation)
	assert.Nil(t, out.Matches[3].Explanation)
	assert.NotNil(t, out.Matches[4].Explanation)

	// Failed call falls back to the score band.
	assert.Equal(t, models.MatchHigh, out.Matches[1].MatchLevel)
	// Empty response keeps the model's label.
	assert.Equal(t, models.MatchLow, out.Matches[2].MatchLevel)
	assert.Equal(t, models.MatchMedium, out.Matches[3].MatchLevel)

	assert.Equal(t, []Outcome{OutcomeOK, OutcomeFailed, OutcomeEmpty, OutcomeMalformed, OutcomeOK}, out.Outcomes)

	for i := range in {
		assert.Equal(t, in[i].Score, out.Matches[i].Score)
		assert.Equal(t, in[i].Factors, out.Matches[i].Factors)
	}
}

func TestEnrich_PerCallTimeout(t *testing.T) {
	gen := &fakeGenerator{respond: func(ctx context.Context, req ExplanationRequest) (*Generated, error) {
		if req.ScholarshipID == "s-0" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return okResponse(ctx, req)
	}}
	e := NewEnricher(gen, Config{Concurrency: 2, CallTimeout: 50 * time.Millisecond}, logger.NewNoOpLogger())

	out, err := e.Enrich(context.Background(), makeMatches(3), testProfile(), i18n.EN)
	require.NoError(t, err)

	assert.Equal(t, OutcomeTimeout, out.Outcomes[0])
	assert.Nil(t, out.Matches[0].Explanation)
	assert.Equal(t, models.MatchHigh, out.Matches[0].MatchLevel)
	assert.Equal(t, OutcomeOK, out.Outcomes[1])
	assert.Equal(t, OutcomeOK, out.Outcomes[2])
}

func TestEnrich_BoundedConcurrency(t *testing.T) {
	gen := &fakeGenerator{respond: okResponse, delay: 20 * time.Millisecond}
	e := NewEnricher(gen, Config{Concurrency: 3, CallTimeout: time.Second}, logger.NewNoOpLogger())

	_, err := e.Enrich(context.Background(), makeMatches(12), testProfile(), i18n.EN)
	require.NoError(t, err)

	assert.LessOrEqual(t, atomic.LoadInt32(&gen.maxSeen), int32(3))
	assert.Len(t, gen.calls, 12)
}

func TestEnrich_TopN(t *testing.T) {
	gen := &fakeGenerator{respond: okResponse}
	e := NewEnricher(gen, Config{TopN: 2, Concurrency: 2, CallTimeout: time.Second}, logger.NewNoOpLogger())

	out, err := e.Enrich(context.Background(), makeMatches(4), testProfile(), i18n.EN)
	require.NoError(t, err)

	assert.Len(t, gen.calls, 2)
	assert.NotNil(t, out.Matches[1].Explanation)
	assert.Nil(t, out.Matches[2].Explanation)
	assert.Equal(t, OutcomeSkipped, out.Outcomes[3])
	assert.Equal(t, models.MatchMedium, out.Matches[3].MatchLevel)
}

func TestEnrich_CancelledContextReturnsWithoutWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// Ignores its context on purpose so the call outlives the cancellation.
	gen := &fakeGenerator{respond: func(ctx context.Context, req ExplanationRequest) (*Generated, error) {
		<-release
		return okResponse(ctx, req)
	}}
	e := NewEnricher(gen, Config{Concurrency: 2, CallTimeout: time.Minute}, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out, err := e.Enrich(ctx, makeMatches(4), testProfile(), i18n.EN)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEnrich_Empty(t *testing.T) {
	gen := &fakeGenerator{respond: okResponse}
	e := NewEnricher(gen, Config{}, logger.NewNoOpLogger())

	out, err := e.Enrich(context.Background(), nil, testProfile(), i18n.EN)
	require.NoError(t, err)
	assert.Empty(t, out.Matches)
	assert.Empty(t, gen.calls)
}
