package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error)
	calls         int
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	m.calls++
	return m.SendEmailFunc(ctx, params)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error)
	calls       int
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
	m.calls++
	return m.PublishFunc(ctx, params)
}

func sampleResult() *models.MatchResult {
	deadline := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	var matches []models.ScholarshipMatch
	for i, id := range []string{"s-a", "s-b", "s-c", "s-d"} {
		matches = append(matches, models.ScholarshipMatch{
			ScholarshipID: id,
			Title:         "Scholarship " + strings.ToUpper(id[2:]),
			Score:         90 - i*5,
			MatchLevel:    models.MatchHigh,
			Deadline:      deadline,
		})
	}
	matches[0].Explanation = &models.Bilingual{EN: "Strong fit.", Locale: "fr", Text: "Très bon choix."}

	return &models.MatchResult{
		ID:               "r-1",
		ProfileID:        "p-1",
		Matches:          matches,
		TotalMatched:     4,
		ModelIdentifier:  "rules-v1",
		ProcessingTimeMs: 120,
		CreatedAt:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func enabledConfig() Config {
	return Config{
		EmailEnabled: true,
		FromEmail:    "matches@example.org",
		SNSEnabled:   true,
		TopicARN:     "arn:aws:sns:eu-west-1:123456789012:match-events",
	}
}

func TestNotifier_MatchCompleted(t *testing.T) {
	var sentEmail *ses.SendEmailInput
	var published *sns.PublishInput

	sesMock := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
		sentEmail = params
		return &ses.SendEmailOutput{}, nil
	}}
	snsMock := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
		published = params
		return &sns.PublishOutput{}, nil
	}}

	n := NewNotifier(enabledConfig(), sesMock, snsMock, logger.NewTestLogger(t))
	n.MatchCompleted(context.Background(), Notice{Result: sampleResult(), Email: "student@example.org", Locale: i18n.FR})

	require.NotNil(t, published)
	assert.Equal(t, "arn:aws:sns:eu-west-1:123456789012:match-events", *published.TopicArn)

	var event MatchCompletedEvent
	require.NoError(t, json.Unmarshal([]byte(*published.Message), &event))
	assert.Equal(t, EventMatchCompleted, event.Event)
	assert.Equal(t, "r-1", event.ResultID)
	assert.Equal(t, []string{"s-a", "s-b", "s-c"}, event.TopScholarships)

	require.NotNil(t, sentEmail)
	assert.Equal(t, []string{"student@example.org"}, sentEmail.Destination.ToAddresses)
	assert.Equal(t, "matches@example.org", *sentEmail.Source)
	assert.Equal(t, "Vos bourses correspondantes sont prêtes", *sentEmail.Message.Subject.Data)

	body := *sentEmail.Message.Body.Text.Data
	assert.Contains(t, body, "Scholarship A")
	assert.Contains(t, body, "Très bon choix.")
	assert.NotContains(t, body, "Scholarship D")
}

func TestNotifier_SkipsDisabledOrMissingChannels(t *testing.T) {
	noEmail := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
		return &ses.SendEmailOutput{}, nil
	}}
	noEvent := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
		return &sns.PublishOutput{}, nil
	}}

	tests := []struct {
		name       string
		config     Config
		notice     Notice
		wantEmails int
		wantEvents int
	}{
		{"all disabled", Config{}, Notice{Result: sampleResult(), Email: "a@b.c"}, 0, 0},
		{"no recipient", enabledConfig(), Notice{Result: sampleResult()}, 0, 1},
		{"no topic", Config{EmailEnabled: true, SNSEnabled: true}, Notice{Result: sampleResult(), Email: "a@b.c"}, 1, 0},
		{"nil result", enabledConfig(), Notice{Email: "a@b.c"}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noEmail.calls, noEvent.calls = 0, 0
			n := NewNotifier(tt.config, noEmail, noEvent, logger.NewNoOpLogger())
			n.MatchCompleted(context.Background(), tt.notice)

			assert.Equal(t, tt.wantEmails, noEmail.calls)
			assert.Equal(t, tt.wantEvents, noEvent.calls)
		})
	}
}

func TestNotifier_FailuresAreSwallowed(t *testing.T) {
	sesMock := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
		return nil, errors.New("MessageRejected: Email address is not verified")
	}}
	snsMock := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
		return nil, errors.New("throttled")
	}}

	n := NewNotifier(enabledConfig(), sesMock, snsMock, logger.NewNoOpLogger())
	assert.NotPanics(t, func() {
		n.MatchCompleted(context.Background(), Notice{Result: sampleResult(), Email: "a@b.c", Locale: i18n.EN})
	})
	assert.Equal(t, 1, sesMock.calls)
	assert.Equal(t, 1, snsMock.calls)
}

func TestNotifier_NilClients(t *testing.T) {
	n := NewNotifier(enabledConfig(), nil, nil, logger.NewNoOpLogger())
	assert.NotPanics(t, func() {
		n.MatchCompleted(context.Background(), Notice{Result: sampleResult(), Email: "a@b.c"})
	})
}

func TestDigest_English(t *testing.T) {
	res := sampleResult()
	res.Matches[1].Title = ""

	subject, body := Digest(res, i18n.EN)
	assert.Equal(t, "Your scholarship matches are ready", subject)
	assert.Contains(t, body, "We found 4 scholarships")
	assert.Contains(t, body, "Scholarship A: score 90 (high), deadline 2025-04-15")
	assert.Contains(t, body, "s-b: score 85")
}
