package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

func sampleRequest(locale i18n.Locale) ExplanationRequest {
	return ExplanationRequest{
		ScholarshipID: "s-1",
		Score:         84,
		Factors: []models.Factor{
			{Type: models.FactorField, Status: models.StatusMatched, Score: 30, MaxScore: 30},
		},
		Profile: ProfileSummary{GPAPercentage: 88, TargetLevel: models.LevelMaster},
		Locale:  locale,
	}
}

func TestHTTPGenerator_GenerateExplanation(t *testing.T) {
	tests := []struct {
		name       string
		locale     i18n.Locale
		status     int
		body       string
		wantErr    error
		wantEN     string
		wantText   string
		wantLevel  models.MatchLevel
		wantModel  string
		wantsEmpty bool
	}{
		{
			name:      "bilingual success",
			locale:    i18n.FR,
			status:    http.StatusOK,
			body:      `{"explanation":{"en":"Strong fit.","locale":"Très bon choix."},"matchLevel":"high","model":"explainer-v2"}`,
			wantEN:    "Strong fit.",
			wantText:  "Très bon choix.",
			wantLevel: models.MatchHigh,
			wantModel: "explainer-v2",
		},
		{
			name:      "english locale reuses english text",
			locale:    i18n.EN,
			status:    http.StatusOK,
			body:      `{"explanation":{"en":"Strong fit.","locale":""}}`,
			wantEN:    "Strong fit.",
			wantText:  "Strong fit.",
			wantModel: "configured-model",
		},
		{
			name:       "empty explanation",
			locale:     i18n.AR,
			status:     http.StatusOK,
			body:       `{"explanation":{"en":"  ","locale":""},"matchLevel":"medium"}`,
			wantLevel:  models.MatchMedium,
			wantModel:  "configured-model",
			wantsEmpty: true,
		},
		{
			name:    "server error",
			locale:  i18n.EN,
			status:  http.StatusInternalServerError,
			body:    `{"error":"boom"}`,
			wantErr: ErrGenerationFailed,
		},
		{
			name:    "gateway timeout",
			locale:  i18n.EN,
			status:  http.StatusGatewayTimeout,
			body:    ``,
			wantErr: ErrGenerationTimeout,
		},
		{
			name:    "missing explanation",
			locale:  i18n.EN,
			status:  http.StatusOK,
			body:    `{"matchLevel":"high"}`,
			wantErr: ErrMalformedOutput,
		},
		{
			name:    "unknown match level",
			locale:  i18n.EN,
			status:  http.StatusOK,
			body:    `{"explanation":{"en":"x","locale":"x"},"matchLevel":"excellent"}`,
			wantErr: ErrMalformedOutput,
		},
		{
			name:    "not json",
			locale:  i18n.EN,
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: ErrMalformedOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/ai/explain", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

				var payload map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "s-1", payload["scholarshipId"])
				assert.Equal(t, string(tt.locale), payload["locale"])

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			gen := NewHTTPGenerator(HTTPConfig{BaseURL: server.URL + "/", APIKey: "secret", Model: "configured-model"}, server.Client())
			out, err := gen.GenerateExplanation(context.Background(), sampleRequest(tt.locale))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, out)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantsEmpty, out.Empty())
			assert.Equal(t, tt.wantLevel, out.MatchLevel)
			assert.Equal(t, tt.wantModel, out.Model)
			if !tt.wantsEmpty {
				assert.Equal(t, tt.wantEN, out.Explanation.EN)
				assert.Equal(t, tt.wantText, out.Explanation.Text)
				assert.Equal(t, string(tt.locale), out.Explanation.Locale)
			}
		})
	}
}

func TestHTTPGenerator_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	gen := NewHTTPGenerator(HTTPConfig{BaseURL: server.URL}, server.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gen.GenerateExplanation(ctx, sampleRequest(i18n.EN))
	assert.ErrorIs(t, err, ErrGenerationTimeout)
	assert.Equal(t, OutcomeTimeout, Classify(nil, err).Outcome)
}

func TestHTTPGenerator_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	gen := NewHTTPGenerator(HTTPConfig{BaseURL: url}, nil)
	_, err := gen.GenerateExplanation(context.Background(), sampleRequest(i18n.EN))
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
