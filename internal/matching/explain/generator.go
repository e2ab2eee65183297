package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"scholarship-matcher/internal/common/validation"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/models"
)

var (
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrMalformedOutput   = errors.New("GENERATION_MALFORMED_OUTPUT")
)

// ProfileSummary is the profile context shared with the generator. It leaves
// out identifiers and free text.
type ProfileSummary struct {
	GPAPercentage     float64                  `json:"gpaPercentage"`
	CurrentLevel      models.Level             `json:"currentLevel"`
	TargetLevel       models.Level             `json:"targetLevel"`
	FieldsOfStudy     []models.FieldOfStudy    `json:"fieldsOfStudy"`
	CountryOfOrigin   string                   `json:"countryOfOrigin"`
	Languages         []string                 `json:"languages"`
	FundingPreference models.FundingPreference `json:"fundingPreference"`
}

// ExplanationRequest is one generator call.
type ExplanationRequest struct {
	ScholarshipID    string          `json:"scholarshipId"`
	ScholarshipTitle string          `json:"scholarshipTitle,omitempty"`
	Score            int             `json:"score"`
	Factors          []models.Factor `json:"factors"`
	Profile          ProfileSummary  `json:"profileSummary"`
	Locale           i18n.Locale     `json:"locale"`
}

// Generated is a successful generator response.
type Generated struct {
	Explanation models.Bilingual
	MatchLevel  models.MatchLevel
	Model       string
}

// Empty reports a successful call that produced no usable text.
func (g *Generated) Empty() bool {
	return g == nil || g.Explanation.Empty()
}

// Generator produces a bilingual explanation for one match. Implementations
// must return ErrGenerationTimeout, ErrGenerationFailed or ErrMalformedOutput
// (possibly wrapped) on failure, and a Generated with empty text when the
// backend answered but had nothing to say.
type Generator interface {
	GenerateExplanation(ctx context.Context, req ExplanationRequest) (*Generated, error)
}

const outputSchema = `{
  "type": "object",
  "required": ["explanation"],
  "properties": {
    "explanation": {
      "type": "object",
      "required": ["en", "locale"],
      "properties": {
        "en":     {"type": "string"},
        "locale": {"type": "string"}
      }
    },
    "matchLevel": {"type": "string", "enum": ["high", "medium", "low", ""]},
    "model":      {"type": "string"}
  }
}`

var responseSchema = validation.MustCompile(outputSchema)

type generatorResponse struct {
	Explanation struct {
		EN     string `json:"en"`
		Locale string `json:"locale"`
	} `json:"explanation"`
	MatchLevel string `json:"matchLevel"`
	Model      string `json:"model"`
}

// HTTPConfig configures HTTPGenerator.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// HTTPGenerator calls the text-generation service over HTTP. It never
// retries; the caller's context carries the per-call timeout.
type HTTPGenerator struct {
	config HTTPConfig
	client *http.Client
}

func NewHTTPGenerator(config HTTPConfig, client *http.Client) *HTTPGenerator {
	if client == nil {
		client = &http.Client{}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &HTTPGenerator{config: config, client: client}
}

func (g *HTTPGenerator) GenerateExplanation(ctx context.Context, req ExplanationRequest) (*Generated, error) {
	body, err := json.Marshal(map[string]interface{}{
		"scholarshipId":    req.ScholarshipID,
		"scholarshipTitle": req.ScholarshipTitle,
		"score":            req.Score,
		"factors":          req.Factors,
		"profileSummary":   req.Profile,
		"locale":           req.Locale,
		"model":            g.config.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrGenerationFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/api/ai/explain", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrGenerationTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrGenerationTimeout
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrGenerationFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: status %d", ErrGenerationTimeout, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrGenerationFailed, resp.StatusCode)
	}

	if res := responseSchema.ValidateBytes(raw); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, res.Error())
	}

	var parsed generatorResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	model := parsed.Model
	if model == "" {
		model = g.config.Model
	}

	en := strings.TrimSpace(parsed.Explanation.EN)
	text := strings.TrimSpace(parsed.Explanation.Locale)
	if text == "" && req.Locale == i18n.EN {
		text = en
	}

	return &Generated{
		Explanation: models.Bilingual{EN: en, Locale: string(req.Locale), Text: text},
		MatchLevel:  models.MatchLevel(parsed.MatchLevel),
		Model:       model,
	}, nil
}
