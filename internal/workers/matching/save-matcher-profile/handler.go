package savematcherprofile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/common/validation"
	"scholarship-matcher/internal/models"
)

const (
	TaskType = "save-matcher-profile"
)

const inputSchemaJSON = `{
  "type": "object",
  "required": ["userId", "gpaValue", "gpaSystem", "currentLevel", "targetLevel",
               "fieldsOfStudy", "countryOfOrigin", "languages", "fundingPreference"],
  "properties": {
    "userId":            {"type": "string", "minLength": 1},
    "gpaValue":          {"type": "number", "minimum": 0},
    "gpaGrade":          {"type": "string"},
    "gpaSystem":         {"type": "string"},
    "currentLevel":      {"type": "string"},
    "targetLevel":       {"type": "string"},
    "fieldsOfStudy":     {"type": "array", "minItems": 1, "maxItems": 4, "items": {"type": "string"}},
    "countryOfOrigin":   {"type": "string", "pattern": "^\\s*[A-Za-z]{2}\\s*$"},
    "languages":         {"type": "array", "minItems": 1, "items": {"type": "string"}},
    "age":               {"type": ["integer", "null"], "minimum": 15, "maximum": 60},
    "fundingPreference": {"type": "string"},
    "specialCircumstances": {"type": ["string", "null"]}
  }
}`

var inputSchema = validation.MustCompile(inputSchemaJSON)

// ProfileSaver creates or updates the user's profile.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, p *models.MatcherProfile) (*models.MatcherProfile, error)
}

type Handler struct {
	config *Config
	saver  ProfileSaver
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, saver ProfileSaver, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		saver:  saver,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := ParseInput([]byte(job.Variables))
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// ParseInput checks the job variables against the input schema before
// decoding them.
func ParseInput(raw []byte) (*Input, error) {
	if res := inputSchema.ValidateBytes(raw); !res.Valid {
		return nil, apperrors.NewProfileInvalidError(res.Error(), nil).
			WithMetadata("violations", res.GetErrorMessages())
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	saved, err := h.saver.SaveProfile(ctx, input.ToProfile())
	if err != nil {
		return nil, err
	}

	created := saved.CreatedAt.Equal(saved.UpdatedAt)
	h.logger.Info("matcher profile saved", map[string]interface{}{
		"profileId": saved.ID,
		"userId":    saved.UserID,
		"created":   created,
	})

	return &Output{
		ProfileID:        saved.ID,
		UserID:           saved.UserID,
		ProfileCreated:   created,
		ProfileUpdatedAt: saved.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
