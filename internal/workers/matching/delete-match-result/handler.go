package deletematchresult

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/common/logger"
)

const (
	TaskType = "delete-match-result"
)

// ResultDeleter removes a result after checking the caller owns it.
type ResultDeleter interface {
	DeleteResult(ctx context.Context, profileID, resultID string) error
}

type Handler struct {
	config  *Config
	deleter ResultDeleter
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, deleter ResultDeleter, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		deleter: deleter,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job,
			apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	profileID := strings.TrimSpace(input.ProfileID)
	resultID := strings.TrimSpace(input.ResultID)
	if profileID == "" || resultID == "" {
		return nil, apperrors.NewInvalidInputError("profileId and resultId are required")
	}

	if err := h.deleter.DeleteResult(ctx, profileID, resultID); err != nil {
		return nil, err
	}
	return &Output{ResultID: resultID, Deleted: true}, nil
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
		"jobKey":   job.Key,
		"resultId": output.ResultID,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
