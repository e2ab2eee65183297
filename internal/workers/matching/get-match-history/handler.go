package getmatchhistory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/matching/session"
	"scholarship-matcher/internal/models"
)

const (
	TaskType = "get-match-history"
)

// HistoryReader reads past results on behalf of a profile.
type HistoryReader interface {
	GetHistory(ctx context.Context, profileID string, page, limit int) (*session.HistoryPage, error)
	GetResult(ctx context.Context, profileID, resultID string) (*models.MatchResult, error)
}

type Handler struct {
	config *Config
	reader HistoryReader
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, reader HistoryReader, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		reader: reader,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
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
	if profileID == "" {
		return nil, apperrors.NewInvalidInputError("profileId is required")
	}

	if resultID := strings.TrimSpace(input.ResultID); resultID != "" {
		res, err := h.reader.GetResult(ctx, profileID, resultID)
		if err != nil {
			return nil, err
		}
		return &Output{
			Results: []models.MatchResult{*res},
			Total:   1,
			Page:    1,
			Limit:   1,
		}, nil
	}

	page, limit := h.pageBounds(input.Page, input.Limit)
	history, err := h.reader.GetHistory(ctx, profileID, page, limit)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("history page loaded", map[string]interface{}{
		"profileId": profileID,
		"page":      page,
		"returned":  len(history.Results),
		"total":     history.Total,
	})

	return &Output{
		Results: history.Results,
		Total:   history.Total,
		Page:    page,
		Limit:   limit,
		HasMore: page*limit < history.Total,
	}, nil
}

func (h *Handler) pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	if h.config.MaxLimit > 0 && limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}
	return page, limit
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
