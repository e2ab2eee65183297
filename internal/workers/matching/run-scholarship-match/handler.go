package runscholarshipmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/matching/i18n"
	"scholarship-matcher/internal/matching/session"
	"scholarship-matcher/internal/notify"
)

const (
	TaskType = "run-scholarship-match"
)

// MatchRunner runs one match session.
type MatchRunner interface {
	RunMatch(ctx context.Context, profileID, localeTag string, opts ...session.RunOption) (*session.RunOutcome, error)
}

// CompletionNotifier is told about every persisted result.
type CompletionNotifier interface {
	MatchCompleted(ctx context.Context, notice notify.Notice)
}

type Handler struct {
	config   *Config
	runner   MatchRunner
	notifier CompletionNotifier
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

// NewHandler accepts a nil notifier.
func NewHandler(config *Config, runner MatchRunner, notifier CompletionNotifier, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		runner:   runner,
		notifier: notifier,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
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
	// A retried job keeps its key, so the retry lands on the same result.
	input.RunKey = strconv.FormatInt(job.Key, 10)

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
	var opts []session.RunOption
	if input.RunKey != "" {
		opts = append(opts, session.WithRunKey(input.RunKey))
	}
	outcome, err := h.runner.RunMatch(ctx, strings.TrimSpace(input.ProfileID), input.Locale, opts...)
	if err != nil {
		return nil, err
	}

	output := &Output{
		MatchStatus:      StatusCompleted,
		ResultID:         outcome.ResultID,
		Matches:          outcome.Matches,
		TotalMatched:     outcome.TotalMatched,
		ProcessingTimeMs: outcome.ProcessingTimeMs,
		Message:          outcome.Message,
	}
	if outcome.ResultID == "" {
		output.MatchStatus = StatusNoMatches
	}

	// A replayed result was announced by the attempt that stored it.
	if outcome.Result != nil && !outcome.Replayed {
		h.notify(input, outcome)
	}
	return output, nil
}

// notify runs on its own deadline so a slow mail provider never eats into
// the job timeout.
func (h *Handler) notify(input *Input, outcome *session.RunOutcome) {
	if h.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.config.NotifyTimeout)
	defer cancel()

	h.notifier.MatchCompleted(ctx, notify.Notice{
		Result: outcome.Result,
		Email:  strings.TrimSpace(input.Email),
		Locale: i18n.Parse(input.Locale),
	})
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
		"jobKey":      job.Key,
		"matchStatus": output.MatchStatus,
		"resultId":    output.ResultID,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
