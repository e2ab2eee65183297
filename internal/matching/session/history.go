package session

import (
	"context"
	"errors"
	"strings"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/models"
)

// GetHistory returns one page of a profile's past results, newest first.
func (o *Orchestrator) GetHistory(ctx context.Context, profileID string, page, limit int) (*HistoryPage, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, apperrors.NewInvalidInputError("profileId is required")
	}
	if page < 1 {
		page = 1
	}

	results, total, err := o.results.ListMatchResults(ctx, profileID, page, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list match results", err)
	}
	if results == nil {
		results = []models.MatchResult{}
	}
	return &HistoryPage{Results: results, Total: total, Page: page, Limit: limit}, nil
}

// GetResult loads one result. A non-empty profileID must own it; otherwise
// the result is reported as not found.
func (o *Orchestrator) GetResult(ctx context.Context, profileID, resultID string) (*models.MatchResult, error) {
	res, err := o.results.GetMatchResult(ctx, resultID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperrors.NewResultNotFoundError(resultID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get match result", err)
	}
	if profileID != "" && res.ProfileID != profileID {
		return nil, apperrors.NewResultNotFoundError(resultID)
	}
	return res, nil
}

// DeleteResult removes one result on the owner's request.
func (o *Orchestrator) DeleteResult(ctx context.Context, profileID, resultID string) error {
	if profileID != "" {
		if _, err := o.GetResult(ctx, profileID, resultID); err != nil {
			return err
		}
	}

	err := o.results.DeleteMatchResult(ctx, resultID)
	if errors.Is(err, models.ErrNotFound) {
		return apperrors.NewResultNotFoundError(resultID)
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete match result", err)
	}

	o.logger.Info("match result deleted", map[string]interface{}{
		"resultId":  resultID,
		"profileId": profileID,
	})
	return nil
}
