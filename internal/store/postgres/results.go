package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

const resultColumns = `id, profile_id, matches, total_matched, profile_snapshot,
	model_identifier, processing_time_ms, created_at`

type MatchResultRepository struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewMatchResultRepository(db *sql.DB, log logger.Logger) *MatchResultRepository {
	return &MatchResultRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "match-result-repository"}),
		now:    time.Now,
	}
}

func scanResult(row rowScanner) (*models.MatchResult, error) {
	var (
		res          models.MatchResult
		matchesJSON  []byte
		snapshotJSON []byte
	)
	err := row.Scan(&res.ID, &res.ProfileID, &matchesJSON, &res.TotalMatched, &snapshotJSON,
		&res.ModelIdentifier, &res.ProcessingTimeMs, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(matchesJSON, &res.Matches); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}
	if err := json.Unmarshal(snapshotJSON, &res.ProfileSnapshot); err != nil {
		return nil, fmt.Errorf("decode profile_snapshot: %w", err)
	}
	return &res, nil
}

// CreateMatchResult writes the result as one row. Re-inserting an existing id
// is a no-op, so a retried persist cannot duplicate history.
func (r *MatchResultRepository) CreateMatchResult(ctx context.Context, res *models.MatchResult) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = r.now().UTC()
	}

	matchesJSON, err := json.Marshal(res.Matches)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}
	snapshotJSON, err := json.Marshal(res.ProfileSnapshot)
	if err != nil {
		return fmt.Errorf("encode profile_snapshot: %w", err)
	}

	execResult, err := r.db.ExecContext(ctx, `
		INSERT INTO match_results (`+resultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		res.ID, res.ProfileID, matchesJSON, res.TotalMatched, snapshotJSON,
		res.ModelIdentifier, res.ProcessingTimeMs, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match result: %w", err)
	}
	// The row already existed; its first insert wrote the audit entry.
	if n, err := execResult.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	r.audit(ctx, res.ID, "created", map[string]interface{}{
		"profileId":    res.ProfileID,
		"totalMatched": res.TotalMatched,
	})
	return nil
}

// ListMatchResults returns one page of a profile's results, newest first,
// and the total number of results for the profile.
func (r *MatchResultRepository) ListMatchResults(ctx context.Context, profileID string, page, limit int) ([]models.MatchResult, int, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_results WHERE profile_id = $1`, profileID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count match results: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM match_results
		WHERE profile_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		profileID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	results := make([]models.MatchResult, 0, limit)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan match result: %w", err)
		}
		results = append(results, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate match results: %w", err)
	}
	return results, total, nil
}

func (r *MatchResultRepository) GetMatchResult(ctx context.Context, id string) (*models.MatchResult, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM match_results WHERE id = $1`, id)
	res, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match result %s: %w", id, err)
	}
	return res, nil
}

func (r *MatchResultRepository) DeleteMatchResult(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM match_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete match result %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete match result %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	r.audit(ctx, id, "deleted", nil)
	return nil
}

// audit is best effort. A failed audit insert never fails the caller.
func (r *MatchResultRepository) audit(ctx context.Context, id, action string, details map[string]interface{}) {
	detailsJSON, _ := json.Marshal(details)
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (entity_type, entity_id, action, details)
		VALUES ($1, $2, $3, $4)`,
		"match_result", id, action, detailsJSON,
	); err != nil {
		r.logger.Warn("failed to create audit log", map[string]interface{}{
			"resultId": id,
			"action":   action,
			"error":    err.Error(),
		})
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
