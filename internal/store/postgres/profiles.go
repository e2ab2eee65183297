// Package postgres persists matcher profiles and match results.
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

// ErrNotFound is returned by lookups and deletes that match no row.
var ErrNotFound = models.ErrNotFound

const profileColumns = `id, user_id, gpa_value, gpa_grade, gpa_system, current_level, target_level,
	fields_of_study, country_of_origin, languages, age, funding_preference,
	special_circumstances, created_at, updated_at`

type ProfileRepository struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewProfileRepository(db *sql.DB, log logger.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "profile-repository"}),
		now:    time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.MatcherProfile, error) {
	var (
		p          models.MatcherProfile
		fieldsJSON []byte
		langsJSON  []byte
		age        sql.NullInt64
		special    sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.GPAValue, &p.GPAGrade, &p.GPASystem, &p.CurrentLevel, &p.TargetLevel,
		&fieldsJSON, &p.CountryOfOrigin, &langsJSON, &age, &p.FundingPreference,
		&special, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fieldsJSON, &p.FieldsOfStudy); err != nil {
		return nil, fmt.Errorf("decode fields_of_study: %w", err)
	}
	if err := json.Unmarshal(langsJSON, &p.Languages); err != nil {
		return nil, fmt.Errorf("decode languages: %w", err)
	}
	if age.Valid {
		a := int(age.Int64)
		p.Age = &a
	}
	if special.Valid {
		s := special.String
		p.SpecialCircumstances = &s
	}
	return &p, nil
}

func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (*models.MatcherProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM matcher_profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

func (r *ProfileRepository) GetProfileByUserID(ctx context.Context, userID string) (*models.MatcherProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM matcher_profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile for user %s: %w", userID, err)
	}
	return p, nil
}

// UpsertProfile creates the user's profile or replaces its fields. The stored
// row is returned, so callers see the id and created_at kept on update.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p *models.MatcherProfile) (*models.MatcherProfile, error) {
	fieldsJSON, err := json.Marshal(p.FieldsOfStudy)
	if err != nil {
		return nil, fmt.Errorf("encode fields_of_study: %w", err)
	}
	langsJSON, err := json.Marshal(p.Languages)
	if err != nil {
		return nil, fmt.Errorf("encode languages: %w", err)
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := r.now().UTC()

	var age sql.NullInt64
	if p.Age != nil {
		age = sql.NullInt64{Int64: int64(*p.Age), Valid: true}
	}
	var special sql.NullString
	if p.SpecialCircumstances != nil {
		special = sql.NullString{String: *p.SpecialCircumstances, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO matcher_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			gpa_value = EXCLUDED.gpa_value,
			gpa_grade = EXCLUDED.gpa_grade,
			gpa_system = EXCLUDED.gpa_system,
			current_level = EXCLUDED.current_level,
			target_level = EXCLUDED.target_level,
			fields_of_study = EXCLUDED.fields_of_study,
			country_of_origin = EXCLUDED.country_of_origin,
			languages = EXCLUDED.languages,
			age = EXCLUDED.age,
			funding_preference = EXCLUDED.funding_preference,
			special_circumstances = EXCLUDED.special_circumstances,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		id, p.UserID, p.GPAValue, p.GPAGrade, string(p.GPASystem), string(p.CurrentLevel), string(p.TargetLevel),
		fieldsJSON, p.CountryOfOrigin, langsJSON, age, string(p.FundingPreference),
		special, now,
	)

	saved, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("upsert profile for user %s: %w", p.UserID, err)
	}

	r.logger.Info("profile saved", map[string]interface{}{
		"profileId": saved.ID,
		"userId":    saved.UserID,
	})
	return saved, nil
}
