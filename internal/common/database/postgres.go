package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scholarship-matcher/internal/common/config"

	_ "github.com/lib/pq"
)

// schemaDDL creates the tables the matcher reads and writes. Scholarships
// live in the search index and are not owned here.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS matcher_profiles (
	id                    UUID PRIMARY KEY,
	user_id               TEXT NOT NULL UNIQUE,
	gpa_value             DOUBLE PRECISION NOT NULL DEFAULT 0,
	gpa_grade             TEXT NOT NULL DEFAULT '',
	gpa_system            TEXT NOT NULL,
	current_level         TEXT NOT NULL,
	target_level          TEXT NOT NULL,
	fields_of_study       JSONB NOT NULL,
	country_of_origin     CHAR(2) NOT NULL,
	languages             JSONB NOT NULL,
	age                   INT,
	funding_preference    TEXT NOT NULL,
	special_circumstances TEXT,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS match_results (
	id                 UUID PRIMARY KEY,
	profile_id         UUID NOT NULL REFERENCES matcher_profiles(id),
	matches            JSONB NOT NULL,
	total_matched      INT NOT NULL,
	profile_snapshot   JSONB NOT NULL,
	model_identifier   TEXT NOT NULL,
	processing_time_ms BIGINT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_match_results_profile_created
	ON match_results (profile_id, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_log (
	id          BIGSERIAL PRIMARY KEY,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	action      TEXT NOT NULL,
	details     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// EnsureSchema applies the idempotent table definitions.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
