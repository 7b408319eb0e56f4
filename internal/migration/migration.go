package migration

import (
	"context"

	"gocausal/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every statement is
// idempotent, so Run is safe on an already migrated database.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range Statements() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.Wrapf(err, "failed to %s", step.Name)
		}
	}
	return nil
}

// Step is one named DDL statement
type Step struct {
	Name string
	SQL  string
}

// Statements lists the schema in application order
func Statements() []Step {
	return []Step{
		{Name: "create do_sample_runs table", SQL: `
			CREATE TABLE IF NOT EXISTS do_sample_runs (
				run_id UUID PRIMARY KEY,
				strategy VARCHAR(50) NOT NULL,
				treatments TEXT[] NOT NULL,
				outcomes TEXT[] NOT NULL,
				confounders TEXT[] NOT NULL DEFAULT '{}',
				intervention TEXT NOT NULL,
				intervention_hash CHAR(64) NOT NULL,
				keep_original BOOLEAN NOT NULL DEFAULT false,
				seed BIGINT NOT NULL,
				sample_size INTEGER NOT NULL,
				extreme_policy VARCHAR(10) NOT NULL,
				input_rows INTEGER NOT NULL,
				output_rows INTEGER NOT NULL,
				data_fingerprint CHAR(64) NOT NULL,
				sample_fingerprint CHAR(64) NOT NULL,
				replay_key CHAR(64) NOT NULL,
				effective_size DOUBLE PRECISION NOT NULL DEFAULT 0,
				clipped INTEGER NOT NULL DEFAULT 0,
				dropped INTEGER NOT NULL DEFAULT 0,
				runtime_ms BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)
		`},
		{Name: "create created_at index", SQL: `
			CREATE INDEX IF NOT EXISTS idx_do_sample_runs_created_at ON do_sample_runs(created_at DESC)
		`},
		{Name: "create replay_key index", SQL: `
			CREATE INDEX IF NOT EXISTS idx_do_sample_runs_replay_key ON do_sample_runs(replay_key)
		`},
	}
}
