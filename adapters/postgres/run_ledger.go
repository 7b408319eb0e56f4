package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gocausal/domain/core"
	"gocausal/domain/run"
	"gocausal/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// RunLedgerImpl stores run manifests in the do_sample_runs table
type RunLedgerImpl struct {
	db *sqlx.DB
}

// NewRunLedger creates a PostgreSQL run ledger. The schema comes from
// internal/migration.
func NewRunLedger(db *sqlx.DB) ports.RunLedger {
	return &RunLedgerImpl{db: db}
}

// runRow is the table layout of a manifest
type runRow struct {
	RunID             string         `db:"run_id"`
	Strategy          string         `db:"strategy"`
	Treatments        pq.StringArray `db:"treatments"`
	Outcomes          pq.StringArray `db:"outcomes"`
	Confounders       pq.StringArray `db:"confounders"`
	Intervention      string         `db:"intervention"`
	InterventionHash  string         `db:"intervention_hash"`
	KeepOriginal      bool           `db:"keep_original"`
	Seed              int64          `db:"seed"`
	SampleSize        int            `db:"sample_size"`
	Policy            string         `db:"extreme_policy"`
	InputRows         int            `db:"input_rows"`
	OutputRows        int            `db:"output_rows"`
	DataFingerprint   string         `db:"data_fingerprint"`
	SampleFingerprint string         `db:"sample_fingerprint"`
	ReplayKey         string         `db:"replay_key"`
	EffectiveSize     float64        `db:"effective_size"`
	Clipped           int            `db:"clipped"`
	Dropped           int            `db:"dropped"`
	RuntimeMs         int64          `db:"runtime_ms"`
	CreatedAt         time.Time      `db:"created_at"`
}

const runColumns = `run_id, strategy, treatments, outcomes, confounders,
	intervention, intervention_hash, keep_original, seed, sample_size,
	extreme_policy, input_rows, output_rows, data_fingerprint,
	sample_fingerprint, replay_key, effective_size, clipped, dropped,
	runtime_ms, created_at`

// Seeds are stored as BIGINT; the uint64 bit pattern round-trips.
func toRow(m *run.Manifest) runRow {
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return runRow{
		RunID:             m.RunID.String(),
		Strategy:          m.Strategy,
		Treatments:        pq.StringArray(m.Treatments),
		Outcomes:          pq.StringArray(m.Outcomes),
		Confounders:       append(pq.StringArray{}, m.Confounders...),
		Intervention:      m.Intervention,
		InterventionHash:  m.InterventionHash.String(),
		KeepOriginal:      m.KeepOriginal,
		Seed:              int64(m.Seed),
		SampleSize:        m.SampleSize,
		Policy:            m.Policy,
		InputRows:         m.InputRows,
		OutputRows:        m.OutputRows,
		DataFingerprint:   m.DataFingerprint.String(),
		SampleFingerprint: m.SampleFingerprint.String(),
		ReplayKey:         m.ReplayKey().String(),
		EffectiveSize:     m.EffectiveSize,
		Clipped:           m.Clipped,
		Dropped:           m.Dropped,
		RuntimeMs:         m.RuntimeMs,
		CreatedAt:         created,
	}
}

func (r runRow) manifest() run.Manifest {
	return run.Manifest{
		RunID:             core.RunID(r.RunID),
		Strategy:          r.Strategy,
		Treatments:        []string(r.Treatments),
		Outcomes:          []string(r.Outcomes),
		Confounders:       []string(r.Confounders),
		Intervention:      r.Intervention,
		InterventionHash:  core.Hash(r.InterventionHash),
		KeepOriginal:      r.KeepOriginal,
		Seed:              uint64(r.Seed),
		SampleSize:        r.SampleSize,
		Policy:            r.Policy,
		InputRows:         r.InputRows,
		OutputRows:        r.OutputRows,
		DataFingerprint:   core.Hash(r.DataFingerprint),
		SampleFingerprint: core.Hash(r.SampleFingerprint),
		EffectiveSize:     r.EffectiveSize,
		Clipped:           r.Clipped,
		Dropped:           r.Dropped,
		RuntimeMs:         r.RuntimeMs,
		CreatedAt:         r.CreatedAt,
	}
}

// Record inserts one manifest
func (r *RunLedgerImpl) Record(ctx context.Context, manifest *run.Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO do_sample_runs (`+runColumns+`) VALUES (
			:run_id, :strategy, :treatments, :outcomes, :confounders,
			:intervention, :intervention_hash, :keep_original, :seed, :sample_size,
			:extreme_policy, :input_rows, :output_rows, :data_fingerprint,
			:sample_fingerprint, :replay_key, :effective_size, :clipped, :dropped,
			:runtime_ms, :created_at
		)
	`, toRow(manifest))
	return err
}

// Get retrieves one manifest by run ID
func (r *RunLedgerImpl) Get(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM do_sample_runs WHERE run_id = $1`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, run.ErrNotFound
		}
		return nil, err
	}
	m := row.manifest()
	return &m, nil
}

// List returns the most recent manifests
func (r *RunLedgerImpl) List(ctx context.Context, limit int) ([]run.Manifest, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+runColumns+`
		FROM do_sample_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]run.Manifest, len(rows))
	for i, row := range rows {
		out[i] = row.manifest()
	}
	return out, nil
}
