package ports

import (
	"context"

	"gocausal/domain/core"
	"gocausal/domain/run"
)

// RunLedger is an append-only record of do-sample runs.
// Get returns run.ErrNotFound for an unknown ID.
type RunLedger interface {
	Record(ctx context.Context, manifest *run.Manifest) error
	Get(ctx context.Context, id core.RunID) (*run.Manifest, error)
	// List returns up to limit manifests, newest first
	List(ctx context.Context, limit int) ([]run.Manifest, error)
}
