package memory

import (
	"context"
	"sync"

	"gocausal/domain/core"
	"gocausal/domain/run"
	"gocausal/ports"
)

// DefaultCapacity bounds a ledger created with capacity <= 0
const DefaultCapacity = 1000

// RunLedger keeps the most recent manifests in process memory.
// The oldest run is evicted once capacity is reached.
type RunLedger struct {
	mu       sync.RWMutex
	capacity int
	order    []core.RunID
	byID     map[core.RunID]run.Manifest
}

var _ ports.RunLedger = (*RunLedger)(nil)

// NewRunLedger creates an empty in-memory ledger
func NewRunLedger(capacity int) *RunLedger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RunLedger{
		capacity: capacity,
		byID:     make(map[core.RunID]run.Manifest),
	}
}

// Record stores a copy of manifest. Recording an ID twice is an error.
func (l *RunLedger) Record(ctx context.Context, manifest *run.Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[manifest.RunID]; ok {
		return core.NewConfigurationError("run_id", "already recorded: "+manifest.RunID.String())
	}
	if len(l.order) == l.capacity {
		delete(l.byID, l.order[0])
		l.order = l.order[1:]
	}
	l.order = append(l.order, manifest.RunID)
	l.byID[manifest.RunID] = copyManifest(*manifest)
	return nil
}

func (l *RunLedger) Get(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byID[id]
	if !ok {
		return nil, run.ErrNotFound
	}
	out := copyManifest(m)
	return &out, nil
}

func (l *RunLedger) List(ctx context.Context, limit int) ([]run.Manifest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.order) {
		limit = len(l.order)
	}
	out := make([]run.Manifest, 0, limit)
	for i := len(l.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyManifest(l.byID[l.order[i]]))
	}
	return out, nil
}

// Len reports how many runs are held
func (l *RunLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

func copyManifest(m run.Manifest) run.Manifest {
	m.Treatments = append([]string(nil), m.Treatments...)
	m.Outcomes = append([]string(nil), m.Outcomes...)
	m.Confounders = append([]string(nil), m.Confounders...)
	return m
}
