package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gocausal/domain/core"
	"gocausal/domain/run"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifest() *run.Manifest {
	return &run.Manifest{
		RunID:             core.NewRunID(),
		Treatments:        []string{"D"},
		Outcomes:          []string{"Y"},
		DataFingerprint:   core.NewHash([]byte("data")),
		SampleFingerprint: core.NewHash([]byte("sample")),
	}
}

func TestRunLedger_RecordGet(t *testing.T) {
	ctx := context.Background()
	l := NewRunLedger(0)

	m := manifest()
	require.NoError(t, l.Record(ctx, m))

	got, err := l.Get(ctx, m.RunID)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)

	// stored copies are isolated from the caller
	m.Treatments[0] = "changed"
	got.Outcomes[0] = "changed"
	again, err := l.Get(ctx, m.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, again.Treatments)
	assert.Equal(t, []string{"Y"}, again.Outcomes)

	_, err = l.Get(ctx, core.NewRunID())
	assert.ErrorIs(t, err, run.ErrNotFound)

	assert.Error(t, l.Record(ctx, m), "duplicate run ID")
	assert.Error(t, l.Record(ctx, &run.Manifest{}), "invalid manifest")
}

func TestRunLedger_ListNewestFirstAndEvicts(t *testing.T) {
	ctx := context.Background()
	l := NewRunLedger(3)

	var ids []core.RunID
	for i := 0; i < 5; i++ {
		m := manifest()
		ids = append(ids, m.RunID)
		require.NoError(t, l.Record(ctx, m))
	}
	assert.Equal(t, 3, l.Len())

	all, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[4], all[0].RunID)
	assert.Equal(t, ids[2], all[2].RunID)

	_, err = l.Get(ctx, ids[0])
	assert.ErrorIs(t, err, run.ErrNotFound)

	two, err := l.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRunLedger_ConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	l := NewRunLedger(100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Record(ctx, manifest()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len(), fmt.Sprintf("capacity %d", l.capacity))
}
