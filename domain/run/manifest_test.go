package run

import (
	"testing"

	"gocausal/domain/core"

	"github.com/stretchr/testify/assert"
)

func validManifest() *Manifest {
	return &Manifest{
		RunID:             core.NewRunID(),
		Strategy:          "weighting",
		Treatments:        []string{"D"},
		Outcomes:          []string{"Y"},
		Confounders:       []string{"Z"},
		Intervention:      "do(0)",
		InterventionHash:  core.NewHash([]byte("do(0)")),
		Seed:              42,
		SampleSize:        100,
		Policy:            "clip",
		InputRows:         100,
		OutputRows:        100,
		DataFingerprint:   core.NewHash([]byte("data")),
		SampleFingerprint: core.NewHash([]byte("sample")),
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Manifest)
		wantErr bool
	}{
		{"valid", func(m *Manifest) {}, false},
		{"no run id", func(m *Manifest) { m.RunID = "" }, true},
		{"no treatments", func(m *Manifest) { m.Treatments = nil }, true},
		{"no outcomes", func(m *Manifest) { m.Outcomes = nil }, true},
		{"no sample fingerprint", func(m *Manifest) { m.SampleFingerprint = "" }, true},
		{"negative rows", func(m *Manifest) { m.OutputRows = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManifestReplayKey(t *testing.T) {
	a := validManifest()
	b := validManifest()
	// run identity and outputs do not enter the key
	b.RunID = core.NewRunID()
	b.SampleFingerprint = core.NewHash([]byte("other"))
	b.RuntimeMs = 99
	assert.Equal(t, a.ReplayKey(), b.ReplayKey())

	b.Seed = 43
	assert.NotEqual(t, a.ReplayKey(), b.ReplayKey())

	c := validManifest()
	c.Treatments, c.Outcomes = []string{"D", "Y"}, nil
	d := validManifest()
	d.Treatments, d.Outcomes = []string{"D"}, []string{"Y"}
	assert.NotEqual(t, c.ReplayKey(), d.ReplayKey())
}
