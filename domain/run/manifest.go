package run

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gocausal/domain/core"
)

// ErrNotFound is returned by ledgers for an unknown run ID
var ErrNotFound = errors.New("run not found")

// Manifest records what one do-sample run consumed and produced.
// Two runs with the same ReplayKey draw the same sample.
type Manifest struct {
	RunID    core.RunID `json:"run_id"`
	Strategy string     `json:"strategy"`

	Treatments  []string `json:"treatments"`
	Outcomes    []string `json:"outcomes"`
	Confounders []string `json:"confounders"`

	Intervention     string    `json:"intervention"`
	InterventionHash core.Hash `json:"intervention_hash"`
	KeepOriginal     bool      `json:"keep_original_treatment"`

	Seed       uint64 `json:"seed"`
	SampleSize int    `json:"sample_size"`
	Policy     string `json:"extreme_policy"`

	InputRows         int       `json:"input_rows"`
	OutputRows        int       `json:"output_rows"`
	DataFingerprint   core.Hash `json:"data_fingerprint"`
	SampleFingerprint core.Hash `json:"sample_fingerprint"`

	EffectiveSize float64 `json:"effective_size"`
	Clipped       int     `json:"clipped"`
	Dropped       int     `json:"dropped"`

	RuntimeMs int64     `json:"runtime_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields every ledger relies on
func (m *Manifest) Validate() error {
	switch {
	case m.RunID.IsEmpty():
		return fmt.Errorf("manifest: run ID is required")
	case len(m.Treatments) == 0:
		return fmt.Errorf("manifest %s: no treatments", m.RunID)
	case len(m.Outcomes) == 0:
		return fmt.Errorf("manifest %s: no outcomes", m.RunID)
	case m.DataFingerprint.IsEmpty() || m.SampleFingerprint.IsEmpty():
		return fmt.Errorf("manifest %s: missing fingerprint", m.RunID)
	case m.OutputRows < 0 || m.InputRows < 0:
		return fmt.Errorf("manifest %s: negative row count", m.RunID)
	}
	return nil
}

// ReplayKey hashes every input that determines the drawn sample
func (m *Manifest) ReplayKey() core.Hash {
	var h core.Hasher
	h.WriteString(m.Strategy)
	h.WriteString(m.DataFingerprint.String())
	writeNames(&h, m.Treatments)
	writeNames(&h, m.Outcomes)
	writeNames(&h, m.Confounders)
	h.WriteString(m.InterventionHash.String())
	h.WriteString(strconv.FormatBool(m.KeepOriginal))
	h.WriteString(strconv.FormatUint(m.Seed, 10))
	h.WriteString(strconv.Itoa(m.SampleSize))
	h.WriteString(m.Policy)
	return h.Sum()
}

func writeNames(h *core.Hasher, names []string) {
	h.WriteString(strconv.Itoa(len(names)))
	for _, n := range names {
		h.WriteString(n)
	}
}
