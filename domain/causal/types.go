package causal

import (
	"fmt"
	"sort"
	"strings"

	"gocausal/domain/core"
)

// TreatmentSpec names the columns subject to intervention
type TreatmentSpec []string

// OutcomeSpec names the measured effect columns
type OutcomeSpec []string

// NewTreatmentSpec de-duplicates names while keeping their order
func NewTreatmentSpec(names ...string) TreatmentSpec { return TreatmentSpec(dedupe(names)) }

// NewOutcomeSpec de-duplicates names while keeping their order
func NewOutcomeSpec(names ...string) OutcomeSpec { return OutcomeSpec(dedupe(names)) }

// Contains reports whether name is a treatment
func (t TreatmentSpec) Contains(name string) bool { return contains(t, name) }

// Contains reports whether name is an outcome
func (o OutcomeSpec) Contains(name string) bool { return contains(o, name) }

// ConfounderSet is the backdoor adjustment set produced by identification.
// It is immutable: Names always returns a copy.
type ConfounderSet struct {
	names []string
}

// NewConfounderSet builds a set from names, sorted and de-duplicated
func NewConfounderSet(names ...string) ConfounderSet {
	out := dedupe(names)
	sort.Strings(out)
	return ConfounderSet{names: out}
}

// Names returns the confounder column names
func (c ConfounderSet) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of confounders
func (c ConfounderSet) Len() int { return len(c.names) }

// Contains reports whether name is in the set
func (c ConfounderSet) Contains(name string) bool { return contains(c.names, name) }

func (c ConfounderSet) String() string {
	return "{" + strings.Join(c.names, ", ") + "}"
}

type interventionKind int

const (
	interventionEmpty interventionKind = iota
	interventionKeep
	interventionScalar
	interventionPerUnit
)

// Intervention is the value a do-operation assigns to the treatments.
// The zero value is empty and is rejected unless the sampler keeps original treatment.
type Intervention struct {
	kind    interventionKind
	scalar  map[string]float64
	perUnit map[string][]float64
}

// KeepOriginal propagates each unit's observed treatment unchanged
func KeepOriginal() Intervention {
	return Intervention{kind: interventionKeep}
}

// Assign broadcasts one value to the single treatment column
func Assign(value float64) Intervention {
	return Intervention{kind: interventionScalar, scalar: map[string]float64{"": value}}
}

// AssignEach broadcasts one value per treatment column
func AssignEach(values map[string]float64) Intervention {
	if len(values) == 0 {
		return Intervention{}
	}
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Intervention{kind: interventionScalar, scalar: cp}
}

// AssignPerUnit assigns one value per row for each treatment column
func AssignPerUnit(values map[string][]float64) Intervention {
	if len(values) == 0 {
		return Intervention{}
	}
	cp := make(map[string][]float64, len(values))
	for k, v := range values {
		cp[k] = append([]float64(nil), v...)
	}
	return Intervention{kind: interventionPerUnit, perUnit: cp}
}

// IsEmpty reports whether no intervention was supplied
func (iv Intervention) IsEmpty() bool { return iv.kind == interventionEmpty }

// KeepsOriginal reports whether the intervention propagates observed treatment
func (iv Intervention) KeepsOriginal() bool { return iv.kind == interventionKeep }

// IsPerUnit reports whether values differ per row
func (iv Intervention) IsPerUnit() bool { return iv.kind == interventionPerUnit }

// Validate checks the intervention against the treatment set and row count
func (iv Intervention) Validate(treatments TreatmentSpec, rows int) error {
	switch iv.kind {
	case interventionEmpty, interventionKeep:
		return nil
	case interventionScalar:
		if _, single := iv.scalar[""]; single {
			if len(treatments) != 1 {
				return core.NewInterventionError(fmt.Sprintf("a single value needs exactly one treatment, have %d", len(treatments)))
			}
			return nil
		}
		return checkNames(treatments, keys(iv.scalar))
	case interventionPerUnit:
		if err := checkNames(treatments, perUnitKeys(iv.perUnit)); err != nil {
			return err
		}
		for name, values := range iv.perUnit {
			if len(values) != rows {
				return core.NewInterventionError(fmt.Sprintf("treatment %q has %d values for %d rows", name, len(values), rows))
			}
		}
	}
	return nil
}

// Values resolves the assignment for one treatment over rows rows.
// It returns nil for empty and keep-original interventions.
func (iv Intervention) Values(treatment string, treatments TreatmentSpec, rows int) []float64 {
	switch iv.kind {
	case interventionScalar:
		v, ok := iv.scalar[treatment]
		if !ok && len(treatments) == 1 {
			v, ok = iv.scalar[""]
		}
		if !ok {
			return nil
		}
		out := make([]float64, rows)
		for i := range out {
			out[i] = v
		}
		return out
	case interventionPerUnit:
		return append([]float64(nil), iv.perUnit[treatment]...)
	}
	return nil
}

func (iv Intervention) String() string {
	switch iv.kind {
	case interventionKeep:
		return "keep-original"
	case interventionScalar:
		if v, ok := iv.scalar[""]; ok {
			return fmt.Sprintf("do(%v)", v)
		}
		parts := make([]string, 0, len(iv.scalar))
		for _, k := range keys(iv.scalar) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, iv.scalar[k]))
		}
		return "do(" + strings.Join(parts, ", ") + ")"
	case interventionPerUnit:
		return fmt.Sprintf("do(per-unit %v)", perUnitKeys(iv.perUnit))
	}
	return "empty"
}

// Fingerprint identifies the intervention's kind and every assigned value
func (iv Intervention) Fingerprint() core.Hash {
	var h core.Hasher
	h.WriteString(fmt.Sprint(int(iv.kind)))
	for _, k := range keys(iv.scalar) {
		h.WriteString(k)
		h.WriteFloats([]float64{iv.scalar[k]})
	}
	for _, k := range perUnitKeys(iv.perUnit) {
		h.WriteString(k)
		h.WriteFloats(iv.perUnit[k])
	}
	return h.Sum()
}

func checkNames(treatments TreatmentSpec, names []string) error {
	if len(names) != len(treatments) {
		return core.NewInterventionError(fmt.Sprintf("assigns %v, treatments are %v", names, []string(treatments)))
	}
	for _, n := range names {
		if !treatments.Contains(n) {
			return core.NewInterventionError(fmt.Sprintf("%q is not a treatment", n))
		}
	}
	return nil
}

func keys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func perUnitKeys(m map[string][]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
