package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// VariableType defines how a column's values are interpreted
type VariableType string

const (
	TypeContinuous  VariableType = "continuous"
	TypeBinary      VariableType = "binary"
	TypeCategorical VariableType = "categorical"
)

// ParseVariableType accepts the canonical names plus the short forms used in job files
func ParseVariableType(s string) (VariableType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continuous", "c", "numeric":
		return TypeContinuous, nil
	case "binary", "b", "bool", "boolean":
		return TypeBinary, nil
	case "categorical", "d", "discrete", "category":
		return TypeCategorical, nil
	}
	return "", fmt.Errorf("unknown variable type %q", s)
}

// IsDiscrete reports whether the type has a finite set of levels
func (t VariableType) IsDiscrete() bool {
	return t == TypeBinary || t == TypeCategorical
}

// Valid reports whether t is one of the known types
func (t VariableType) Valid() bool {
	switch t {
	case TypeContinuous, TypeBinary, TypeCategorical:
		return true
	}
	return false
}

// VariableTypes maps column names to their declared types
type VariableTypes map[string]VariableType

// Clone returns an independent copy
func (vt VariableTypes) Clone() VariableTypes {
	out := make(VariableTypes, len(vt))
	for k, v := range vt {
		out[k] = v
	}
	return out
}

// Column is a single named, typed column
type Column struct {
	Name   string
	Type   VariableType
	Values []float64

	// Levels optionally labels categorical codes: code i is Levels[i]
	Levels []string
}

// checkValues verifies that values are consistent with the declared type
func checkValues(typ VariableType, values []float64) error {
	distinct := make(map[float64]struct{})
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("row %d is not finite", i)
		}
		switch typ {
		case TypeBinary:
			if v != 0 && v != 1 {
				distinct[v] = struct{}{}
			}
		case TypeCategorical:
			if v != math.Trunc(v) {
				return fmt.Errorf("row %d has non-integral level code %v", i, v)
			}
		}
	}
	if typ == TypeBinary && len(distinct) > 0 {
		return fmt.Errorf("binary column has values outside {0,1}")
	}
	return nil
}

func distinctSorted(values []float64) []float64 {
	seen := make(map[float64]struct{})
	out := make([]float64, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
