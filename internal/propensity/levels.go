package propensity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gocausal/domain/core"
	"gocausal/domain/dataset"
)

// LevelCodec maps joint treatment values (one value per treatment column)
// to dense level codes 0..k-1, ordered lexicographically.
type LevelCodec struct {
	treatments []string
	tuples     [][]float64
	index      map[string]int
}

// NewLevelCodec learns the observed treatment levels of ds
func NewLevelCodec(ds *dataset.Dataset, treatments []string) (*LevelCodec, error) {
	cols := make([][]float64, len(treatments))
	for j, name := range treatments {
		values, ok := ds.Column(name)
		if !ok {
			return nil, core.NewColumnNotFoundError("treatment", name)
		}
		cols[j] = values
	}

	seen := make(map[string][]float64)
	for i := 0; i < ds.RowCount(); i++ {
		tuple := make([]float64, len(cols))
		for j := range cols {
			tuple[j] = cols[j][i]
		}
		key := tupleKey(tuple)
		if _, ok := seen[key]; !ok {
			seen[key] = tuple
		}
	}

	tuples := make([][]float64, 0, len(seen))
	for _, t := range seen {
		tuples = append(tuples, t)
	}
	sort.Slice(tuples, func(a, b int) bool {
		for j := range tuples[a] {
			if tuples[a][j] != tuples[b][j] {
				return tuples[a][j] < tuples[b][j]
			}
		}
		return false
	})

	c := &LevelCodec{
		treatments: append([]string(nil), treatments...),
		tuples:     tuples,
		index:      make(map[string]int, len(tuples)),
	}
	for i, t := range tuples {
		c.index[tupleKey(t)] = i
	}
	return c, nil
}

// K returns the number of observed levels
func (c *LevelCodec) K() int { return len(c.tuples) }

// Tuple returns the treatment values of level code k
func (c *LevelCodec) Tuple(k int) []float64 {
	return append([]float64(nil), c.tuples[k]...)
}

// Code returns the level of a treatment tuple
func (c *LevelCodec) Code(tuple []float64) (int, bool) {
	k, ok := c.index[tupleKey(tuple)]
	return k, ok
}

// Encode returns the level code of every row of ds
func (c *LevelCodec) Encode(ds *dataset.Dataset) ([]int, error) {
	cols := make([][]float64, len(c.treatments))
	for j, name := range c.treatments {
		values, ok := ds.Column(name)
		if !ok {
			return nil, core.NewColumnNotFoundError("treatment", name)
		}
		cols[j] = values
	}

	codes := make([]int, ds.RowCount())
	tuple := make([]float64, len(cols))
	for i := range codes {
		for j := range cols {
			tuple[j] = cols[j][i]
		}
		k, ok := c.Code(tuple)
		if !ok {
			return nil, fmt.Errorf("row %d has unseen treatment level %v", i, tuple)
		}
		codes[i] = k
	}
	return codes, nil
}

func tupleKey(tuple []float64) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, "|")
}
