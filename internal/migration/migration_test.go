package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementsAreIdempotent(t *testing.T) {
	steps := Statements()
	assert.NotEmpty(t, steps)
	for _, s := range steps {
		assert.NotEmpty(t, s.Name)
		assert.Contains(t, s.SQL, "IF NOT EXISTS", s.Name)
	}
	assert.True(t, strings.Contains(steps[0].SQL, "do_sample_runs"))
	assert.Equal(t, "1.0.0", NewRunner().Version())
}
