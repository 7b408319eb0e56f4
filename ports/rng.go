package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations.
// Every stochastic step (resampling, synthetic data, bootstrap draws) takes its
// source from here instead of a global generator.
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error)

	// Stream derives an independent deterministic stream for one unit of work
	// (for example draw 17 of a bootstrap run) from a base seed
	Stream(ctx context.Context, runID, stageName, key string, baseSeed uint64) (*rand.Rand, error)
}
