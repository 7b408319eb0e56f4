// Package rng provides deterministic random streams keyed by run, stage and key.
package rng

import (
	"context"
	"math/rand/v2"

	"gocausal/ports"
)

// Adapter implements ports.RNGPort on PCG streams
type Adapter struct{}

var _ ports.RNGPort = (*Adapter)(nil)

// New creates the adapter
func New() *Adapter { return &Adapter{} }

// SeededStream creates a deterministic generator for a named operation.
// The name selects the PCG stream, so equal seeds under different names do
// not collide.
func (a *Adapter) SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(seed, hashString(name))), nil
}

// Stream derives the generator for one unit of work. Identical
// runID/stage/key/baseSeed always yield the identical sequence.
func (a *Adapter) Stream(ctx context.Context, runID, stageName, key string, baseSeed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := baseSeed
	if runID != "" {
		seed = mix(seed, hashString(runID))
	}
	if stageName != "" {
		seed = mix(seed, hashString(stageName))
	}
	if key != "" {
		seed = mix(seed, hashString(key))
	}
	return rand.New(rand.NewPCG(seed, hashString(stageName+"/"+key))), nil
}

// hashString is 64-bit djb2
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

// mix is the splitmix64 finalizer over a+b
func mix(a, b uint64) uint64 {
	z := a + b + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
