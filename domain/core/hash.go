package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Hasher accumulates labelled float columns into a single Hash.
// Values are written bit-exact, so -0 and 0 hash differently.
type Hasher struct {
	buf []byte
}

// WriteString appends a length-prefixed string
func (h *Hasher) WriteString(s string) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, uint64(len(s)))
	h.buf = append(h.buf, s...)
}

// WriteFloats appends a length-prefixed float column
func (h *Hasher) WriteFloats(values []float64) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, uint64(len(values)))
	for _, v := range values {
		h.buf = binary.LittleEndian.AppendUint64(h.buf, math.Float64bits(v))
	}
}

// Sum returns the hash of everything written so far
func (h *Hasher) Sum() Hash {
	return NewHash(h.buf)
}
