// Package random provides seed generation for per-session randomness.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Source hands out independent generators. A non-zero base makes the
// sequence of generators reproducible.
type Source struct {
	base uint64
	next uint64
}

func NewSource(base uint64) *Source {
	return &Source{base: base}
}

// Rand returns a new generator. Not safe for concurrent use.
func (s *Source) Rand() (*rand.Rand, error) {
	if s.base != 0 {
		s.next++
		return rand.New(rand.NewPCG(s.base, s.next)), nil
	}
	a, err := NewSeed()
	if err != nil {
		return nil, err
	}
	b, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(a, b)), nil
}
