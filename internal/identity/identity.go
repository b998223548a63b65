// Package identity produces record identifiers and session tokens behind a
// small interface so callers never depend on a particular generation scheme.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator yields identifiers that are collision-free within a process,
// including for calls issued in the same instant.
type Generator interface {
	NewID() string
	NewToken() string
}

// RandomGenerator issues UUID identifiers and longer random hex tokens.
type RandomGenerator struct{}

// NewRandomGenerator returns the production generator.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// NewID returns a fresh UUID string.
func (*RandomGenerator) NewID() string {
	return uuid.NewString()
}

// NewToken returns a 64-character random hex token for session use.
func (*RandomGenerator) NewToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read failing means the platform entropy source is broken;
		// fall back to a UUID rather than returning an empty token.
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}

// SequenceGenerator yields deterministic prefixed identifiers for tests.
type SequenceGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequenceGenerator constructs a generator with the given prefix. When
// prefix is empty, "id" is used.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next identifier in the sequence.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.counter.Add(1))
}

// NewToken returns the next token in the sequence.
func (g *SequenceGenerator) NewToken() string {
	return fmt.Sprintf("%s-token-%d", g.prefix, g.counter.Add(1))
}
