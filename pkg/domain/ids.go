package domain

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator allocates unique identifiers for new entities.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID() string { return f() }

// UUIDGenerator produces random version 4 UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string { return uuid.NewString() }

// SequenceGenerator yields prefix-1, prefix-2, ... and is safe for concurrent use.
type SequenceGenerator struct {
	Prefix string
	next   atomic.Uint64
}

// NewSequenceGenerator returns a deterministic generator for tests and fixtures.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

// NewID implements IDGenerator.
func (g *SequenceGenerator) NewID() string {
	n := g.next.Add(1)
	if g.Prefix == "" {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s-%d", g.Prefix, n)
}

// StaticID always returns the same identifier. It binds a new person to the
// subject resolved from a verified token.
type StaticID string

// NewID implements IDGenerator.
func (s StaticID) NewID() string { return string(s) }
