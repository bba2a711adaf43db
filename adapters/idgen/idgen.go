// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/saasgate/ports"
)

// UUID generates random UUIDs, optionally prefixed (e.g. "err_").
type UUID struct {
	Prefix string
}

// New generates a new UUID v4.
func (g UUID) New() string {
	return g.Prefix + uuid.NewString()
}

// Ordered generates time-ordered UUID v7 identifiers, so report ids sort by
// creation time. It falls back to v4 if the clock sequence is exhausted.
type Ordered struct {
	Prefix string
}

// New generates a new UUID v7.
func (g Ordered) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return g.Prefix + uuid.NewString()
	}
	return g.Prefix + id.String()
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = Ordered{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
