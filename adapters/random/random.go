// Package random provides Random implementations.
package random

import (
	"crypto/rand"
	"sync"

	"github.com/artpar/saasgate/ports"
)

// Real uses crypto/rand for secure randomness.
type Real struct{}

// Bytes generates n cryptographically secure random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Fake provides deterministic randomness for testing.
type Fake struct {
	mu      sync.Mutex
	counter int
	values  [][]byte
}

// NewFake creates a fake random source. Preset values are returned first,
// truncated or zero-padded to the requested length.
func NewFake(values ...[]byte) *Fake {
	return &Fake{values: values}
}

// Bytes returns the next preset value or deterministic counter bytes.
func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := make([]byte, n)
	if len(f.values) > 0 {
		copy(b, f.values[0])
		f.values = f.values[1:]
		return b, nil
	}

	f.counter++
	for i := range b {
		b[i] = byte((f.counter + i) % 256)
	}
	return b, nil
}

var (
	_ ports.Random = Real{}
	_ ports.Random = (*Fake)(nil)
)
