// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/saasgate/domain/settings"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Random abstracts randomness for testability.
type Random interface {
	// Bytes returns n random bytes.
	Bytes(n int) ([]byte, error)
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Cipher seals sensitive setting values at rest.
type Cipher interface {
	// Encrypt returns an opaque ciphertext for plaintext.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt reverses Encrypt. Tampered input is an error.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// -----------------------------------------------------------------------------
// Settings Ports
// -----------------------------------------------------------------------------

// StoredValue is one persisted setting.
type StoredValue struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// SettingsStore persists encoded setting values for one backend.
// Owners are user or organization ids depending on the backend.
type SettingsStore interface {
	// Get retrieves a value. A missing key returns found == false and no error.
	Get(ctx context.Context, owner, key string) (value []byte, found bool, err error)

	// Set stores or replaces a value.
	Set(ctx context.Context, owner, key string, value []byte) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, owner, key string) error

	// List returns every value stored for owner, ordered by key.
	List(ctx context.Context, owner string) ([]StoredValue, error)
}

// SettingsBackends maps backend identifiers to their stores.
type SettingsBackends map[settings.Backend]SettingsStore

// Store returns the store registered for backend.
func (b SettingsBackends) Store(backend settings.Backend) (SettingsStore, error) {
	s, ok := b[backend]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %q", settings.ErrUnknownBackend, backend)
	}
	return s, nil
}
