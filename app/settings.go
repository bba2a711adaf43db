// Package app provides application services that orchestrate domain logic.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/ports"
)

// Envelope markers prefixed to every stored value.
const (
	envelopePlain  byte = 0x00
	envelopeSealed byte = 0x01
)

// SettingsObserver receives one notification per settings read or write.
type SettingsObserver interface {
	SettingsOperation(op, backend string, err error)
}

// Value is a resolved setting.
type Value struct {
	Name      string           `json:"name"`
	Value     any              `json:"value"`
	Default   bool             `json:"default"` // No stored value; Value is the declared default
	Storage   settings.Backend `json:"storage"`
	Sensitive bool             `json:"sensitive,omitempty"`
}

// Masked returns a copy safe to show to clients.
func (v Value) Masked() Value {
	if v.Sensitive && v.Value != nil {
		v.Value = "********"
	}
	return v
}

// SettingsService resolves the settings schema through the server registry
// and reads and writes values through the backend each field names.
type SettingsService struct {
	backends ports.SettingsBackends
	cipher   ports.Cipher
	observer SettingsObserver
	logger   zerolog.Logger
}

// NewSettingsService creates a new settings service. cipher may be nil, in
// which case sensitive values are stored unsealed.
func NewSettingsService(backends ports.SettingsBackends, cipher ports.Cipher, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		backends: backends,
		cipher:   cipher,
		logger:   logger,
	}
}

// WithObserver sets the operation observer.
func (s *SettingsService) WithObserver(o SettingsObserver) *SettingsService {
	s.observer = o
	return s
}

// ResolveSchema applies server_get_settings_schema starting from the empty
// schema. A duplicate key fails with an error wrapping *settings.ConflictError.
func (s *SettingsService) ResolveSchema(ctx context.Context, reg *filter.Registry[filter.Server], scope settings.Scope) (settings.Schema, error) {
	schema, err := extension.ServerGetSettingsSchema.Apply(ctx, reg, settings.Schema{}, scope)
	if err != nil {
		return settings.Schema{}, fmt.Errorf("resolve settings schema: %w", err)
	}
	return schema, nil
}

// GetValue returns the stored value of name, or its default when nothing is stored.
func (s *SettingsService) GetValue(ctx context.Context, reg *filter.Registry[filter.Server], scope settings.Scope, name string) (Value, error) {
	schema, err := s.ResolveSchema(ctx, reg, scope)
	if err != nil {
		return Value{}, err
	}
	return s.get(ctx, schema, scope, name)
}

// SetValue validates value against the schema and stores it in the field's
// backend. A nil value deletes the stored value, restoring the default.
func (s *SettingsService) SetValue(ctx context.Context, reg *filter.Registry[filter.Server], scope settings.Scope, name string, value any) (Value, error) {
	schema, err := s.ResolveSchema(ctx, reg, scope)
	if err != nil {
		return Value{}, err
	}
	field, err := schema.Lookup(name)
	if err != nil {
		return Value{}, err
	}

	v, err := s.set(ctx, field, scope, name, value)
	s.record("set", field.Storage, err)
	if err != nil {
		return Value{}, err
	}

	s.logger.Debug().
		Str("setting", name).
		Str("storage", string(field.Storage)).
		Bool("reset", value == nil).
		Msg("setting updated")
	return v, nil
}

// Values returns every setting visible to scope. Fields whose backend has no
// owner in scope are skipped.
func (s *SettingsService) Values(ctx context.Context, reg *filter.Registry[filter.Server], scope settings.Scope) ([]Value, error) {
	schema, err := s.ResolveSchema(ctx, reg, scope)
	if err != nil {
		return nil, err
	}

	var values []Value
	for _, name := range schema.Names() {
		v, err := s.get(ctx, schema, scope, name)
		if errors.Is(err, settings.ErrMissingOwner) {
			continue
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// StoredKey is a stored setting that the schema does not declare.
type StoredKey struct {
	Name      string
	Storage   settings.Backend
	UpdatedAt time.Time
}

// Undeclared lists the values stored for the owners in scope whose names the
// current schema no longer declares, user settings first, each in key order.
// Backends without an owner in scope are skipped.
func (s *SettingsService) Undeclared(ctx context.Context, reg *filter.Registry[filter.Server], scope settings.Scope) ([]StoredKey, error) {
	schema, err := s.ResolveSchema(ctx, reg, scope)
	if err != nil {
		return nil, err
	}

	var keys []StoredKey
	for _, backend := range []settings.Backend{settings.UserSettings, settings.OrganizationSettings} {
		owner, err := scope.Owner(backend)
		if errors.Is(err, settings.ErrMissingOwner) {
			continue
		}
		store, err := s.backends.Store(backend)
		if err != nil {
			return nil, err
		}

		stored, err := store.List(ctx, owner)
		s.record("list", backend, err)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", backend, err)
		}
		for _, sv := range stored {
			if _, declared := schema.Field(sv.Key); !declared {
				keys = append(keys, StoredKey{Name: sv.Key, Storage: backend, UpdatedAt: sv.UpdatedAt})
			}
		}
	}
	return keys, nil
}

func (s *SettingsService) get(ctx context.Context, schema settings.Schema, scope settings.Scope, name string) (Value, error) {
	field, err := schema.Lookup(name)
	if err != nil {
		return Value{}, err
	}

	v, err := s.load(ctx, field, scope, name)
	s.record("get", field.Storage, err)
	return v, err
}

func (s *SettingsService) load(ctx context.Context, field settings.Field, scope settings.Scope, name string) (Value, error) {
	owner, err := scope.Owner(field.Storage)
	if err != nil {
		return Value{}, err
	}
	store, err := s.backends.Store(field.Storage)
	if err != nil {
		return Value{}, err
	}

	raw, found, err := store.Get(ctx, owner, name)
	if err != nil {
		return Value{}, fmt.Errorf("get %q: %w", name, err)
	}
	if !found {
		return defaultValue(field, name), nil
	}

	decoded, err := s.decode(raw)
	if err != nil {
		return Value{}, fmt.Errorf("decode %q: %w", name, err)
	}
	v, err := field.Validate(name, decoded)
	if err != nil {
		// Stored under an older declaration; the default applies until rewritten.
		s.logger.Warn().Err(err).Str("setting", name).Msg("stored value no longer valid")
		return defaultValue(field, name), nil
	}
	return Value{Name: name, Value: v, Storage: field.Storage, Sensitive: field.Sensitive}, nil
}

func (s *SettingsService) set(ctx context.Context, field settings.Field, scope settings.Scope, name string, value any) (Value, error) {
	owner, err := scope.Owner(field.Storage)
	if err != nil {
		return Value{}, err
	}
	store, err := s.backends.Store(field.Storage)
	if err != nil {
		return Value{}, err
	}

	if value == nil {
		if err := store.Delete(ctx, owner, name); err != nil {
			return Value{}, fmt.Errorf("delete %q: %w", name, err)
		}
		return defaultValue(field, name), nil
	}

	v, err := field.Validate(name, value)
	if err != nil {
		return Value{}, err
	}
	raw, err := s.encode(v, field.Sensitive)
	if err != nil {
		return Value{}, fmt.Errorf("encode %q: %w", name, err)
	}
	if err := store.Set(ctx, owner, name, raw); err != nil {
		return Value{}, fmt.Errorf("set %q: %w", name, err)
	}
	return Value{Name: name, Value: v, Storage: field.Storage, Sensitive: field.Sensitive}, nil
}

func (s *SettingsService) encode(v any, sensitive bool) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !sensitive || s.cipher == nil {
		return append([]byte{envelopePlain}, payload...), nil
	}
	sealed, err := s.cipher.Encrypt(payload)
	if err != nil {
		return nil, err
	}
	return append([]byte{envelopeSealed}, sealed...), nil
}

func (s *SettingsService) decode(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}
	payload := raw[1:]
	switch raw[0] {
	case envelopePlain:
	case envelopeSealed:
		if s.cipher == nil {
			return nil, errors.New("sealed value but no encryption key configured")
		}
		opened, err := s.cipher.Decrypt(payload)
		if err != nil {
			return nil, err
		}
		payload = opened
	default:
		return nil, fmt.Errorf("unknown envelope 0x%02x", raw[0])
	}

	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.UseLooseInterfaceDecoding(true)
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SettingsService) record(op string, backend settings.Backend, err error) {
	if s.observer != nil {
		s.observer.SettingsOperation(op, string(backend), err)
	}
}

func defaultValue(field settings.Field, name string) Value {
	v := Value{Name: name, Default: true, Storage: field.Storage, Sensitive: field.Sensitive}
	if field.Default != nil {
		if canonical, err := field.Validate(name, field.Default); err == nil {
			v.Value = canonical
		}
	}
	return v
}
