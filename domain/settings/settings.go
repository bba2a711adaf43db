// Package settings provides value types for the settings schema.
// Feature modules contribute fragments; the merged schema decides how each
// setting is validated and which storage backend holds it.
package settings

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned for setting names absent from the schema.
	ErrNotFound = errors.New("setting not found")

	// ErrUnknownBackend is returned for storage identifiers without a store.
	ErrUnknownBackend = errors.New("unknown settings backend")

	// ErrMissingOwner is returned when the scope lacks the owner a backend needs.
	ErrMissingOwner = errors.New("missing settings owner")
)

// Backend identifies a storage backend.
type Backend string

const (
	// UserSettings stores values per user.
	UserSettings Backend = "user_settings"

	// OrganizationSettings stores values per organization.
	OrganizationSettings Backend = "organization_settings"
)

// Scope identifies the owners a request may read and write settings for.
type Scope struct {
	UserID         string
	OrganizationID string
}

// Owner returns the owner id the backend stores values under.
func (s Scope) Owner(b Backend) (string, error) {
	var owner string
	switch b {
	case UserSettings:
		owner = s.UserID
	case OrganizationSettings:
		owner = s.OrganizationID
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
	if owner == "" {
		return "", &OwnerError{Backend: b}
	}
	return owner, nil
}

// OwnerError names the backend whose owner is missing from a scope.
// It matches ErrMissingOwner with errors.Is.
type OwnerError struct {
	Backend Backend
}

func (e *OwnerError) Error() string {
	return fmt.Sprintf("%s: %s requires an owner id", ErrMissingOwner, e.Backend)
}

func (e *OwnerError) Unwrap() error {
	return ErrMissingOwner
}

// FieldType is the value type of a setting.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeEnum   FieldType = "enum" // Requires Values
	TypeEmail  FieldType = "email"
	TypeURL    FieldType = "url"
	TypeJSON   FieldType = "json"
)

// Field declares one setting.
type Field struct {
	Type        FieldType    `yaml:"type" json:"type"`
	Storage     Backend      `yaml:"storage" json:"storage"`
	Values      []string     `yaml:"values,omitempty" json:"values,omitempty"`
	Constraints []Constraint `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Default     any          `yaml:"default,omitempty" json:"default,omitempty"`
	Sensitive   bool         `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
}

// Check reports declaration mistakes: unknown type or backend, an enum
// without values, a malformed constraint, or a default that fails its own
// validation.
func (f Field) Check(name string) error {
	switch f.Type {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeEmail, TypeURL, TypeJSON:
	case TypeEnum:
		if len(f.Values) == 0 {
			return fmt.Errorf("setting %q: enum requires values", name)
		}
	default:
		return fmt.Errorf("setting %q: unknown type %q", name, f.Type)
	}

	switch f.Storage {
	case UserSettings, OrganizationSettings:
	default:
		return fmt.Errorf("setting %q: %w: %q", name, ErrUnknownBackend, f.Storage)
	}

	for _, c := range f.Constraints {
		if err := CheckConstraint(c); err != nil {
			return fmt.Errorf("setting %q: %w", name, err)
		}
	}

	if f.Default != nil {
		if _, err := f.Validate(name, f.Default); err != nil {
			return fmt.Errorf("setting %q: invalid default: %w", name, err)
		}
	}
	return nil
}

// Validate converts value to the field's canonical Go type and checks every
// constraint. Canonical types: string, int64, float64, bool, or the value
// itself for json fields.
func (f Field) Validate(name string, value any) (any, error) {
	result := &ValidationError{Setting: name}
	if value == nil {
		result.add(ConstraintError{Field: name, Constraint: "required", Message: "value is required"})
		return nil, result
	}

	v, msg := f.normalize(value)
	if msg != "" {
		result.add(ConstraintError{Field: name, Constraint: "type", Value: value, Message: msg})
		return nil, result
	}

	for _, c := range f.Constraints {
		if ce := ValidateConstraint(name, v, c); ce != nil {
			result.add(*ce)
		}
	}
	if len(result.Errors) > 0 {
		return nil, result
	}
	return v, nil
}

func (f Field) normalize(value any) (any, string) {
	switch f.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Sprintf("expected string, got %T", value)
		}
		return s, ""

	case TypeEnum:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Sprintf("expected string, got %T", value)
		}
		for _, allowed := range f.Values {
			if s == allowed {
				return s, ""
			}
		}
		return nil, fmt.Sprintf("must be one of: %s", strings.Join(f.Values, ", "))

	case TypeEmail:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Sprintf("expected string, got %T", value)
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return nil, "must be a valid email address"
		}
		return s, ""

	case TypeURL:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Sprintf("expected string, got %T", value)
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, "must be an absolute URL"
		}
		return s, ""

	case TypeInt:
		n, ok := toInt64(value)
		if !ok {
			return nil, fmt.Sprintf("expected integer, got %v", value)
		}
		return n, ""

	case TypeFloat:
		if _, isString := value.(string); isString {
			return nil, "expected number, got string"
		}
		n, err := toFloat64(value)
		if err != nil {
			return nil, fmt.Sprintf("expected number, got %T", value)
		}
		return n, ""

	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Sprintf("expected bool, got %T", value)
		}
		return b, ""

	case TypeJSON:
		return plainNumbers(value), ""

	default:
		return nil, fmt.Sprintf("unknown type %q", f.Type)
	}
}

// Fragment is a named set of fields contributed by one feature module.
type Fragment struct {
	Name   string           `yaml:"name"`
	Fields map[string]Field `yaml:"fields"`
}

// Check validates every field of the fragment.
func (f Fragment) Check() error {
	if f.Name == "" {
		return errors.New("fragment name is required")
	}
	for _, name := range sortedKeys(f.Fields) {
		if name == "" {
			return fmt.Errorf("fragment %q: empty setting name", f.Name)
		}
		if err := f.Fields[name].Check(name); err != nil {
			return fmt.Errorf("fragment %q: %w", f.Name, err)
		}
	}
	return nil
}
