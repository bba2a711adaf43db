package settings

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConflictError is returned when two fragments declare the same setting.
type ConflictError struct {
	Key      string
	Existing string // fragment that declared Key first
	Incoming string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("settings schema conflict: %q declared by %q and %q", e.Key, e.Existing, e.Incoming)
}

// Schema is the merged, immutable set of setting declarations.
// The zero value is the empty schema.
type Schema struct {
	fields map[string]Field
	owners map[string]string
}

// With returns a new schema containing the fragment's fields. The receiver is
// never modified. A key already present is a *ConflictError.
func (s Schema) With(f Fragment) (Schema, error) {
	for _, key := range sortedKeys(f.Fields) {
		if _, exists := s.fields[key]; exists {
			return Schema{}, &ConflictError{Key: key, Existing: s.owners[key], Incoming: f.Name}
		}
	}

	next := Schema{
		fields: make(map[string]Field, len(s.fields)+len(f.Fields)),
		owners: make(map[string]string, len(s.fields)+len(f.Fields)),
	}
	for k, v := range s.fields {
		next.fields[k] = v
		next.owners[k] = s.owners[k]
	}
	for k, v := range f.Fields {
		next.fields[k] = v
		next.owners[k] = f.Name
	}
	return next, nil
}

// Field returns the declaration for name.
func (s Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Lookup is Field with ErrNotFound for unknown names.
func (s Schema) Lookup(name string) (Field, error) {
	f, ok := s.fields[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return f, nil
}

// Source returns the name of the fragment that declared the setting.
func (s Schema) Source(name string) string {
	return s.owners[name]
}

// Names returns the setting names in lexical order.
func (s Schema) Names() []string {
	return sortedKeys(s.fields)
}

// Len returns the number of declared settings.
func (s Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the declarations keyed by name.
func (s Schema) Fields() map[string]Field {
	out := make(map[string]Field, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Contribute adapts a fragment into a schema callback. The fragment is added
// for every scope; conflicts surface as *ConflictError. A fragment that fails
// Check is reported by every call instead of reaching the schema.
func Contribute(f Fragment) func(ctx context.Context, s Schema, scope Scope) (Schema, error) {
	checkErr := f.Check()
	return func(_ context.Context, s Schema, _ Scope) (Schema, error) {
		if checkErr != nil {
			return Schema{}, checkErr
		}
		return s.With(f)
	}
}

// ParseFragment decodes a YAML fragment document and checks its fields.
//
//	name: billing
//	fields:
//	  invoice_language:
//	    type: enum
//	    storage: organization_settings
//	    values: [en, fr]
func ParseFragment(data []byte) (Fragment, error) {
	var f Fragment
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fragment{}, fmt.Errorf("parse fragment: %w", err)
	}
	for name, field := range f.Fields {
		field.Default = normalizeYAML(field.Default)
		for i, c := range field.Constraints {
			field.Constraints[i].Value = normalizeYAML(c.Value)
		}
		f.Fields[name] = field
	}
	if err := f.Check(); err != nil {
		return Fragment{}, err
	}
	return f, nil
}

// normalizeYAML turns yaml.v3's int into int64 so fragment defaults compare
// equal to validated values.
func normalizeYAML(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe renders a one-line summary of the field for CLI output.
func (f Field) Describe() string {
	var b strings.Builder
	b.WriteString(string(f.Type))
	if len(f.Values) > 0 {
		b.WriteString("(" + strings.Join(f.Values, "|") + ")")
	}
	b.WriteString(" @" + string(f.Storage))
	if f.Default != nil {
		fmt.Fprintf(&b, " default=%v", f.Default)
	}
	if f.Sensitive {
		b.WriteString(" sensitive")
	}
	return b.String()
}
