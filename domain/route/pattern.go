// Package route matches request paths against patterns with bracketed
// placeholder segments such as /auth/[lang]/callback.
package route

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned for malformed patterns.
var ErrInvalidPattern = errors.New("invalid route pattern")

type segment struct {
	literal     string
	placeholder string // Non-empty for [name] segments
}

// Pattern is a parsed route pattern. Segments are split on "/", so a
// leading slash yields an empty first segment that must match literally.
type Pattern struct {
	raw      string
	segments []segment
}

// ParsePattern parses a pattern. A segment written as [name] binds the
// path segment at that position. Placeholder names must be non-empty and
// unique within the pattern; brackets anywhere else are rejected.
func ParsePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	parts := strings.Split(raw, "/")
	segs := make([]segment, 0, len(parts))
	seen := make(map[string]bool)

	for _, part := range parts {
		if strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]") {
			name := part[1 : len(part)-1]
			if name == "" || strings.ContainsAny(name, "[]") {
				return Pattern{}, fmt.Errorf("%w: bad placeholder %q in %q", ErrInvalidPattern, part, raw)
			}
			if seen[name] {
				return Pattern{}, fmt.Errorf("%w: duplicate placeholder %q in %q", ErrInvalidPattern, name, raw)
			}
			seen[name] = true
			segs = append(segs, segment{placeholder: name})
			continue
		}
		if strings.ContainsAny(part, "[]") {
			return Pattern{}, fmt.Errorf("%w: stray bracket in segment %q of %q", ErrInvalidPattern, part, raw)
		}
		segs = append(segs, segment{literal: part})
	}

	return Pattern{raw: raw, segments: segs}, nil
}

// String returns the pattern as written.
func (p Pattern) String() string { return p.raw }

// Placeholders returns the placeholder names in order of appearance.
func (p Pattern) Placeholders() []string {
	var names []string
	for _, s := range p.segments {
		if s.placeholder != "" {
			names = append(names, s.placeholder)
		}
	}
	return names
}

// Match reports whether path has the same number of segments as the pattern
// and every literal segment is equal (case-sensitive). Placeholders match any
// segment and bind its value. The query string and fragment are ignored.
// A mismatch returns nil and false; it is not an error.
func (p Pattern) Match(path string) (map[string]string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	parts := strings.Split(path, "/")
	if len(parts) != len(p.segments) {
		return nil, false
	}

	params := make(map[string]string)
	for i, s := range p.segments {
		if s.placeholder != "" {
			params[s.placeholder] = parts[i]
			continue
		}
		if parts[i] != s.literal {
			return nil, false
		}
	}
	return params, true
}
