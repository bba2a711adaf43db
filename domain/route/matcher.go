package route

import "fmt"

// Match contains information about a successful match.
type Match struct {
	Name    string
	Pattern string
	Params  map[string]string // Placeholder bindings (e.g., [lang] -> "fr")
}

type namedPattern struct {
	name    string
	pattern Pattern
}

// Matcher tries named patterns in registration order.
// Build it before serving; it is safe for concurrent Match calls afterwards.
type Matcher struct {
	patterns []namedPattern
}

// NewMatcher returns an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Add parses pattern and appends it under name. Names must be unique.
func (m *Matcher) Add(name, pattern string) error {
	if name == "" {
		return fmt.Errorf("%w: empty route name for %q", ErrInvalidPattern, pattern)
	}
	for _, np := range m.patterns {
		if np.name == name {
			return fmt.Errorf("%w: duplicate route name %q", ErrInvalidPattern, name)
		}
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return fmt.Errorf("route %q: %w", name, err)
	}
	m.patterns = append(m.patterns, namedPattern{name: name, pattern: p})
	return nil
}

// Match returns the first pattern matching path.
func (m *Matcher) Match(path string) (Match, bool) {
	for _, np := range m.patterns {
		if params, ok := np.pattern.Match(path); ok {
			return Match{Name: np.name, Pattern: np.pattern.String(), Params: params}, true
		}
	}
	return Match{}, false
}

// Names returns the registered route names in order.
func (m *Matcher) Names() []string {
	names := make([]string, len(m.patterns))
	for i, np := range m.patterns {
		names[i] = np.name
	}
	return names
}
