package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrSealed is returned when registering on a sealed registry.
	ErrSealed = errors.New("filter: registry sealed")

	// ErrNotSealed is returned when applying a point before the registry is sealed.
	ErrNotSealed = errors.New("filter: registry not sealed")

	// ErrInvalidEntry is returned for empty names or nil callbacks.
	ErrInvalidEntry = errors.New("filter: invalid entry")

	// ErrNilComponent is returned when a render callback yields no component.
	ErrNilComponent = errors.New("filter: render callback returned nil component")
)

// SignatureError reports two declarations of one point name with different
// callback shapes.
type SignatureError struct {
	Point string
	Want  string
	Got   string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("filter: point %q registered as %s, used as %s", e.Point, e.Want, e.Got)
}

// ChainError wraps the failure of one entry. The chain stops at that entry
// and no partial value is returned.
type ChainError struct {
	Point string
	Entry string
	Err   error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("filter: %s: entry %q: %v", e.Point, e.Entry, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}
