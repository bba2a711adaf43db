// Package filter provides typed extension points.
// Feature modules register named callbacks against a point during a setup
// phase; callers then apply the point, threading a seed value through every
// registered callback in registration order.
//
// Registries are explicit objects scoped to one execution environment:
//   - Client registries drive page rendering and live for the whole process.
//   - Server registries drive request handling and are built per request.
//
// The environment is a type parameter, so a point declared for the server
// can never be enqueued on or applied against a client registry.
package filter

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Environment identifies where a registry's callbacks run.
// Only Client and Server implement it.
type Environment interface {
	environment() string
}

// Client is the rendering environment.
type Client struct{}

func (Client) environment() string { return "client" }

// Server is the request-handling environment.
type Server struct{}

func (Server) environment() string { return "server" }

// EnvName returns the name of environment E ("client" or "server").
func EnvName[E Environment]() string {
	var e E
	return e.environment()
}

// Observer receives one notification per chain application.
// Implementations must be safe for concurrent use.
type Observer interface {
	ChainApplied(env, point string, entries int, took time.Duration, err error)
}

type kind uint8

const (
	kindTransform kind = iota + 1
	kindAsync
	kindRender
)

func (k kind) String() string {
	switch k {
	case kindTransform:
		return "transform"
	case kindAsync:
		return "async"
	case kindRender:
		return "render"
	default:
		return "unknown"
	}
}

type entry struct {
	name string
	fn   any
}

// chain holds the entries of one point. Every entry of a chain shares the
// callback type recorded when the first entry was enqueued.
type chain struct {
	kind    kind
	sig     reflect.Type
	entries []entry
}

// Registry maps point names to ordered, name-keyed callback lists.
//
// A registry has two phases. While open it accepts registrations and rejects
// applications; after Seal it serves applications and rejects registrations.
// Callers that need the registry from several goroutines must Seal it first.
type Registry[E Environment] struct {
	mu       sync.Mutex
	sealed   atomic.Bool
	points   map[string]*chain
	order    []string
	observer Observer
}

// New creates an empty, open registry.
func New[E Environment]() *Registry[E] {
	return &Registry[E]{
		points: make(map[string]*chain),
	}
}

// Registrar registers a feature's callbacks on a registry.
type Registrar[E Environment] func(r *Registry[E]) error

// Setup creates a registry, runs every registrar in order and seals it.
// The observer may be nil.
func Setup[E Environment](observer Observer, registrars ...Registrar[E]) (*Registry[E], error) {
	r := New[E]()
	if observer != nil {
		if err := r.SetObserver(observer); err != nil {
			return nil, err
		}
	}
	for i, register := range registrars {
		if register == nil {
			continue
		}
		if err := register(r); err != nil {
			return nil, fmt.Errorf("%s registrar %d: %w", EnvName[E](), i, err)
		}
	}
	r.Seal()
	return r, nil
}

// SetObserver installs the chain observer. It must be called before Seal.
func (r *Registry[E]) SetObserver(o Observer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot set observer", ErrSealed)
	}
	r.observer = o
	return nil
}

// Seal ends the registration phase. Sealing twice is a no-op.
func (r *Registry[E]) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// Sealed reports whether the registry serves applications.
func (r *Registry[E]) Sealed() bool {
	return r.sealed.Load()
}

// Entries returns the entry names registered for a point, in chain order.
func (r *Registry[E]) Entries(point string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.points[point]
	if !ok {
		return nil
	}
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Points returns the names of points with at least one entry,
// in the order they were first registered.
func (r *Registry[E]) Points() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	points := make([]string, len(r.order))
	copy(points, r.order)
	return points
}

func (r *Registry[E]) enqueue(point string, k kind, name string, fn any) error {
	if point == "" {
		return fmt.Errorf("%w: empty point name", ErrInvalidEntry)
	}
	if name == "" {
		return fmt.Errorf("%w: empty entry name on %q", ErrInvalidEntry, point)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q on %q", ErrSealed, name, point)
	}

	sig := reflect.TypeOf(fn)
	c, ok := r.points[point]
	if !ok {
		c = &chain{kind: k, sig: sig}
		r.points[point] = c
		r.order = append(r.order, point)
	} else if c.kind != k || c.sig != sig {
		return &SignatureError{Point: point, Want: c.describe(), Got: describe(k, sig)}
	}

	// Same name replaces in place so re-running registration never grows the chain.
	for i := range c.entries {
		if c.entries[i].name == name {
			c.entries[i].fn = fn
			return nil
		}
	}
	c.entries = append(c.entries, entry{name: name, fn: fn})
	return nil
}

// lookup returns the entries to apply for a point. The returned slice must
// not be modified. Entries are read without the lock: every write happened
// before the sealed flag was stored.
func (r *Registry[E]) lookup(point string, k kind, sig reflect.Type) ([]entry, error) {
	if !r.sealed.Load() {
		return nil, fmt.Errorf("%w: apply %q", ErrNotSealed, point)
	}
	c, ok := r.points[point]
	if !ok {
		return nil, nil
	}
	if c.kind != k || c.sig != sig {
		return nil, &SignatureError{Point: point, Want: c.describe(), Got: describe(k, sig)}
	}
	return c.entries, nil
}

func (r *Registry[E]) observe(point string, entries int, start time.Time, err error) {
	if r.observer == nil {
		return
	}
	r.observer.ChainApplied(EnvName[E](), point, entries, time.Since(start), err)
}

func (c *chain) describe() string {
	return describe(c.kind, c.sig)
}

func describe(k kind, sig reflect.Type) string {
	return fmt.Sprintf("%s %v", k, sig)
}
