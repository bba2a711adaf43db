package filter

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/a-h/templ"
)

// TransformFunc receives the value produced so far and returns the next one.
type TransformFunc[T, A any] func(value T, args A) T

// AsyncFunc is a transform that may block, fail or observe cancellation.
type AsyncFunc[T, A any] func(ctx context.Context, value T, args A) (T, error)

// RenderFunc wraps the component produced so far.
type RenderFunc[A any] func(child templ.Component, args A) templ.Component

// Transform is a synchronous point carrying values of type T.
type Transform[E Environment, T, A any] struct {
	name string
}

// NewTransform declares a synchronous point.
func NewTransform[E Environment, T, A any](name string) Transform[E, T, A] {
	return Transform[E, T, A]{name: name}
}

// Name returns the point name.
func (p Transform[E, T, A]) Name() string { return p.name }

// Enqueue registers fn under name, replacing an entry with the same name.
func (p Transform[E, T, A]) Enqueue(r *Registry[E], name string, fn TransformFunc[T, A]) error {
	if fn == nil {
		return fmt.Errorf("%w: nil callback %q on %q", ErrInvalidEntry, name, p.name)
	}
	return r.enqueue(p.name, kindTransform, name, fn)
}

// Apply threads seed through every entry. A nil registry or a point with no
// entries returns seed unchanged. Panics raised by callbacks propagate.
func (p Transform[E, T, A]) Apply(r *Registry[E], seed T, args A) (T, error) {
	if r == nil {
		return seed, nil
	}
	entries, err := r.lookup(p.name, kindTransform, reflect.TypeOf(TransformFunc[T, A](nil)))
	if err != nil {
		var zero T
		return zero, err
	}

	start := time.Now()
	value := seed
	for _, e := range entries {
		value = e.fn.(TransformFunc[T, A])(value, args)
	}
	r.observe(p.name, len(entries), start, nil)
	return value, nil
}

// Async is a point whose callbacks may block or fail.
type Async[E Environment, T, A any] struct {
	name string
}

// NewAsync declares an asynchronous point.
func NewAsync[E Environment, T, A any](name string) Async[E, T, A] {
	return Async[E, T, A]{name: name}
}

// Name returns the point name.
func (p Async[E, T, A]) Name() string { return p.name }

// Enqueue registers fn under name, replacing an entry with the same name.
func (p Async[E, T, A]) Enqueue(r *Registry[E], name string, fn AsyncFunc[T, A]) error {
	if fn == nil {
		return fmt.Errorf("%w: nil callback %q on %q", ErrInvalidEntry, name, p.name)
	}
	return r.enqueue(p.name, kindAsync, name, fn)
}

// Apply runs the entries one after another; each entry sees the fully
// resolved value of the previous one. The first failing entry stops the
// chain and its error is returned as a *ChainError with the zero value.
// A context cancelled between stages stops the chain the same way.
func (p Async[E, T, A]) Apply(ctx context.Context, r *Registry[E], seed T, args A) (T, error) {
	var zero T
	if r == nil {
		return seed, nil
	}
	entries, err := r.lookup(p.name, kindAsync, reflect.TypeOf(AsyncFunc[T, A](nil)))
	if err != nil {
		return zero, err
	}

	start := time.Now()
	value := seed
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			err = &ChainError{Point: p.name, Entry: e.name, Err: err}
			r.observe(p.name, len(entries), start, err)
			return zero, err
		}
		next, err := e.fn.(AsyncFunc[T, A])(ctx, value, args)
		if err != nil {
			err = &ChainError{Point: p.name, Entry: e.name, Err: err}
			r.observe(p.name, len(entries), start, err)
			return zero, err
		}
		value = next
	}
	r.observe(p.name, len(entries), start, nil)
	return value, nil
}

// Render is a point that composes nested wrappers around a component.
type Render[E Environment, A any] struct {
	name string
}

// NewRender declares a render point.
func NewRender[E Environment, A any](name string) Render[E, A] {
	return Render[E, A]{name: name}
}

// Name returns the point name.
func (p Render[E, A]) Name() string { return p.name }

// Enqueue registers fn under name, replacing an entry with the same name.
func (p Render[E, A]) Enqueue(r *Registry[E], name string, fn RenderFunc[A]) error {
	if fn == nil {
		return fmt.Errorf("%w: nil callback %q on %q", ErrInvalidEntry, name, p.name)
	}
	return r.enqueue(p.name, kindRender, name, fn)
}

// Apply wraps seed with every entry in registration order, so the first
// entry is the innermost wrapper and the last entry the outermost.
func (p Render[E, A]) Apply(r *Registry[E], seed templ.Component, args A) (templ.Component, error) {
	if r == nil {
		return seed, nil
	}
	entries, err := r.lookup(p.name, kindRender, reflect.TypeOf(RenderFunc[A](nil)))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	node := seed
	for _, e := range entries {
		node = e.fn.(RenderFunc[A])(node, args)
		if node == nil {
			err := &ChainError{Point: p.name, Entry: e.name, Err: ErrNilComponent}
			r.observe(p.name, len(entries), start, err)
			return nil, err
		}
	}
	r.observe(p.name, len(entries), start, nil)
	return node, nil
}
