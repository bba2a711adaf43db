package filter

import "context"

type serverKey struct{}

// WithServer returns a context carrying a request-scoped server registry.
func WithServer(ctx context.Context, r *Registry[Server]) context.Context {
	return context.WithValue(ctx, serverKey{}, r)
}

// ServerFrom returns the server registry stored in ctx, or nil.
// Applying a point against a nil registry returns the seed unchanged.
func ServerFrom(ctx context.Context) *Registry[Server] {
	r, _ := ctx.Value(serverKey{}).(*Registry[Server])
	return r
}
