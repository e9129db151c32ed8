// Package routing carries the caller's target Redis DB index on a context.Context.
//
// The value is scoped to the context it is attached to, so two units of work never
// observe each other's index unless they share a context. Contexts derived from a
// context carrying an index inherit it, which is how fan-out to child goroutines
// behaves; hand children Clear(ctx) when they should use the datasource default.
package routing

import "context"

type dbKey struct{}

// slot is stored by value; set=false masks any index set by a parent context.
type slot struct {
	db  int
	set bool
}

// WithDatabase returns a context whose routing index is db.
func WithDatabase(ctx context.Context, db int) context.Context {
	return context.WithValue(ctx, dbKey{}, slot{db: db, set: true})
}

// Database returns the routing index carried by ctx, or false when unset.
func Database(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	s, ok := ctx.Value(dbKey{}).(slot)
	if !ok || !s.set {
		return 0, false
	}
	return s.db, true
}

// Clear returns a context whose routing index reads as unset, regardless of parents.
func Clear(ctx context.Context) context.Context {
	if _, ok := Database(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, dbKey{}, slot{})
}
