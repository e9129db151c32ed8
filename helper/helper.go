// Package helper exposes per-datasource accessors for the commonly used Redis DBs.
//
// Each accessor scopes the requested index to a derived context for the single
// resolve call, so the caller's context is never mutated. Hold on to the returned
// handle when several commands must run against the same DB.
package helper

import (
	"context"

	"github.com/sharedcode/multiredis"
	"github.com/sharedcode/multiredis/redis"
	"github.com/sharedcode/multiredis/router"
	"github.com/sharedcode/multiredis/routing"
)

// MaxWellKnownDB is the highest index with a dedicated accessor (DB0..DB15).
const MaxWellKnownDB = 15

// Helper is the convenience accessor of one datasource.
type Helper struct {
	router *router.Router
}

// New wraps r.
func New(r *router.Router) *Helper {
	return &Helper{router: r}
}

// AtIndex returns the handle bound to DB db.
// Static datasources fail with a StaticModeViolation for any db but their default.
func (h *Helper) AtIndex(ctx context.Context, db int) (*redis.Handle, error) {
	return h.router.Resolve(routing.WithDatabase(ctx, db))
}

// Current resolves using whatever index ctx carries, the default handle when none.
func (h *Helper) Current(ctx context.Context) (*redis.Handle, error) {
	return h.router.Resolve(ctx)
}

// Default returns the datasource's default handle.
func (h *Helper) Default() *redis.Handle {
	return h.router.Default()
}

func (h *Helper) DB0(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 0) }
func (h *Helper) DB1(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 1) }
func (h *Helper) DB2(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 2) }
func (h *Helper) DB3(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 3) }
func (h *Helper) DB4(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 4) }
func (h *Helper) DB5(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 5) }
func (h *Helper) DB6(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 6) }
func (h *Helper) DB7(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 7) }
func (h *Helper) DB8(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 8) }
func (h *Helper) DB9(ctx context.Context) (*redis.Handle, error)  { return h.AtIndex(ctx, 9) }
func (h *Helper) DB10(ctx context.Context) (*redis.Handle, error) { return h.AtIndex(ctx, 10) }
func (h *Helper) DB11(ctx context.Context) (*redis.Handle, error) { return h.AtIndex(ctx, 11) }
func (h *Helper) DB12(ctx context.Context) (*redis.Handle, error) { return h.AtIndex(ctx, 12) }
func (h *Helper) DB13(ctx context.Context) (*redis.Handle, error) { return h.AtIndex(ctx, 13) }
func (h *Helper) DB14(ctx context.Context) (*redis.Handle, error) { return h.AtIndex(ctx, 14) }
func (h *Helper) DB15(ctx context.Context) (*redis.Handle, error) { return h.AtIndex(ctx, 15) }

// Databases returns the DB indices with a cached handle, ascending.
func (h *Helper) Databases() []int {
	return h.router.Databases()
}

// Name returns the datasource name.
func (h *Helper) Name() string {
	return h.router.Name()
}

// Mode returns the datasource's routing mode.
func (h *Helper) Mode() multiredis.Mode {
	return h.router.Mode()
}

// Router returns the underlying router.
func (h *Helper) Router() *router.Router {
	return h.router
}
