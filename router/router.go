// Package router resolves the Redis handle serving the current unit of work.
//
// A Router owns the routing table of one datasource: DB index -> handle. The DB
// index comes from the routing package's context value; when the context carries
// none, the datasource's default handle (built eagerly by New) is returned.
// Handles for other indices are built on first use and kept for the lifetime of
// the router.
//
// Lookups of already built handles never block. Misses serialize on a single
// per-router mutex and re-check the table, so concurrent first access to the same
// index builds exactly one handle. A failed build is not cached.
package router

import (
	"context"
	"errors"
	log "log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sharedcode/multiredis"
	"github.com/sharedcode/multiredis/redis"
	"github.com/sharedcode/multiredis/routing"
)

// ErrClosed is returned by Resolve once the router has been closed.
var ErrClosed = errors.New("router: closed")

// Router is the dynamic routing engine of one datasource.
type Router struct {
	config        multiredis.StoreConfig
	factory       redis.Factory
	defaultHandle *redis.Handle

	// table maps int -> *redis.Handle. Reads are lock-free; writes happen under buildMux.
	table    sync.Map
	buildMux sync.Mutex
	// closed is set under buildMux, so no build can be cached after Close.
	closed atomic.Bool
}

// New builds the default handle for cfg.DefaultIndex and returns a router seeded with it.
// cfg is expected to be normalized; a ModeUnset config is treated as dynamic.
func New(ctx context.Context, cfg multiredis.StoreConfig, factory redis.Factory) (*Router, error) {
	if factory == nil {
		return nil, multiredis.NewConfigurationError(cfg.Name, "connection factory can not be nil")
	}
	cfg = cfg.Clone()
	if cfg.Mode == multiredis.ModeUnset {
		cfg.Mode = multiredis.Dynamic
	}
	h, err := factory.Build(ctx, cfg, cfg.DefaultIndex)
	if err != nil {
		return nil, err
	}
	r := &Router{
		config:        cfg,
		factory:       factory,
		defaultHandle: h,
	}
	r.table.Store(cfg.DefaultIndex, h)
	log.Info("Created Redis router", "datasource", cfg.Name, "mode", cfg.Mode.String(), "default_db", cfg.DefaultIndex)
	return r, nil
}

// Resolve returns the handle for the DB index carried by ctx, or the default handle
// when ctx carries none. On a static router any index other than the default fails
// with a StaticModeViolation. A closed router returns ErrClosed.
func (r *Router) Resolve(ctx context.Context) (*redis.Handle, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	db, ok := routing.Database(ctx)
	if !ok {
		return r.defaultHandle, nil
	}
	if r.config.Mode == multiredis.Static && db != r.config.DefaultIndex {
		return nil, multiredis.NewStaticModeError(r.config.Name, db, r.config.DefaultIndex)
	}
	if h, ok := r.table.Load(db); ok {
		return h.(*redis.Handle), nil
	}

	r.buildMux.Lock()
	defer r.buildMux.Unlock()

	if r.closed.Load() {
		return nil, ErrClosed
	}
	// Another caller may have built it while this one waited for the lock.
	if h, ok := r.table.Load(db); ok {
		return h.(*redis.Handle), nil
	}
	h, err := r.factory.Build(ctx, r.config, db)
	if err != nil {
		log.Warn("Building Redis handle failed", "datasource", r.config.Name, "db", db, "error", err)
		return nil, err
	}
	r.table.Store(db, h)
	log.Info("Cached Redis handle", "datasource", r.config.Name, "db", db, "handle", h.ID.String())
	return h, nil
}

// Default returns the pre-built handle for the datasource's default DB.
func (r *Router) Default() *redis.Handle {
	return r.defaultHandle
}

// Databases returns the DB indices that currently have a cached handle, ascending.
func (r *Router) Databases() []int {
	var dbs []int
	r.table.Range(func(k, _ any) bool {
		dbs = append(dbs, k.(int))
		return true
	})
	sort.Ints(dbs)
	return dbs
}

// Handles returns a snapshot of the routing table.
func (r *Router) Handles() map[int]*redis.Handle {
	m := make(map[int]*redis.Handle)
	r.table.Range(func(k, v any) bool {
		m[k.(int)] = v.(*redis.Handle)
		return true
	})
	return m
}

// Name returns the datasource name.
func (r *Router) Name() string {
	return r.config.Name
}

// Mode returns the effective routing mode.
func (r *Router) Mode() multiredis.Mode {
	return r.config.Mode
}

// Config returns a copy of the datasource config the router was built with.
func (r *Router) Config() multiredis.StoreConfig {
	return r.config.Clone()
}

// Close closes every cached handle and returns the joined errors.
// Resolve fails with ErrClosed afterwards. Closing twice is a no-op.
func (r *Router) Close() error {
	r.buildMux.Lock()
	defer r.buildMux.Unlock()
	if r.closed.Swap(true) {
		return nil
	}

	var errs []error
	r.table.Range(func(k, v any) bool {
		if err := v.(*redis.Handle).Close(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	log.Info("Closed Redis router", "datasource", r.config.Name)
	return errors.Join(errs...)
}
