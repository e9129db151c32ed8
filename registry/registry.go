// Package registry builds one router and helper per configured datasource and
// publishes them by name.
//
// A Registry is built once from the parsed Settings and is read-only afterwards:
// datasources can't be added or removed at runtime. Pass the *Registry explicitly
// to the code that needs it.
package registry

import (
	"context"
	"errors"
	log "log/slog"
	"sync"

	"github.com/sharedcode/multiredis"
	"github.com/sharedcode/multiredis/helper"
	"github.com/sharedcode/multiredis/redis"
	"github.com/sharedcode/multiredis/router"
)

type entry struct {
	router *router.Router
	helper *helper.Helper
}

// Registry is the immutable name -> (router, helper) lookup service.
type Registry struct {
	primary string
	names   []string
	entries map[string]entry
}

type options struct {
	factory     redis.Factory
	concurrency int
}

// Option customizes Build.
type Option func(*options)

// WithFactory replaces the go-redis ConnectionFactory, e.g. with a test double.
func WithFactory(f redis.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithConcurrency caps how many datasources open their default handle at once. 0 means no cap.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// Build validates settings, then builds every datasource's router (default handle
// included) concurrently. Any configuration or connection error fails the whole
// build; routers already opened are closed before returning.
func Build(ctx context.Context, settings multiredis.Settings, opts ...Option) (*Registry, error) {
	o := options{factory: redis.NewConnectionFactory()}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := settings.Normalize()
	if err != nil {
		return nil, err
	}

	routers := make([]*router.Router, len(s.Datasources))
	tr := multiredis.NewTaskRunner(ctx, o.concurrency)
	for i, cfg := range s.Datasources {
		tr.Go(func() error {
			r, err := router.New(tr.GetContext(), cfg, o.factory)
			if err != nil {
				return err
			}
			routers[i] = r
			return nil
		})
	}
	if err := tr.Wait(); err != nil {
		for _, r := range routers {
			if r != nil {
				_ = r.Close()
			}
		}
		log.Error("Building datasource registry failed", "error", err)
		return nil, err
	}

	reg := &Registry{
		primary: s.Primary,
		names:   make([]string, 0, len(routers)),
		entries: make(map[string]entry, len(routers)),
	}
	for _, r := range routers {
		reg.names = append(reg.names, r.Name())
		reg.entries[r.Name()] = entry{router: r, helper: helper.New(r)}
	}
	log.Info("Registered Redis datasources", "names", reg.names, "primary", reg.primary)
	return reg, nil
}

func (reg *Registry) lookup(name string) (entry, error) {
	if e, ok := reg.entries[name]; ok {
		return e, nil
	}
	if name == multiredis.DefaultAlias {
		return reg.entries[reg.primary], nil
	}
	return entry{}, multiredis.NewUnknownDatasourceError(name)
}

// Lookup returns the helper of the named datasource. "default" names the primary one.
func (reg *Registry) Lookup(name string) (*helper.Helper, error) {
	e, err := reg.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.helper, nil
}

// Router returns the router of the named datasource. "default" names the primary one.
func (reg *Registry) Router(name string) (*router.Router, error) {
	e, err := reg.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.router, nil
}

// Default returns the helper of the primary datasource.
func (reg *Registry) Default() *helper.Helper {
	return reg.entries[reg.primary].helper
}

// Primary returns the name of the primary datasource.
func (reg *Registry) Primary() string {
	return reg.primary
}

// Names returns the registered datasource names in configuration order.
func (reg *Registry) Names() []string {
	out := make([]string, len(reg.names))
	copy(out, reg.names)
	return out
}

// Close closes every router concurrently and returns the joined errors.
func (reg *Registry) Close() error {
	var mu sync.Mutex
	var errs []error
	tr := multiredis.NewTaskRunner(context.Background(), 0)
	for _, name := range reg.names {
		r := reg.entries[name].router
		tr.Go(func() error {
			if err := r.Close(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = tr.Wait()
	return errors.Join(errs...)
}
