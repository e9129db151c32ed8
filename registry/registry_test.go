package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sharedcode/multiredis"
	"github.com/sharedcode/multiredis/redis"
	"github.com/sharedcode/multiredis/redis/redistest"
	"github.com/sharedcode/multiredis/routing"
)

type recordingFactory struct {
	mu     sync.Mutex
	builds []string
	fail   map[string]error
}

func (f *recordingFactory) Build(ctx context.Context, cfg multiredis.StoreConfig, db int) (*redis.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, cfg.Name)
	if err := f.fail[cfg.Name]; err != nil {
		return nil, multiredis.NewConnectionError(cfg.Name, db, err)
	}
	return redis.NewHandle(cfg.Name, db, nil), nil
}

func (f *recordingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.builds)
}

func TestRoundTripThroughRealFactory(t *testing.T) {
	s, err := redistest.NewServer()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	reg, err := Build(context.Background(), multiredis.Settings{
		Datasources: []multiredis.StoreConfig{{
			Name:         "orders",
			Host:         s.Host(),
			Port:         s.Port(),
			DefaultIndex: 2,
			DialTimeout:  2 * time.Second,
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer reg.Close()

	h, err := reg.Lookup("orders")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	handle, err := h.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if handle.DB != 2 {
		t.Fatalf("unset context resolved to db %d, want 2", handle.DB)
	}
	if err := handle.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	sawTwo := false
	for _, db := range s.Selects() {
		sawTwo = sawTwo || db == 2
	}
	if !sawTwo {
		t.Fatalf("server never saw SELECT 2: %v", s.Selects())
	}
}

func TestLookupUnknownDatasource(t *testing.T) {
	reg, err := Build(context.Background(), multiredis.Settings{
		Datasources: []multiredis.StoreConfig{{Name: "orders"}},
	}, WithFactory(&recordingFactory{}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, err = reg.Lookup("billing")
	if !errors.Is(err, multiredis.ErrUnknownDatasource) {
		t.Fatalf("got %v, want unknown datasource", err)
	}
	if _, err := reg.Router("billing"); !errors.Is(err, multiredis.ErrUnknownDatasource) {
		t.Fatalf("Router: got %v", err)
	}
}

func TestDefaultAliasAndPrimary(t *testing.T) {
	f := &recordingFactory{}
	reg, err := Build(context.Background(), multiredis.Settings{
		Primary: "billing",
		Datasources: []multiredis.StoreConfig{
			{Name: "orders"},
			{Name: "billing", DefaultIndex: 4},
		},
	}, WithFactory(f), WithConcurrency(1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "orders" || got[1] != "billing" {
		t.Fatalf("Names = %v", got)
	}
	def, err := reg.Lookup(multiredis.DefaultAlias)
	if err != nil {
		t.Fatalf("Lookup(default): %v", err)
	}
	if def.Name() != "billing" || reg.Default() != def || reg.Primary() != "billing" {
		t.Fatalf("default alias resolved to %s", def.Name())
	}
	if f.count() != 2 {
		t.Fatalf("expected one eager build per datasource, got %d", f.count())
	}
}

func TestPrimaryDefaultsToFirstDatasource(t *testing.T) {
	reg, err := Build(context.Background(), multiredis.Settings{
		Datasources: []multiredis.StoreConfig{{Name: "orders"}, {Name: "billing"}},
	}, WithFactory(&recordingFactory{}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if reg.Primary() != "orders" {
		t.Fatalf("Primary = %s, want orders", reg.Primary())
	}
}

func TestConfigurationErrorsPreventBuild(t *testing.T) {
	cases := map[string]multiredis.Settings{
		"dynamic cluster": {Datasources: []multiredis.StoreConfig{{
			Name:    "c",
			Mode:    multiredis.Dynamic,
			Cluster: &multiredis.ClusterConfig{Nodes: []string{"n1:7000"}},
		}}},
		"cluster default index": {Datasources: []multiredis.StoreConfig{{
			Name:         "c",
			DefaultIndex: 1,
			Cluster:      &multiredis.ClusterConfig{Nodes: []string{"n1:7000"}},
		}}},
		"duplicate names": {Datasources: []multiredis.StoreConfig{{Name: "a"}, {Name: "a"}}},
		"missing name":    {Datasources: []multiredis.StoreConfig{{Host: "h"}}},
		"no datasource":   {},
		"unknown primary": {Primary: "x", Datasources: []multiredis.StoreConfig{{Name: "a"}}},
	}
	for name, settings := range cases {
		f := &recordingFactory{}
		_, err := Build(context.Background(), settings, WithFactory(f))
		if !errors.Is(err, multiredis.ErrConfiguration) {
			t.Errorf("%s: got %v, want configuration error", name, err)
		}
		if f.count() != 0 {
			t.Errorf("%s: %d handles built before validation failed", name, f.count())
		}
	}
}

func TestClusterWithoutModeIsForcedStatic(t *testing.T) {
	reg, err := Build(context.Background(), multiredis.Settings{
		DefaultMode: multiredis.Dynamic,
		Datasources: []multiredis.StoreConfig{{
			Name:    "c",
			Cluster: &multiredis.ClusterConfig{Nodes: []string{"n1:7000"}},
		}},
	}, WithFactory(&recordingFactory{}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	h, _ := reg.Lookup("c")
	if h.Mode() != multiredis.Static {
		t.Fatalf("cluster datasource mode = %v, want static", h.Mode())
	}
	if _, err := h.DB1(context.Background()); !errors.Is(err, multiredis.ErrStaticMode) {
		t.Fatalf("DB1 on cluster: got %v", err)
	}
}

func TestProcessWideStaticDefault(t *testing.T) {
	reg, err := Build(context.Background(), multiredis.Settings{
		DefaultMode: multiredis.Static,
		Datasources: []multiredis.StoreConfig{
			{Name: "pinned"},
			{Name: "free", Mode: multiredis.Dynamic},
		},
	}, WithFactory(&recordingFactory{}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pinned, _ := reg.Router("pinned")
	free, _ := reg.Router("free")
	if pinned.Mode() != multiredis.Static || free.Mode() != multiredis.Dynamic {
		t.Fatalf("modes = %v/%v", pinned.Mode(), free.Mode())
	}
	if _, err := free.Resolve(routing.WithDatabase(context.Background(), 6)); err != nil {
		t.Fatalf("dynamic datasource Resolve: %v", err)
	}
}

func TestConnectionErrorFailsBuild(t *testing.T) {
	f := &recordingFactory{fail: map[string]error{"billing": errors.New("auth failed")}}
	_, err := Build(context.Background(), multiredis.Settings{
		Datasources: []multiredis.StoreConfig{{Name: "orders"}, {Name: "billing"}},
	}, WithFactory(f))
	if !errors.Is(err, multiredis.ErrConnection) {
		t.Fatalf("got %v, want connection error", err)
	}
}

type sentinelFactory struct {
	mu      sync.Mutex
	masters []string
	nodes   []string
}

func (f *sentinelFactory) Build(ctx context.Context, cfg multiredis.StoreConfig, db int) (*redis.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.masters = append(f.masters, cfg.Sentinel.Master)
	f.nodes = append(f.nodes, cfg.Sentinel.Nodes[0])
	return redis.NewHandle(cfg.Name, db, nil), nil
}

func TestSettingsChangesAfterBuildDoNotReachLaterBuilds(t *testing.T) {
	settings := multiredis.Settings{
		Datasources: []multiredis.StoreConfig{{
			Name:     "orders",
			Sentinel: &multiredis.SentinelConfig{Master: "mymaster", Nodes: []string{"s1:26379"}},
		}},
	}
	f := &sentinelFactory{}
	reg, err := Build(context.Background(), settings, WithFactory(f))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer reg.Close()

	settings.Datasources[0].Sentinel.Master = "changed"
	settings.Datasources[0].Sentinel.Nodes[0] = "changed:1"
	r, err := reg.Router("orders")
	if err != nil {
		t.Fatal(err)
	}
	r.Config().Sentinel.Nodes[0] = "changed:2"

	if _, err := r.Resolve(routing.WithDatabase(context.Background(), 3)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.masters {
		if f.masters[i] != "mymaster" || f.nodes[i] != "s1:26379" {
			t.Fatalf("build %d saw master %q node %q", i, f.masters[i], f.nodes[i])
		}
	}
	if len(f.masters) != 2 {
		t.Fatalf("got %d builds, want 2", len(f.masters))
	}
}
