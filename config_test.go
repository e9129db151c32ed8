package multiredis

import (
	"errors"
	"testing"
	"time"
)

func TestModeText(t *testing.T) {
	for _, s := range []string{"static", "STATIC", " Static "} {
		var m Mode
		if err := m.UnmarshalText([]byte(s)); err != nil || m != Static {
			t.Fatalf("%q -> %v, %v", s, m, err)
		}
	}
	var m Mode = Dynamic
	if err := m.UnmarshalText(nil); err != nil || m != ModeUnset {
		t.Fatalf("empty -> %v, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("sometimes")); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if b, _ := Dynamic.MarshalText(); string(b) != "dynamic" {
		t.Fatalf("MarshalText = %s", b)
	}
}

func TestStoreConfigNormalizeDefaults(t *testing.T) {
	c, err := StoreConfig{Name: "orders"}.Normalize(ModeUnset)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if c.Host != DefaultHost || c.Port != DefaultPort || c.DialTimeout != DefaultDialTimeout {
		t.Fatalf("defaults not filled: %+v", c)
	}
	if c.Mode != Dynamic {
		t.Fatalf("mode = %v, want dynamic", c.Mode)
	}
	if c.Addr() != "localhost:6379" {
		t.Fatalf("Addr = %s", c.Addr())
	}

	c, _ = StoreConfig{Name: "orders"}.Normalize(Static)
	if c.Mode != Static {
		t.Fatalf("process-wide default not applied: %v", c.Mode)
	}
	c, _ = StoreConfig{Name: "orders", Mode: Dynamic}.Normalize(Static)
	if c.Mode != Dynamic {
		t.Fatalf("explicit mode overridden: %v", c.Mode)
	}
}

func TestStoreConfigNormalizeCluster(t *testing.T) {
	c, err := StoreConfig{Name: "c", Cluster: &ClusterConfig{Nodes: []string{"n1:7000"}}}.Normalize(Dynamic)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if c.Mode != Static {
		t.Fatalf("cluster mode = %v, want static", c.Mode)
	}
	if c.Host != "" {
		t.Fatalf("cluster should not get a default host")
	}
}

func TestStoreConfigNormalizeRejects(t *testing.T) {
	nodes := &ClusterConfig{Nodes: []string{"n1:7000"}}
	cases := map[string]StoreConfig{
		"empty name":        {},
		"negative index":    {Name: "a", DefaultIndex: -1},
		"negative port":     {Name: "a", Port: -1},
		"negative pool":     {Name: "a", Pool: PoolConfig{MaxActive: -1}},
		"min over max idle": {Name: "a", Pool: PoolConfig{MaxIdle: 1, MinIdle: 2}},
		"negative timeout":  {Name: "a", Timeout: -time.Second},
		"cluster+sentinel":  {Name: "a", Cluster: nodes, Sentinel: &SentinelConfig{Master: "m", Nodes: []string{"s"}}},
		"cluster no nodes":  {Name: "a", Cluster: &ClusterConfig{}},
		"cluster dynamic":   {Name: "a", Cluster: nodes, Mode: Dynamic},
		"cluster index":     {Name: "a", Cluster: nodes, DefaultIndex: 1},
		"sentinel master":   {Name: "a", Sentinel: &SentinelConfig{Nodes: []string{"s"}}},
		"url scheme":        {Name: "a", URL: "http://localhost:6379"},
		"url parse":         {Name: "a", URL: "redis://[::1"},
	}
	for name, c := range cases {
		if _, err := c.Normalize(ModeUnset); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: err = %v, want configuration error", name, err)
		}
	}
}

func TestSettingsNormalize(t *testing.T) {
	s, err := Settings{Datasources: []StoreConfig{{Name: "b"}, {Name: "a"}}}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if s.Primary != "b" {
		t.Fatalf("primary = %s, want first datasource", s.Primary)
	}

	bad := map[string]Settings{
		"empty":           {},
		"duplicate":       {Datasources: []StoreConfig{{Name: "a"}, {Name: "a"}}},
		"unknown primary": {Primary: "x", Datasources: []StoreConfig{{Name: "a"}}},
		"default alias":   {Primary: "a", Datasources: []StoreConfig{{Name: "a"}, {Name: DefaultAlias}}},
	}
	for name, s := range bad {
		if _, err := s.Normalize(); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: err = %v, want configuration error", name, err)
		}
	}
}

func TestNormalizeDeepCopies(t *testing.T) {
	in := StoreConfig{Name: "c", Cluster: &ClusterConfig{Nodes: []string{"n1:7000"}}}
	out, err := in.Normalize(ModeUnset)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	in.Cluster.Nodes[0] = "changed:1"
	if out.Cluster == in.Cluster || out.Cluster.Nodes[0] != "n1:7000" {
		t.Fatalf("normalized config shares cluster nodes with input: %v", out.Cluster.Nodes)
	}
}
