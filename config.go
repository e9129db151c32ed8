package multiredis

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Mode tells a router whether callers may switch DB per unit of work.
type Mode int

const (
	// ModeUnset defers to Settings.DefaultMode (and ultimately to Dynamic).
	ModeUnset Mode = iota
	// Static pins the router to the datasource's default DB. Required for cluster stores.
	Static
	// Dynamic lets callers select any DB, building handles lazily.
	Dynamic
)

const (
	DefaultHost        = "localhost"
	DefaultPort        = 6379
	DefaultDialTimeout = 5 * time.Second

	// DefaultAlias is the extra name the primary datasource is published under.
	DefaultAlias = "default"
)

func (m Mode) String() string {
	switch m {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	}
	return ""
}

// MarshalText renders the mode as "static", "dynamic" or "".
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "static" or "dynamic" (any case); empty leaves the mode unset.
func (m *Mode) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "":
		*m = ModeUnset
	case "static":
		*m = Static
	case "dynamic":
		*m = Dynamic
	default:
		return fmt.Errorf("unknown mode %q, want static or dynamic", string(b))
	}
	return nil
}

// PoolConfig holds the connection pool sizing of one datasource.
type PoolConfig struct {
	// MaxActive caps the number of open connections (go-redis PoolSize). 0 keeps the client default.
	MaxActive int `json:"max_active" yaml:"max_active" toml:"max_active"`
	// MaxIdle caps idle connections kept in the pool.
	MaxIdle int `json:"max_idle" yaml:"max_idle" toml:"max_idle"`
	// MinIdle is the number of idle connections kept warm.
	MinIdle int `json:"min_idle" yaml:"min_idle" toml:"min_idle"`
	// MaxWait bounds how long a caller waits for a free connection.
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
}

// ClusterConfig selects a Redis Cluster backend. Cluster stores only have DB 0.
type ClusterConfig struct {
	Nodes []string `json:"nodes" yaml:"nodes" toml:"nodes"`
}

// SentinelConfig selects a sentinel-managed master.
type SentinelConfig struct {
	Master   string   `json:"master" yaml:"master" toml:"master"`
	Nodes    []string `json:"nodes" yaml:"nodes" toml:"nodes"`
	Password string   `json:"password,omitempty" yaml:"password" toml:"password"`
}

// StoreConfig holds the connection parameters of one named datasource.
// It is built once at startup and treated as immutable afterwards.
type StoreConfig struct {
	// Name uniquely identifies the datasource within a registry.
	Name string `json:"name" yaml:"name" toml:"name"`
	// Host and Port of a standalone server. Ignored when URL, Cluster or Sentinel is set.
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`
	// Username and Password used to authenticate.
	Username string `json:"username,omitempty" yaml:"username" toml:"username"`
	Password string `json:"password,omitempty" yaml:"password" toml:"password"`
	// URL is a redis:// or rediss:// connection string. If provided, it overrides
	// Host, Port, credentials and SSL. The DB in its path is ignored, see DefaultIndex.
	URL string `json:"url,omitempty" yaml:"url" toml:"url"`
	// SSL enables TLS.
	SSL bool `json:"ssl" yaml:"ssl" toml:"ssl"`
	// Timeout is the command read/write timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	// DialTimeout bounds connection establishment, including the verification PING.
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout" toml:"dial_timeout"`
	Pool        PoolConfig    `json:"pool" yaml:"pool" toml:"pool"`
	Mode        Mode          `json:"mode" yaml:"mode" toml:"mode"`
	// DefaultIndex is the DB used when the routing context carries no index.
	DefaultIndex int             `json:"default_index" yaml:"default_index" toml:"default_index"`
	Cluster      *ClusterConfig  `json:"cluster,omitempty" yaml:"cluster" toml:"cluster"`
	Sentinel     *SentinelConfig `json:"sentinel,omitempty" yaml:"sentinel" toml:"sentinel"`
}

// Settings is the parsed configuration handed to the registry exactly once.
type Settings struct {
	// DefaultMode applies to datasources that omit Mode. ModeUnset means Dynamic.
	DefaultMode Mode
	// Primary names the datasource published under the "default" alias.
	// Empty selects the first entry of Datasources.
	Primary     string
	Datasources []StoreConfig
}

// IsCluster reports whether the datasource targets a Redis Cluster.
func (c StoreConfig) IsCluster() bool {
	return c.Cluster != nil
}

// IsSentinel reports whether the datasource targets a sentinel-managed master.
func (c StoreConfig) IsSentinel() bool {
	return c.Sentinel != nil
}

// Addr returns host:port of a standalone datasource.
func (c StoreConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Clone returns a copy of c sharing no memory with it.
func (c StoreConfig) Clone() StoreConfig {
	if c.Cluster != nil {
		cl := *c.Cluster
		cl.Nodes = slices.Clone(cl.Nodes)
		c.Cluster = &cl
	}
	if c.Sentinel != nil {
		sn := *c.Sentinel
		sn.Nodes = slices.Clone(sn.Nodes)
		c.Sentinel = &sn
	}
	return c
}

// Normalize validates the block, fills defaults and resolves the effective mode.
// The result is a deep copy; later changes to c don't affect it.
// Cluster stores are forced to static mode on DB 0; asking for dynamic mode or
// another default DB on a cluster is a configuration error.
func (c StoreConfig) Normalize(defaultMode Mode) (StoreConfig, error) {
	c = c.Clone()
	if strings.TrimSpace(c.Name) == "" {
		return c, NewConfigurationError(c.Name, "datasource name can not be empty")
	}
	if c.DefaultIndex < 0 {
		return c, NewConfigurationError(c.Name, "default_index %d is negative", c.DefaultIndex)
	}
	if c.Port < 0 {
		return c, NewConfigurationError(c.Name, "port %d is negative", c.Port)
	}
	if c.Pool.MaxActive < 0 || c.Pool.MaxIdle < 0 || c.Pool.MinIdle < 0 || c.Pool.MaxWait < 0 {
		return c, NewConfigurationError(c.Name, "pool parameters can not be negative")
	}
	if c.Pool.MaxIdle > 0 && c.Pool.MinIdle > c.Pool.MaxIdle {
		return c, NewConfigurationError(c.Name, "pool min_idle %d exceeds max_idle %d", c.Pool.MinIdle, c.Pool.MaxIdle)
	}
	if c.Timeout < 0 || c.DialTimeout < 0 {
		return c, NewConfigurationError(c.Name, "timeouts can not be negative")
	}
	if c.IsCluster() && c.IsSentinel() {
		return c, NewConfigurationError(c.Name, "cluster and sentinel can not both be configured")
	}

	switch {
	case c.IsCluster():
		if len(c.Cluster.Nodes) == 0 {
			return c, NewConfigurationError(c.Name, "cluster requires at least one node")
		}
		if c.Mode == Dynamic {
			return c, NewConfigurationError(c.Name, "dynamic mode is not supported on a cluster")
		}
		if c.DefaultIndex != 0 {
			return c, NewConfigurationError(c.Name, "cluster only supports db 0, got default_index %d", c.DefaultIndex)
		}
		c.Mode = Static
	case c.IsSentinel():
		if c.Sentinel.Master == "" || len(c.Sentinel.Nodes) == 0 {
			return c, NewConfigurationError(c.Name, "sentinel requires master and at least one node")
		}
	case c.URL != "":
		u, err := url.Parse(c.URL)
		if err != nil {
			return c, NewConfigurationError(c.Name, "invalid url: %v", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return c, NewConfigurationError(c.Name, "invalid url scheme %q, want redis or rediss", u.Scheme)
		}
	default:
		if c.Host == "" {
			c.Host = DefaultHost
		}
		if c.Port == 0 {
			c.Port = DefaultPort
		}
	}

	if c.Mode == ModeUnset {
		c.Mode = defaultMode
	}
	if c.Mode == ModeUnset {
		c.Mode = Dynamic
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	return c, nil
}

// Normalize validates every datasource, rejects duplicate names and resolves Primary.
func (s Settings) Normalize() (Settings, error) {
	if len(s.Datasources) == 0 {
		return s, NewConfigurationError("", "no datasource configured")
	}
	out := Settings{
		DefaultMode: s.DefaultMode,
		Primary:     s.Primary,
		Datasources: make([]StoreConfig, 0, len(s.Datasources)),
	}
	seen := make(map[string]struct{}, len(s.Datasources))
	for _, ds := range s.Datasources {
		n, err := ds.Normalize(s.DefaultMode)
		if err != nil {
			return s, err
		}
		if _, ok := seen[n.Name]; ok {
			return s, NewConfigurationError(n.Name, "duplicate datasource name")
		}
		seen[n.Name] = struct{}{}
		out.Datasources = append(out.Datasources, n)
	}
	if out.Primary == "" {
		out.Primary = out.Datasources[0].Name
	} else if _, ok := seen[out.Primary]; !ok {
		return s, NewConfigurationError(out.Primary, "primary datasource is not configured")
	}
	if _, ok := seen[DefaultAlias]; ok && out.Primary != DefaultAlias {
		return s, NewConfigurationError(DefaultAlias, "a datasource named %q must be the primary", DefaultAlias)
	}
	return out, nil
}
