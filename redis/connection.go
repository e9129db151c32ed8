// Package redis builds go-redis handles bound to one datasource and one DB index.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	log "log/slog"
	"net"

	"github.com/redis/go-redis/v9"

	"github.com/sharedcode/multiredis"
)

// Factory builds one handle bound to a datasource config and a DB index.
// It does no caching; that is the router's job.
type Factory interface {
	Build(ctx context.Context, cfg multiredis.StoreConfig, db int) (*Handle, error)
}

// ConnectionFactory is the go-redis backed Factory. A sentinel block selects a
// failover client, a cluster block a cluster client, anything else a plain client.
type ConnectionFactory struct {
	// OnConnect, when set, is invoked for every new connection of every handle built.
	OnConnect func(ctx context.Context, cn *redis.Conn) error
}

// NewConnectionFactory returns a ConnectionFactory with no hooks.
func NewConnectionFactory() *ConnectionFactory {
	return &ConnectionFactory{}
}

// Build opens a client for cfg with the DB overridden to db and verifies it with a PING
// bounded by cfg.DialTimeout. Any failure is returned as a multiredis ConnectionFailure
// and leaves no client behind.
func (f *ConnectionFactory) Build(ctx context.Context, cfg multiredis.StoreConfig, db int) (*Handle, error) {
	if db < 0 {
		return nil, multiredis.NewConnectionError(cfg.Name, db, fmt.Errorf("db index %d is negative", db))
	}
	if cfg.IsCluster() && db != 0 {
		return nil, multiredis.NewConnectionError(cfg.Name, db, fmt.Errorf("cluster only supports db 0"))
	}

	client, err := f.newClient(cfg, db)
	if err != nil {
		return nil, multiredis.NewConnectionError(cfg.Name, db, err)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Warn("Redis handle failed verification", "datasource", cfg.Name, "db", db, "error", err)
		return nil, multiredis.NewConnectionError(cfg.Name, db, err)
	}

	h := NewHandle(cfg.Name, db, client)
	log.Info("Opened Redis handle", "datasource", cfg.Name, "db", db, "handle", h.ID.String())
	return h, nil
}

func (f *ConnectionFactory) newClient(cfg multiredis.StoreConfig, db int) (redis.UniversalClient, error) {
	switch {
	case cfg.IsSentinel():
		return redis.NewFailoverClient(f.failoverOptions(cfg, db)), nil
	case cfg.IsCluster():
		return redis.NewClusterClient(f.clusterOptions(cfg)), nil
	}
	opts, err := f.standaloneOptions(cfg, db)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (f *ConnectionFactory) standaloneOptions(cfg multiredis.StoreConfig, db int) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		var err error
		if opts, err = redis.ParseURL(cfg.URL); err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
	} else {
		opts = &redis.Options{
			Addr:     cfg.Addr(),
			Username: cfg.Username,
			Password: cfg.Password,
		}
		if cfg.SSL {
			opts.TLSConfig = tlsConfig(cfg.Host)
		}
	}
	opts.DB = db
	opts.DialTimeout = cfg.DialTimeout
	if cfg.Timeout > 0 {
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	opts.PoolSize = cfg.Pool.MaxActive
	opts.MaxIdleConns = cfg.Pool.MaxIdle
	opts.MinIdleConns = cfg.Pool.MinIdle
	opts.PoolTimeout = cfg.Pool.MaxWait
	opts.OnConnect = f.OnConnect
	return opts, nil
}

func (f *ConnectionFactory) clusterOptions(cfg multiredis.StoreConfig) *redis.ClusterOptions {
	opts := &redis.ClusterOptions{
		Addrs:        cfg.Cluster.Nodes,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DialTimeout:  cfg.DialTimeout,
		PoolSize:     cfg.Pool.MaxActive,
		MaxIdleConns: cfg.Pool.MaxIdle,
		MinIdleConns: cfg.Pool.MinIdle,
		PoolTimeout:  cfg.Pool.MaxWait,
		OnConnect:    f.OnConnect,
	}
	if cfg.Timeout > 0 {
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	if cfg.SSL && len(cfg.Cluster.Nodes) > 0 {
		opts.TLSConfig = tlsConfig(hostOf(cfg.Cluster.Nodes[0]))
	}
	return opts
}

func (f *ConnectionFactory) failoverOptions(cfg multiredis.StoreConfig, db int) *redis.FailoverOptions {
	opts := &redis.FailoverOptions{
		MasterName:       cfg.Sentinel.Master,
		SentinelAddrs:    cfg.Sentinel.Nodes,
		SentinelPassword: cfg.Sentinel.Password,
		Username:         cfg.Username,
		Password:         cfg.Password,
		DB:               db,
		DialTimeout:      cfg.DialTimeout,
		PoolSize:         cfg.Pool.MaxActive,
		MaxIdleConns:     cfg.Pool.MaxIdle,
		MinIdleConns:     cfg.Pool.MinIdle,
		PoolTimeout:      cfg.Pool.MaxWait,
		OnConnect:        f.OnConnect,
	}
	if cfg.Timeout > 0 {
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	if cfg.SSL {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

func tlsConfig(host string) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: host,
	}
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
