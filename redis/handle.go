package redis

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/sharedcode/multiredis"
)

// Handle is a live go-redis client bound to exactly one (datasource, DB) pair.
// It is shared by every caller resolving to the same DB and is safe for concurrent use.
type Handle struct {
	// ID distinguishes handle instances in logs and in the admin API.
	ID         multiredis.UUID
	Datasource string
	DB         int

	client    redis.UniversalClient
	closeOnce sync.Once
	closeErr  error
}

// NewHandle wraps client. Custom Factory implementations use it to produce handles.
func NewHandle(datasource string, db int, client redis.UniversalClient) *Handle {
	return &Handle{
		ID:         multiredis.NewUUID(),
		Datasource: datasource,
		DB:         db,
		client:     client,
	}
}

// Client returns the underlying go-redis client. Issue commands directly against it.
func (h *Handle) Client() redis.UniversalClient {
	return h.client
}

// Ping tests connectivity (PONG expected).
func (h *Handle) Ping(ctx context.Context) error {
	if h.client == nil {
		return fmt.Errorf("redis handle %s has no client", h)
	}
	return h.client.Ping(ctx).Err()
}

// Close closes the underlying client once; later calls return the first result.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if h.client == nil {
			return
		}
		log.Debug("Closing Redis handle", "datasource", h.Datasource, "db", h.DB, "handle", h.ID.String())
		h.closeErr = h.client.Close()
	})
	return h.closeErr
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s/%d", h.Datasource, h.DB)
}
