package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/redis"
)

// RemoteClient is the distributed tier. *redis.Client satisfies it; Get must
// return redis.ErrMiss for a missing key.
type RemoteClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	ClearPrefix(ctx context.Context) (int, error)
}

// remoteTier turns itself off for the rest of the process on the first
// failure that is not a plain miss.
type remoteTier struct {
	client     RemoteClient
	namespaces map[string]bool
	disabled   atomic.Bool
	logger     logging.Logger
}

func newRemoteTier(client RemoteClient, namespaces []string, logger logging.Logger) *remoteTier {
	r := &remoteTier{
		client:     client,
		namespaces: make(map[string]bool, len(namespaces)),
		logger:     logger,
	}
	for _, ns := range namespaces {
		r.namespaces[ns] = true
	}
	if client == nil {
		r.disabled.Store(true)
	}
	return r
}

func (r *remoteTier) enabled() bool {
	return !r.disabled.Load()
}

func (r *remoteTier) handles(namespace string) bool {
	return r.enabled() && r.namespaces[namespace]
}

func (r *remoteTier) fail(op string, err error) {
	if r.disabled.CompareAndSwap(false, true) {
		r.logger.Warn("Remote cache tier disabled after failure",
			logging.String("operation", op),
			logging.Err(err),
		)
	}
}

func (r *remoteTier) get(ctx context.Context, key string) ([]byte, bool) {
	if !r.enabled() {
		return nil, false
	}
	data, err := r.client.Get(ctx, key)
	if errors.Is(err, redis.ErrMiss) {
		return nil, false
	}
	if err != nil {
		r.fail("get", err)
		return nil, false
	}
	return data, true
}

func (r *remoteTier) set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !r.enabled() {
		return
	}
	if err := r.client.Set(ctx, key, value, ttl); err != nil {
		r.fail("set", err)
	}
}

func (r *remoteTier) delete(ctx context.Context, key string) {
	if !r.enabled() {
		return
	}
	if err := r.client.Delete(ctx, key); err != nil {
		r.fail("delete", err)
	}
}

func (r *remoteTier) clear(ctx context.Context) int {
	if !r.enabled() {
		return 0
	}
	n, err := r.client.ClearPrefix(ctx)
	if err != nil {
		r.fail("clear", err)
	}
	return n
}
