// Package cache provides the process-wide resolution cache: TTL-based,
// size-bounded, stale-while-revalidate, with request coalescing so
// concurrent callers for the same post id share one upstream resolution.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/domain"
)

// ResolveFunc performs one upstream resolution for a key.
type ResolveFunc func(ctx context.Context) (*domain.PostTree, error)

// inflight is the shared handle for one upstream resolution. value and err
// are written exactly once before done is closed.
type inflight struct {
	done  chan struct{}
	value *domain.PostTree
	err   error
}

// entry is the per-key state. Exactly one of these shapes holds at any time:
// fetching (value nil, pending set), fresh (value set, now < expiresAt),
// stale (value set, expired, pending optionally set for the refresh).
type entry struct {
	value     *domain.PostTree
	expiresAt time.Time
	pending   *inflight
}

// Cache is a bounded stale-while-revalidate cache over post trees.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string // insertion order, oldest first; touch re-inserts at the back

	ttl            time.Duration
	graceTTL       time.Duration
	maxEntries     int
	resolveTimeout time.Duration

	logger *slog.Logger
	now    func() time.Time
}

// New creates a cache from configuration.
func New(cfg config.CacheConfig, logger *slog.Logger) *Cache {
	return &Cache{
		entries:        make(map[string]*entry),
		ttl:            cfg.TTL,
		graceTTL:       cfg.GraceTTL,
		maxEntries:     cfg.MaxEntries,
		resolveTimeout: cfg.ResolveTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// GetOrResolve returns the tree for key, resolving it at most once across
// concurrent callers.
//
// A fresh value returns immediately. A stale value also returns immediately
// and triggers at most one background refresh; the refresh failing keeps
// serving the old value under the grace TTL instead of erroring requests.
// Callers waiting on an in-flight resolution may abandon their wait via ctx
// without cancelling the resolution other callers share.
func (c *Cache) GetOrResolve(ctx context.Context, key string, resolve ResolveFunc) (*domain.PostTree, error) {
	c.mu.Lock()
	now := c.now()
	e := c.entries[key]

	if e != nil && e.value != nil {
		value := e.value
		if now.Before(e.expiresAt) {
			c.touchLocked(key)
			c.mu.Unlock()
			return value, nil
		}
		if e.pending == nil {
			e.pending = c.refresh(key, resolve)
		}
		c.touchLocked(key)
		c.mu.Unlock()
		return value, nil
	}

	if e != nil && e.pending != nil {
		pending := e.pending
		c.mu.Unlock()
		return await(ctx, pending)
	}

	// Register the in-flight handle under the lock, before any resolution
	// work starts, so concurrent callers for the same key coalesce onto it.
	pending := c.refresh(key, resolve)
	c.entries[key] = &entry{pending: pending}
	c.order = append(c.order, key)
	c.evictLocked()
	c.mu.Unlock()
	return await(ctx, pending)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func await(ctx context.Context, pending *inflight) (*domain.PostTree, error) {
	select {
	case <-pending.done:
		return pending.value, pending.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh starts one upstream resolution. The goroutine runs on a context
// detached from any caller so an abandoned wait cannot cancel it.
func (c *Cache) refresh(key string, resolve ResolveFunc) *inflight {
	pending := &inflight{done: make(chan struct{})}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.resolveTimeout)
		defer cancel()

		value, err := resolve(ctx)

		c.mu.Lock()
		if err == nil {
			c.entries[key] = &entry{
				value:     value,
				expiresAt: c.now().Add(c.ttl),
			}
			c.touchLocked(key)
			c.evictLocked()
		} else if e := c.entries[key]; e != nil && e.value != nil {
			// Refresh failed but an old value exists: keep serving it under
			// the shortened grace TTL so a transient outage degrades
			// gracefully.
			e.expiresAt = c.now().Add(c.graceTTL)
			e.pending = nil
			value, err = e.value, nil
			c.logger.Warn("cache refresh failed, serving stale value", "key", key)
		} else {
			c.deleteLocked(key)
		}
		c.mu.Unlock()

		pending.value = value
		pending.err = err
		close(pending.done)
	}()
	return pending
}

// touchLocked moves key to the newest position in insertion order.
func (c *Cache) touchLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

func (c *Cache) deleteLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// evictLocked removes oldest-inserted entries until back under the bound.
func (c *Cache) evictLocked() {
	for len(c.entries) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
