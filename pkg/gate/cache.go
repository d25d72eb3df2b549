package gate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/leadhustle/platform/pkg/billing"
)

// ResolveFunc performs an authoritative status resolution for the session's
// account.
type ResolveFunc func(ctx context.Context) (billing.Snapshot, error)

// Cache holds the last resolved subscription snapshot for one client
// session. It is the single source of truth for that session's status within
// one client lifetime, with explicit invalidation instead of ambient state.
//
// A nil snapshot means no resolution has completed yet. On a failed refresh
// the last known snapshot is kept, so a transient provider outage never
// downgrades a session that was already resolved.
type Cache struct {
	mu      sync.RWMutex
	snap    *billing.Snapshot
	resolve ResolveFunc
	log     *slog.Logger
}

// NewCache creates an unresolved cache bound to a resolve function.
func NewCache(resolve ResolveFunc, log *slog.Logger) *Cache {
	if resolve == nil {
		panic("gate: ResolveFunc is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{resolve: resolve, log: log}
}

// Snapshot returns the cached snapshot, or nil when not yet resolved.
func (c *Cache) Snapshot() *billing.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil
	}
	cp := *c.snap
	return &cp
}

// Refresh resolves the status and replaces the cached snapshot. On error the
// previous snapshot is kept and the error returned so interactive callers
// can surface a retryable notification.
func (c *Cache) Refresh(ctx context.Context) error {
	snap, err := c.resolve(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "subscription refresh failed, keeping cached snapshot",
			slog.Any("error", err))
		return err
	}

	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()
	return nil
}

// Clear drops the cached snapshot, returning the cache to the unresolved
// state. Called on sign-out.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// Decide applies the access gate to the current cached state.
func (c *Cache) Decide(authenticated bool) RouteClass {
	return Decide(authenticated, c.Snapshot())
}
