package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheOptions configures a Cached catalog.
type CacheOptions struct {
	// TTL is how long a category's attributes are served from memory.
	// Zero keeps entries until they are invalidated.
	TTL time.Duration

	// LoadTimeout bounds one load from the inner catalog. A load is shared
	// by every caller waiting on the category, so it does not follow any
	// single caller's context. Zero means no bound.
	LoadTimeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Cached memoizes the attributes of each category loaded from another Catalog.
// Concurrent misses for the same category share one load.
// Cached is goroutine-safe.
type Cached struct {
	inner       Catalog
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	entries map[int64]*cacheEntry
	// generation is bumped on every invalidation so loads started before it
	// are not stored.
	generation uint64

	group singleflight.Group
}

type cacheEntry struct {
	defs      []AttributeDefinition
	names     map[string]struct{}
	expiresAt time.Time
}

// NewCached wraps inner with a per-category cache.
func NewCached(inner Catalog, opts CacheOptions) *Cached {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cached{
		inner:       inner,
		ttl:         opts.TTL,
		loadTimeout: opts.LoadTimeout,
		now:         now,
		entries:     make(map[int64]*cacheEntry),
	}
}

// AttributeNames implements Catalog interface.
func (c *Cached) AttributeNames(ctx context.Context, categoryID int64) (map[string]struct{}, error) {
	e, err := c.entry(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return e.names, nil
}

// Definitions implements Catalog interface.
func (c *Cached) Definitions(ctx context.Context, categoryID int64) ([]AttributeDefinition, error) {
	e, err := c.entry(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]AttributeDefinition, len(e.defs))
	copy(out, e.defs)
	return out, nil
}

// Invalidate drops the cached attributes of one category.
func (c *Cached) Invalidate(categoryID int64) {
	c.mu.Lock()
	delete(c.entries, categoryID)
	c.generation++
	c.mu.Unlock()
	c.group.Forget(strconv.FormatInt(categoryID, 10))
}

// InvalidateAll drops every cached category.
func (c *Cached) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[int64]*cacheEntry)
	c.generation++
	c.mu.Unlock()
}

// Len returns the number of cached categories, expired ones included.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// entry returns the cached attributes of a category, loading them on a miss.
// The caller stops waiting when ctx is done; the shared load carries on for
// the other waiters.
func (c *Cached) entry(ctx context.Context, categoryID int64) (*cacheEntry, error) {
	c.mu.RLock()
	e, ok := c.entries[categoryID]
	gen := c.generation
	c.mu.RUnlock()
	if ok && (c.ttl == 0 || c.now().Before(e.expiresAt)) {
		return e, nil
	}

	ch := c.group.DoChan(strconv.FormatInt(categoryID, 10), func() (any, error) {
		return c.load(context.WithoutCancel(ctx), categoryID, gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cacheEntry), nil
	}
}

// load reads one category from the inner catalog and stores it unless the
// cache was invalidated after gen was observed.
func (c *Cached) load(ctx context.Context, categoryID int64, gen uint64) (*cacheEntry, error) {
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}
	defs, err := c.inner.Definitions(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	e := &cacheEntry{
		defs:  defs,
		names: NameSet(defs),
	}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	if c.generation == gen {
		c.entries[categoryID] = e
	}
	c.mu.Unlock()
	return e, nil
}
