package alias

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize bounds the number of project roots kept in memory.
const DefaultCacheSize = 64

// Cache keeps one alias table snapshot per project root until the root is
// invalidated. Tables are never mutated, only replaced.
type Cache struct {
	loader *Loader
	tables *lru.Cache[string, *Table]
	group  singleflight.Group

	// mu orders stores against invalidations; generation changes on every
	// invalidation so a load that raced with one is not stored.
	mu         sync.Mutex
	generation atomic.Uint64
	loads      atomic.Int64

	onLoad func(ctx context.Context, root string, table *Table)
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLoadHook calls fn after every load from the source.
func WithLoadHook(fn func(ctx context.Context, root string, table *Table)) CacheOption {
	return func(c *Cache) {
		c.onLoad = fn
	}
}

// NewCache creates a cache holding at most size roots. Non-positive sizes
// use DefaultCacheSize.
func NewCache(loader *Loader, size int, opts ...CacheOption) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}

	// lru.New only fails for non-positive sizes.
	tables, _ := lru.New[string, *Table](size)

	c := &Cache{loader: loader, tables: tables}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the cached table for root, loading it on first use.
// Callers that join an in-flight load share its result, so the load
// ignores the cancellation of whichever caller started it.
func (c *Cache) Get(ctx context.Context, root string) *Table {
	key := filepath.Clean(root)

	if table, ok := c.tables.Get(key); ok {
		return table
	}

	loadCtx := context.WithoutCancel(ctx)

	value, _, _ := c.group.Do(key, func() (any, error) {
		gen := c.generation.Load()

		table := c.loader.Load(loadCtx, key)
		c.loads.Add(1)

		if c.onLoad != nil {
			c.onLoad(loadCtx, key, table)
		}

		c.mu.Lock()
		if c.generation.Load() == gen {
			c.tables.Add(key, table)
		}
		c.mu.Unlock()

		return table, nil
	})

	table, _ := value.(*Table)

	return table
}

// Invalidate drops the snapshot for root; the next Get reloads it.
func (c *Cache) Invalidate(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation.Add(1)
	c.tables.Remove(filepath.Clean(root))
	c.group.Forget(filepath.Clean(root))
}

// InvalidateAll drops every snapshot.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation.Add(1)
	c.tables.Purge()
}

// Loads reports how many times configuration was read from the source.
func (c *Cache) Loads() int64 {
	return c.loads.Load()
}
