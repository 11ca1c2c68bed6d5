package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/infrastructure/store"
)

const (
	CacheKey   = "ceremic_collections_cache"
	DefaultTTL = 30 * time.Minute
)

// cacheEntry is the persisted shape: raw products plus the write time in
// unix milliseconds.
type cacheEntry struct {
	Data      []*backend.RawProduct `json:"data"`
	Timestamp int64                `json:"timestamp"`
}

// Cache holds the raw catalog for a fixed TTL. The entry is replaced or
// dropped as a whole; concurrent writers race and the last one wins.
type Cache struct {
	storage store.Storage
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCache(storage store.Storage, opts ...CacheOption) *Cache {
	c := &Cache{
		storage: storage,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "catalog_cache")
	return c
}

// Get returns the cached raw catalog while it is fresh. Expired or
// unreadable entries are removed and reported as a miss.
func (c *Cache) Get(ctx context.Context) ([]*backend.RawProduct, bool) {
	raw, ok, err := c.storage.Get(ctx, CacheKey)
	if err != nil {
		c.logger.Warn("catalog cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("discarding corrupt catalog cache entry", "error", err)
		c.purge(ctx)
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= c.ttl {
		c.logger.Debug("catalog cache expired", "age", age)
		c.purge(ctx)
		return nil, false
	}

	if entry.Data == nil {
		entry.Data = []*backend.RawProduct{}
	}
	return entry.Data, true
}

// Put stores products stamped with the current time.
func (c *Cache) Put(ctx context.Context, products []*backend.RawProduct) error {
	if products == nil {
		products = []*backend.RawProduct{}
	}
	raw, err := json.Marshal(cacheEntry{Data: products, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return err
	}
	return c.storage.Set(ctx, CacheKey, raw)
}

// Invalidate drops the entry regardless of age.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.storage.Delete(ctx, CacheKey)
}

func (c *Cache) purge(ctx context.Context) {
	if err := c.storage.Delete(ctx, CacheKey); err != nil {
		c.logger.Warn("catalog cache purge failed", "error", err)
	}
}
