package blob

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"tgdrive/internal/domain"
	"tgdrive/internal/metrics"
)

// Cache keeps one Store per distinct credential token for the life of the
// process. Entries are never evicted, so a Store handed out stays valid.
type Cache struct {
	factory Factory
	metrics *metrics.Metrics // optional
	logger  *slog.Logger

	mu     sync.RWMutex
	stores map[string]Store
	group  singleflight.Group
}

// NewCache creates an empty cache. m may be nil.
func NewCache(factory Factory, m *metrics.Metrics, logger *slog.Logger) *Cache {
	return &Cache{
		factory: factory,
		metrics: m,
		logger:  logger,
		stores:  make(map[string]Store),
	}
}

// Get returns the Store for token, building it on first use. Concurrent first
// lookups for one token share a single construction.
func (c *Cache) Get(token string) (Store, error) {
	if token == "" {
		return nil, fmt.Errorf("empty transport token: %w", domain.ErrCredentialCorrupted)
	}

	// Fast path: cache hit under read lock
	c.mu.RLock()
	if s, ok := c.stores[token]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(token, func() (any, error) {
		c.mu.RLock()
		s, ok := c.stores[token]
		c.mu.RUnlock()
		if ok {
			return s, nil
		}

		built, err := c.build(token)
		if err != nil {
			return nil, err
		}
		return c.put(token, built), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create transport adapter: %w", err)
	}

	return v.(Store), nil
}

// Peek returns the cached Store for token, or a fresh Store that is not
// cached. Registration vets a credential through Peek and calls Adopt only
// once the transport accepted it, so rejected tokens never occupy the cache.
func (c *Cache) Peek(token string) (Store, error) {
	if token == "" {
		return nil, fmt.Errorf("empty transport token: %w", domain.ErrCredentialCorrupted)
	}

	c.mu.RLock()
	s, ok := c.stores[token]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	built, err := c.build(token)
	if err != nil {
		return nil, fmt.Errorf("create transport adapter: %w", err)
	}
	return built, nil
}

// Adopt caches s for token unless a Store is already held for it, and
// returns the Store the cache keeps.
func (c *Cache) Adopt(token string, s Store) Store {
	if token == "" || s == nil {
		return s
	}
	return c.put(token, s)
}

func (c *Cache) build(token string) (Store, error) {
	built, err := c.factory(token)
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, errors.New("transport factory returned no store")
	}
	if c.metrics != nil {
		built = Instrument(built, c.metrics)
	}
	return built, nil
}

// put stores s unless token already has an entry; the first entry wins.
func (c *Cache) put(token string, s Store) Store {
	c.mu.Lock()
	if held, ok := c.stores[token]; ok {
		c.mu.Unlock()
		return held
	}
	c.stores[token] = s
	size := len(c.stores)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.AdaptersCached.Set(float64(size))
	}
	c.logger.Debug("transport adapter created", "cached", size)
	return s
}

// Len returns the number of cached stores
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stores)
}
