package flyweight

import (
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Expiring wraps the flyweight discipline around an expiring cache for
// callers that need eviction. Canonicalization only holds while an entry is
// cached: after expiry the next lookup constructs a fresh instance.
type Expiring[K ~string, V any] struct {
	factory       func(K) V
	cache         *gocache.Cache
	mutex         sync.Mutex
	constructions atomic.Int64
}

// NewExpiring creates an expiring registry. A ttl of zero or less keeps
// entries until Flush.
func NewExpiring[K ~string, V any](factory func(K) V, ttl, cleanupInterval time.Duration) *Expiring[K, V] {
	if factory == nil {
		panic("flyweight: nil factory")
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Expiring[K, V]{
		factory: factory,
		cache:   gocache.New(ttl, cleanupInterval),
	}
}

// GetOrCreate returns the cached value for key or constructs and caches a
// new one. Concurrent first lookups of a key construct once.
func (e *Expiring[K, V]) GetOrCreate(key K) V {
	if v, ok := e.get(key); ok {
		return v
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if v, ok := e.get(key); ok {
		return v
	}

	value := e.factory(key)
	e.cache.SetDefault(string(key), value)
	e.constructions.Add(1)
	return value
}

func (e *Expiring[K, V]) get(key K) (V, bool) {
	var zero V
	cached, found := e.cache.Get(string(key))
	if !found {
		return zero, false
	}
	v, ok := cached.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Len returns the number of cached entries, expired ones included until the
// janitor removes them.
func (e *Expiring[K, V]) Len() int {
	return e.cache.ItemCount()
}

// Constructions returns the number of factory invocations so far.
func (e *Expiring[K, V]) Constructions() int64 {
	return e.constructions.Load()
}

// Flush evicts every entry.
func (e *Expiring[K, V]) Flush() {
	e.cache.Flush()
}
