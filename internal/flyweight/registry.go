// Package flyweight provides the registry that canonicalizes shared values by
// key.
//
// A Registry hands out exactly one instance per distinct key for its whole
// lifetime. Values are built lazily by a factory on first lookup and are
// never evicted; the key space is assumed small and finite. Registries are
// explicit values passed to their consumers, so tests can build a fresh one
// per case.
//
// Typical usage:
//
//	kinds := flyweight.New(kind.New, flyweight.WithCaseFold())
//	circle := kinds.GetOrCreate("circle")
//	same := kinds.GetOrCreate("Circle") // circle == same
package flyweight

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"

	"github.com/conneroisu/canopy/internal/logging"
)

// EventType represents the type of registry event
type EventType int

const (
	// EventCreated is emitted when a key is seen for the first time and its
	// value constructed.
	EventCreated EventType = iota
	// EventShared is emitted when an existing value is handed out again.
	EventShared
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Event represents a lookup served by the registry.
type Event[K comparable] struct {
	Type      EventType
	Key       K
	Timestamp time.Time
}

// Entry is a snapshot of one canonical value.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
	// Hits counts GetOrCreate calls served for Key, the constructing call
	// included.
	Hits int64
}

// Options control registry behavior.
type Options[K comparable] struct {
	// Normalizer canonicalizes keys before lookup. If nil, keys are used
	// as-is.
	Normalizer func(K) K
	// Logger receives debug records for constructions.
	Logger logging.Logger
	// WatchBuffer is the channel capacity handed out by Watch.
	WatchBuffer int
}

// Option modifies Options.
type Option[K comparable] func(*Options[K])

// WithNormalizer sets a custom key normalizer.
func WithNormalizer[K comparable](fn func(K) K) Option[K] {
	return func(o *Options[K]) { o.Normalizer = fn }
}

// WithCaseFold enables Unicode case folding of string keys, so "Circle" and
// "CIRCLE" share one instance.
func WithCaseFold() Option[string] {
	return WithNormalizer(func(k string) string {
		// a Caser is stateful and must not be shared between goroutines
		return cases.Fold().String(k)
	})
}

// WithLogger sets the logger used for construction records.
func WithLogger[K comparable](logger logging.Logger) Option[K] {
	return func(o *Options[K]) { o.Logger = logger }
}

// WithWatchBuffer sets the capacity of channels returned by Watch.
func WithWatchBuffer[K comparable](size int) Option[K] {
	return func(o *Options[K]) { o.WatchBuffer = size }
}

type entry[V any] struct {
	value V
	hits  atomic.Int64
}

// Registry maps keys to canonical values. It is safe for concurrent use.
type Registry[K comparable, V any] struct {
	factory       func(K) V
	items         map[K]*entry[V]
	mutex         sync.RWMutex
	watchers      []chan Event[K]
	constructions atomic.Int64
	opt           Options[K]
	logger        logging.Logger
}

// New creates an empty registry building values with factory. The factory
// runs under the registry lock and must not call back into the registry.
func New[K comparable, V any](factory func(K) V, opts ...Option[K]) *Registry[K, V] {
	if factory == nil {
		panic("flyweight: nil factory")
	}
	o := Options[K]{WatchBuffer: 100}
	for _, fn := range opts {
		fn(&o)
	}
	logger := o.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Registry[K, V]{
		factory: factory,
		items:   make(map[K]*entry[V]),
		opt:     o,
		logger:  logger.WithComponent("flyweight"),
	}
}

func (r *Registry[K, V]) normalize(k K) K {
	if r.opt.Normalizer != nil {
		return r.opt.Normalizer(k)
	}
	return k
}

// GetOrCreate returns the canonical value for key, constructing it on first
// access. Every call with an equal (normalized) key returns the same
// instance for the lifetime of the registry. It never fails.
func (r *Registry[K, V]) GetOrCreate(key K) V {
	key = r.normalize(key)

	r.mutex.RLock()
	if e, ok := r.items[key]; ok {
		e.hits.Add(1)
		r.notify(EventShared, key)
		r.mutex.RUnlock()
		return e.value
	}
	r.mutex.RUnlock()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// another caller may have won the race between the two locks
	if e, ok := r.items[key]; ok {
		e.hits.Add(1)
		r.notify(EventShared, key)
		return e.value
	}

	e := &entry[V]{value: r.factory(key)}
	e.hits.Store(1)
	r.items[key] = e
	r.constructions.Add(1)
	r.notify(EventCreated, key)
	r.logger.Debug(context.Background(), "flyweight constructed", "key", key, "size", len(r.items))

	return e.value
}

// Lookup returns the canonical value for key without constructing it.
func (r *Registry[K, V]) Lookup(key K) (V, bool) {
	key = r.normalize(key)
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	e, ok := r.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Hits returns how many GetOrCreate calls were served for key.
func (r *Registry[K, V]) Hits(key K) int64 {
	key = r.normalize(key)
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if e, ok := r.items[key]; ok {
		return e.hits.Load()
	}
	return 0
}

// Len returns the number of canonical values.
func (r *Registry[K, V]) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.items)
}

// Constructions returns the number of factory invocations so far. It always
// equals Len since nothing is evicted.
func (r *Registry[K, V]) Constructions() int64 {
	return r.constructions.Load()
}

// Keys returns a snapshot of the registered keys in no particular order.
func (r *Registry[K, V]) Keys() []K {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	keys := make([]K, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	return keys
}

// Entries returns a snapshot of all canonical values in no particular order.
func (r *Registry[K, V]) Entries() []Entry[K, V] {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	items := make([]Entry[K, V], 0, len(r.items))
	for k, e := range r.items {
		items = append(items, Entry[K, V]{Key: k, Value: e.value, Hits: e.hits.Load()})
	}
	return items
}

// SortedKeys returns the keys of r in ascending order.
func SortedKeys[K cmp.Ordered, V any](r *Registry[K, V]) []K {
	keys := r.Keys()
	slices.Sort(keys)
	return keys
}

// SortedEntries returns the entries of r ordered by key.
func SortedEntries[K cmp.Ordered, V any](r *Registry[K, V]) []Entry[K, V] {
	items := r.Entries()
	slices.SortFunc(items, func(a, b Entry[K, V]) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return items
}

// Watch returns a channel that receives registry events. Events are dropped
// for a watcher whose channel is full.
func (r *Registry[K, V]) Watch() <-chan Event[K] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan Event[K], r.opt.WatchBuffer)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *Registry[K, V]) UnWatch(ch <-chan Event[K]) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// notify must be called with the mutex held (read or write).
func (r *Registry[K, V]) notify(eventType EventType, key K) {
	if len(r.watchers) == 0 {
		return
	}
	event := Event[K]{
		Type:      eventType,
		Key:       key,
		Timestamp: time.Now(),
	}
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
