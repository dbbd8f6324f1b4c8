package cache

import (
	"container/list"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultCapacity is the per-instance entry limit used by the API.
const DefaultCapacity = 300

var (
	hitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)
	missesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)
	evictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_cache_evictions_total",
			Help: "Total number of entries evicted on capacity",
		},
		[]string{"cache"},
	)
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// FIFO is a bounded map that evicts the oldest inserted key once a new key
// would push it past capacity. Reads do not affect eviction order.
type FIFO[K comparable, V any] struct {
	mu       sync.Mutex
	name     string
	capacity int
	order    *list.List
	items    map[K]*list.Element
}

// New returns an empty FIFO. A capacity below 1 is treated as 1.
func New[K comparable, V any](name string, capacity int) *FIFO[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &FIFO[K, V]{
		name:     name,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Get returns the value stored under key without touching eviction order.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		hitsTotal.WithLabelValues(c.name).Inc()
		return el.Value.(*entry[K, V]).value, true
	}
	missesTotal.WithLabelValues(c.name).Inc()
	var zero V
	return zero, false
}

// Put stores value under key. An existing key keeps its queue position.
func (c *FIFO[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		return
	}

	if c.order.Len()+1 > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
		evictionsTotal.WithLabelValues(c.name).Inc()
	}

	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value})
}

// Len reports the number of stored entries.
func (c *FIFO[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity reports the entry limit.
func (c *FIFO[K, V]) Capacity() int {
	return c.capacity
}
