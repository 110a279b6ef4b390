package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a capacity- and age-bounded in-process key/value store. Entries
// expire a fixed TTL after insertion; when full, the entry with the oldest
// last access is evicted (true LRU, a Get protects an entry from eviction
// but does not extend its TTL).
//
// A miss, whether the key was never set, expired, or evicted, is a normal
// outcome, never an error.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[K]*list.Element
	order   *list.List // front = most recently accessed
	now     func() time.Time
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	insertedAt time.Time
}

func New[K comparable, V any](maxSize int, ttl time.Duration) *Cache[K, V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache[K, V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[K]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.value = value
		ent.insertedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evictOldest()
	}

	el := c.order.PushFront(&entry[K, V]{key: key, value: value, insertedAt: c.now()})
	c.items[key] = el
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[K, V])
	if c.now().Sub(ent.insertedAt) > c.ttl {
		c.remove(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

func (c *Cache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) evictOldest() {
	if el := c.order.Back(); el != nil {
		c.remove(el)
	}
}

func (c *Cache[K, V]) remove(el *list.Element) {
	ent := el.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.order.Remove(el)
}
