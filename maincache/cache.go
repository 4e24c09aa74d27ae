package maincache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Record is any full entity record addressable by a primary key.
type Record interface {
	PrimaryKey() uuid.UUID
}

// EvictionPolicy selects how Cache picks a victim when it would exceed
// MaxEntries.
type EvictionPolicy int

const (
	// LRU evicts the least recently accessed entry; Get refreshes
	// recency, Contains does not.
	LRU EvictionPolicy = iota
	// FIFO evicts the least recently inserted entry regardless of access.
	FIFO
)

// Config configures a Cache.
type Config struct {
	MaxEntries     int
	EvictionPolicy EvictionPolicy
	TTL            time.Duration // zero disables TTL
}

// Statistics reports cumulative cache counters.
type Statistics struct {
	Hits         int64
	Misses       int64
	Evictions    int64
	Invalidations int64
	Size         int64
}

type entry[T Record] struct {
	key        uuid.UUID
	value      T
	insertedAt time.Time
}

// Cache is a bounded, single entity-kind cache with LRU or FIFO eviction
// and optional TTL.
type Cache[T Record] struct {
	mu     sync.Mutex
	cfg    Config
	items  map[uuid.UUID]*list.Element
	order  *list.List // front = most recently used/inserted, back = victim

	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	invalidations atomic.Int64
}

// New constructs an empty Cache with the given configuration.
func New[T Record](cfg Config) *Cache[T] {
	return &Cache[T]{
		cfg:   cfg,
		items: make(map[uuid.UUID]*list.Element),
		order: list.New(),
	}
}

// Insert adds or replaces entity under its primary key.
func (c *Cache[T]) Insert(e T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(e)
}

// Update is semantically equivalent to Insert.
func (c *Cache[T]) Update(e T) {
	c.Insert(e)
}

// Remove drops pk from the cache. Idempotent.
func (c *Cache[T]) Remove(pk uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[pk]; ok {
		c.removeElementLocked(el)
	}
}

// Get returns the entity for pk. A miss (absent or TTL-expired) returns
// ok=false and never a stale value; an LRU hit refreshes recency.
func (c *Cache[T]) Get(pk uuid.UUID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[pk]
	if !ok {
		c.misses.Add(1)
		var zero T
		return zero, false
	}

	ent := el.Value.(*entry[T])
	if c.expiredLocked(ent) {
		c.removeElementLocked(el)
		c.invalidations.Add(1)
		c.misses.Add(1)
		var zero T
		return zero, false
	}

	if c.cfg.EvictionPolicy == LRU {
		c.order.MoveToFront(el)
	}
	c.hits.Add(1)
	return ent.value, true
}

// Contains reports presence without updating LRU recency or hit/miss
// statistics. TTL-expired entries are treated as absent but
// are not lazily removed by Contains (only Get performs lazy removal).
func (c *Cache[T]) Contains(pk uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[pk]
	if !ok {
		return false
	}
	return !c.expiredLocked(el.Value.(*entry[T]))
}

// Statistics returns a snapshot of cumulative counters.
func (c *Cache[T]) Statistics() Statistics {
	c.mu.Lock()
	size := int64(len(c.items))
	c.mu.Unlock()
	return Statistics{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		Invalidations: c.invalidations.Load(),
		Size:          size,
	}
}

func (c *Cache[T]) insertLocked(e T) {
	pk := e.PrimaryKey()
	now := time.Now()

	if el, ok := c.items[pk]; ok {
		ent := el.Value.(*entry[T])
		ent.value = e
		ent.insertedAt = now
		if c.cfg.EvictionPolicy == LRU {
			c.order.MoveToFront(el)
		}
		return
	}

	ent := &entry[T]{key: pk, value: e, insertedAt: now}
	el := c.order.PushFront(ent)
	c.items[pk] = el

	for len(c.items) > c.cfg.MaxEntries {
		if c.order.Back() == nil {
			break
		}
		c.evictOneLocked()
	}
}

func (c *Cache[T]) evictOneLocked() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.removeElementLocked(el)
	c.evictions.Add(1)
}

func (c *Cache[T]) removeElementLocked(el *list.Element) {
	c.order.Remove(el)
	ent := el.Value.(*entry[T])
	delete(c.items, ent.key)
}

func (c *Cache[T]) expiredLocked(ent *entry[T]) bool {
	if c.cfg.TTL <= 0 {
		return false
	}
	return time.Since(ent.insertedAt) > c.cfg.TTL
}
