package maincache

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type testEntity struct {
	ID  uuid.UUID
	Val string
}

func (t testEntity) PrimaryKey() uuid.UUID { return t.ID }

func TestCache_InsertGetRemove(t *testing.T) {
	c := New[testEntity](Config{MaxEntries: 10, EvictionPolicy: LRU})
	pk := uuid.New()
	c.Insert(testEntity{ID: pk, Val: "a"})

	got, ok := c.Get(pk)
	if !ok || got.Val != "a" {
		t.Fatalf("expected hit with value a, got %v ok=%v", got, ok)
	}

	c.Remove(pk)
	if _, ok := c.Get(pk); ok {
		t.Fatal("expected miss after remove")
	}

	stats := c.Statistics()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := New[testEntity](Config{MaxEntries: 2, EvictionPolicy: LRU})
	a, b, d := uuid.New(), uuid.New(), uuid.New()

	c.Insert(testEntity{ID: a, Val: "a"})
	c.Insert(testEntity{ID: b, Val: "b"})
	c.Get(a) // a is now most-recently used; b is the LRU victim
	c.Insert(testEntity{ID: d, Val: "d"})

	if _, ok := c.Get(b); ok {
		t.Fatal("expected b to have been evicted as least recently used")
	}
	if _, ok := c.Get(a); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get(d); !ok {
		t.Fatal("expected d to be present")
	}

	stats := c.Statistics()
	if stats.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestCache_FIFOEviction(t *testing.T) {
	c := New[testEntity](Config{MaxEntries: 2, EvictionPolicy: FIFO})
	a, b, d := uuid.New(), uuid.New(), uuid.New()

	c.Insert(testEntity{ID: a, Val: "a"})
	c.Insert(testEntity{ID: b, Val: "b"})
	c.Get(a) // FIFO ignores access order
	c.Insert(testEntity{ID: d, Val: "d"})

	if _, ok := c.Get(a); ok {
		t.Fatal("expected a (first inserted) to be evicted under FIFO regardless of access")
	}
	if _, ok := c.Get(b); !ok {
		t.Fatal("expected b to survive")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New[testEntity](Config{MaxEntries: 10, TTL: 10 * time.Millisecond})
	pk := uuid.New()
	c.Insert(testEntity{ID: pk, Val: "a"})

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(pk); ok {
		t.Fatal("expected TTL-expired entry to miss")
	}
	stats := c.Statistics()
	if stats.Invalidations != 1 {
		t.Fatalf("expected 1 invalidation, got %d", stats.Invalidations)
	}
	if stats.Evictions != 0 {
		t.Fatalf("TTL expiry must not count as an eviction, got %d", stats.Evictions)
	}
}

func TestCache_ContainsDoesNotAffectStats(t *testing.T) {
	c := New[testEntity](Config{MaxEntries: 10})
	pk := uuid.New()
	c.Insert(testEntity{ID: pk})

	if !c.Contains(pk) {
		t.Fatal("expected contains to be true")
	}
	stats := c.Statistics()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("expected Contains to not affect hit/miss stats, got %+v", stats)
	}
}

func TestCache_MaxEntriesZeroEvictsImmediately(t *testing.T) {
	c := New[testEntity](Config{MaxEntries: 0})
	pk := uuid.New()
	c.Insert(testEntity{ID: pk})

	if _, ok := c.Get(pk); ok {
		t.Fatal("expected immediate eviction with MaxEntries=0")
	}
	stats := c.Statistics()
	if stats.Evictions != 1 {
		t.Fatalf("expected 1 eviction per insert, got %d", stats.Evictions)
	}

	c.Insert(testEntity{ID: uuid.New()})
	stats = c.Statistics()
	if stats.Evictions != 2 {
		t.Fatalf("expected evictions to increment per insert, got %d", stats.Evictions)
	}
}
