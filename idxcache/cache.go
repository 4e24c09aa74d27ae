package idxcache

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Record is any index record addressable by a primary key.
type Record interface {
	PrimaryKey() uuid.UUID
}

// KeyKind classifies a secondary key as either an integer-hash value or a
// UUID foreign-key reference.
type KeyKind int

const (
	I64Key KeyKind = iota
	UUIDKey
)

// KeySpec declares one secondary key for an index record type. Exactly one
// of I64Value/UUIDValue should be set, matching Kind.
type KeySpec[I Record] struct {
	Name     string
	Kind     KeyKind
	I64Value func(I) (int64, bool)
	UUIDValue func(I) (uuid.UUID, bool)
}

type pkSet = *xsync.MapOf[uuid.UUID, struct{}]

// Cache is the shared, process-wide index cache for one entity kind.
// All public methods are safe for concurrent use without suspending —
// required so the notification listener's background goroutine and
// transaction-bound code never contend on a held lock across I/O.
type Cache[I Record] struct {
	specs []KeySpec[I]

	primary *xsync.MapOf[uuid.UUID, I]
	i64idx  map[string]*xsync.MapOf[int64, pkSet]
	uuididx map[string]*xsync.MapOf[uuid.UUID, pkSet]
}

// New constructs an empty index cache for the given secondary-key
// declarations. The set of secondary keys is fixed for the lifetime of the
// cache.
func New[I Record](specs []KeySpec[I]) *Cache[I] {
	c := &Cache[I]{
		specs:   specs,
		primary: xsync.NewMapOf[uuid.UUID, I](),
		i64idx:  make(map[string]*xsync.MapOf[int64, pkSet]),
		uuididx: make(map[string]*xsync.MapOf[uuid.UUID, pkSet]),
	}
	for _, s := range specs {
		switch s.Kind {
		case I64Key:
			c.i64idx[s.Name] = xsync.NewMapOf[int64, pkSet]()
		case UUIDKey:
			c.uuididx[s.Name] = xsync.NewMapOf[uuid.UUID, pkSet]()
		}
	}
	return c
}

// Add inserts or replaces the record for its primary key, rebuilding all
// secondary reverse-map entries. Replacing an existing key removes all of
// its old reverse entries first, even where old and new share a value.
func (c *Cache[I]) Add(rec I) {
	pk := rec.PrimaryKey()
	if old, ok := c.primary.Load(pk); ok {
		c.unindex(pk, old)
	}
	c.primary.Store(pk, rec)
	c.index(pk, rec)
}

// Remove deletes the record for pk from the primary map and from every
// secondary reverse-map entry it participated in.
func (c *Cache[I]) Remove(pk uuid.UUID) (I, bool) {
	old, ok := c.primary.LoadAndDelete(pk)
	if ok {
		c.unindex(pk, old)
	}
	return old, ok
}

// GetByPrimary returns the record stored for pk, if any.
func (c *Cache[I]) GetByPrimary(pk uuid.UUID) (I, bool) {
	return c.primary.Load(pk)
}

// ContainsPrimary reports whether pk is present, without affecting any
// access-order bookkeeping (the index cache has none).
func (c *Cache[I]) ContainsPrimary(pk uuid.UUID) bool {
	_, ok := c.primary.Load(pk)
	return ok
}

// GetByI64Index returns every record whose secondary key keyName equals v.
func (c *Cache[I]) GetByI64Index(keyName string, v int64) []I {
	m, ok := c.i64idx[keyName]
	if !ok {
		return nil
	}
	set, ok := m.Load(v)
	if !ok {
		return nil
	}
	return c.resolve(set)
}

// GetByUUIDIndex returns every record whose secondary key keyName equals v.
func (c *Cache[I]) GetByUUIDIndex(keyName string, v uuid.UUID) []I {
	m, ok := c.uuididx[keyName]
	if !ok {
		return nil
	}
	set, ok := m.Load(v)
	if !ok {
		return nil
	}
	return c.resolve(set)
}

// Len returns the number of records currently held.
func (c *Cache[I]) Len() int {
	return c.primary.Size()
}

// I64ValueFor reports the int64 secondary-key value rec would index under
// for keyName, without touching the cache itself. Used by txcache to merge
// staged, not-yet-committed records into a secondary-key read.
func (c *Cache[I]) I64ValueFor(keyName string, rec I) (int64, bool) {
	for _, s := range c.specs {
		if s.Name == keyName && s.Kind == I64Key {
			return s.I64Value(rec)
		}
	}
	return 0, false
}

// UUIDValueFor is I64ValueFor's UUID-keyed counterpart.
func (c *Cache[I]) UUIDValueFor(keyName string, rec I) (uuid.UUID, bool) {
	for _, s := range c.specs {
		if s.Name == keyName && s.Kind == UUIDKey {
			return s.UUIDValue(rec)
		}
	}
	return uuid.Nil, false
}

func (c *Cache[I]) resolve(set pkSet) []I {
	out := make([]I, 0, set.Size())
	set.Range(func(pk uuid.UUID, _ struct{}) bool {
		if rec, ok := c.primary.Load(pk); ok {
			out = append(out, rec)
		}
		return true
	})
	return out
}

func (c *Cache[I]) index(pk uuid.UUID, rec I) {
	for _, s := range c.specs {
		switch s.Kind {
		case I64Key:
			v, present := s.I64Value(rec)
			if !present {
				continue
			}
			m := c.i64idx[s.Name]
			set, _ := m.LoadOrCompute(v, func() pkSet { return xsync.NewMapOf[uuid.UUID, struct{}]() })
			set.Store(pk, struct{}{})
		case UUIDKey:
			v, present := s.UUIDValue(rec)
			if !present {
				continue
			}
			m := c.uuididx[s.Name]
			set, _ := m.LoadOrCompute(v, func() pkSet { return xsync.NewMapOf[uuid.UUID, struct{}]() })
			set.Store(pk, struct{}{})
		}
	}
}

func (c *Cache[I]) unindex(pk uuid.UUID, rec I) {
	for _, s := range c.specs {
		switch s.Kind {
		case I64Key:
			v, present := s.I64Value(rec)
			if !present {
				continue
			}
			if set, ok := c.i64idx[s.Name].Load(v); ok {
				set.Delete(pk)
			}
		case UUIDKey:
			v, present := s.UUIDValue(rec)
			if !present {
				continue
			}
			if set, ok := c.uuididx[s.Name].Load(v); ok {
				set.Delete(pk)
			}
		}
	}
}
