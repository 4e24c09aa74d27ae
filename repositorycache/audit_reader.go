package repositorycache

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/corebank/repocore/cache"
	"github.com/corebank/repocore/corerepo"
	"github.com/google/uuid"
)

// AuditReader is the one read corerepo.Repository[T, I] exposes that C2/C3
// don't already serve from memory: a paginated scan of an entity's audit
// history. CachedAuditReader decorates it the same way CachedRepository
// decorates go-repository-bun's Repository[T] — read-through, with writes
// invalidating by key prefix.
type AuditReader[T corerepo.Entity] interface {
	LoadAudits(ctx context.Context, pk uuid.UUID, limit, offset int) (corerepo.AuditPage[T], error)
}

// CachedAuditReader wraps an AuditReader with a read-through cache, keyed
// per entity id so one entity's writes never invalidate another's pages.
type CachedAuditReader[T corerepo.Entity] struct {
	base          AuditReader[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	keyRegistry   *sync.Map
	kind          string
}

// NewAuditReader builds a CachedAuditReader over base. kind is derived from
// T's type name via toSnake, the same normalization the teacher's cache
// namespace tooling uses, so two entity kinds sharing a cache backend never
// collide on a bare "LoadAudits" prefix.
func NewAuditReader[T corerepo.Entity](base AuditReader[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) *CachedAuditReader[T] {
	var zero T
	return &CachedAuditReader[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		keyRegistry:   &sync.Map{},
		kind:          toSnake(reflect.TypeOf(zero).Name()),
	}
}

// LoadAudits serves pk's audit page from cache when present, otherwise
// fetches from base and caches the result. Cache tags set on ctx via
// WithCacheTags are folded into the key after limit/offset, so a caller
// scoping reads to a tenant or region never collides with, or is served
// stale data cached under, a different tag set for the same page.
func (c *CachedAuditReader[T]) LoadAudits(ctx context.Context, pk uuid.UUID, limit, offset int) (corerepo.AuditPage[T], error) {
	tags := cacheTagsFromContext(ctx)
	key := c.keySerializer.SerializeKey("LoadAudits", c.kind, pk, limit, offset, tags)
	c.keyRegistry.Store(key, struct{}{})
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (corerepo.AuditPage[T], error) {
		return c.base.LoadAudits(ctx, pk, limit, offset)
	})
}

// InvalidateAudits drops every cached page for pk, across every tag set it
// was cached under. Callers invoke this after create_batch/update_batch/
// delete_batch touches pk, since a new audit row changes every page's
// total and, for page 0, its contents.
func (c *CachedAuditReader[T]) InvalidateAudits(ctx context.Context, pk uuid.UUID) error {
	prefix := c.keySerializer.SerializeKey("LoadAudits", c.kind, pk)
	var keysToDelete []string
	c.keyRegistry.Range(func(k, _ any) bool {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			keysToDelete = append(keysToDelete, key)
		}
		return true
	})
	for _, key := range keysToDelete {
		if err := c.cache.Delete(ctx, key); err != nil {
			return fmt.Errorf("invalidate audit cache key %q: %w", key, err)
		}
		c.keyRegistry.Delete(key)
	}
	return nil
}
