package di

import (
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/corebank/repocore/auditlog"
	"github.com/corebank/repocore/cache"
	"github.com/corebank/repocore/corerepo"
	"github.com/corebank/repocore/idxcache"
	"github.com/corebank/repocore/notifylisten"
	"github.com/corebank/repocore/repositorycache"
	"github.com/corebank/repocore/txrun"
	"github.com/uptrace/bun"
)

// Container provides dependency injection for cache related components.
// It manages singleton instances of cache services and key serializers,
// and provides factory methods for creating cached repositories and
// corerepo.Repository instances, optionally wired to a notifylisten.Listener
// for cross-node cache convergence.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	config        cache.Config

	factory  *corerepo.Factory
	listener *notifylisten.Listener
}

// NewContainer creates a new DI container with the provided cache configuration.
// It initializes the cache service using the sturdyc adapter and sets up
// the default key serializer for consistent key generation.
func NewContainer(config cache.Config) (*Container, error) {
	// Initialize the cache service using the sturdyc adapter
	cacheService, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}

	// Initialize the default key serializer
	keySerializer := cache.NewDefaultKeySerializer()

	return &Container{
		cacheService:  cacheService,
		keySerializer: keySerializer,
		config:        config,
	}, nil
}

// WithRepositoryFactory builds a corerepo.Factory over db and issuer and
// attaches it to the container, so later calls to Repository can register
// entity kinds against it. listenerConnStr may be empty to run without a
// notifylisten.Listener (single-node tools, tests).
func (c *Container) WithRepositoryFactory(db *bun.DB, issuer auditlog.Issuer, listenerConnStr string) *Container {
	var l *notifylisten.Listener
	if listenerConnStr != "" {
		l = notifylisten.New(listenerConnStr, time.Second, time.Minute)
	}
	c.listener = l
	c.factory = corerepo.NewFactory(txrun.NewExecutor(db), issuer, l)
	return c
}

// Factory returns the corerepo.Factory built by WithRepositoryFactory, or
// nil if it was never called.
func (c *Container) Factory() *corerepo.Factory {
	return c.factory
}

// Listener returns the notifylisten.Listener built by WithRepositoryFactory,
// or nil if none was configured.
func (c *Container) Listener() *notifylisten.Listener {
	return c.listener
}

// Repository registers desc against the container's Factory and returns the
// resulting Repository, ready for create/load/update/delete/load_audits
// calls. WithRepositoryFactory must be called first. Since Go methods
// cannot carry their own type parameters, this is a package-level function,
// mirroring NewCachedRepository below.
func Repository[T corerepo.Entity, I idxcache.Record](c *Container, desc corerepo.Descriptor[T, I], codec *corerepo.NotificationCodec[T, I]) (*corerepo.Repository[T, I], error) {
	return corerepo.For[T, I](c.factory, desc, codec)
}

// CachedAuditReader wraps base with the container's cache service and key
// serializer, giving load_audits pagination a read-through cache the same
// way NewCachedRepository does for go-repository-bun repositories.
func CachedAuditReader[T corerepo.Entity](c *Container, base repositorycache.AuditReader[T]) *repositorycache.CachedAuditReader[T] {
	return repositorycache.NewAuditReader[T](base, c.cacheService, c.keySerializer)
}

// NewContainerWithDefaults creates a new DI container using default configuration.
// This is a convenience constructor for typical use cases where custom configuration
// is not required.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// CacheService returns the singleton cache service instance.
// This allows access to the underlying cache for advanced use cases.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
// This allows access to the key serializer for custom caching implementations.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
// This is useful for debugging and monitoring purposes.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewCachedRepository creates a new cached repository that wraps the provided base repository.
// It wires together the cache service, key serializer, and base repository to provide
// a drop-in replacement with caching capabilities.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T]) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, container.cacheService, container.keySerializer)
}
