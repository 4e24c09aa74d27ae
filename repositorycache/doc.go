// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// This package implements the repository decorator pattern to add caching capabilities
// to existing repository implementations from go-repository-bun. The cached repository
// wraps a base repository and intercepts read operations to provide caching while
// delegating write operations directly to the base repository.
//
// # Key Features
//
//   - **Type-safe caching**: Uses Go generics to maintain type safety across cached operations
//   - **Selective caching**: Only read operations are cached; write operations pass through
//   - **Transaction awareness**: Transaction-based reads bypass the cache
//   - **Pluggable key strategy**: Configurable key serialization via KeySerializer interface
//   - **Write invalidation**: Successful writes delete the tracked cached reads they may affect
//
// # Basic Usage
//
// Create a cached repository by wrapping an existing repository:
//
//	base := myrepo.New(db) // Your existing go-repository-bun repository
//	cacheService, err := cache.NewCacheService(cacheConfig)
//	keySerializer := cache.NewDefaultKeySerializer()
//
//	cached := repositorycache.New(base, cacheService, keySerializer)
//
//	// Use exactly like your base repository
//	user, err := cached.GetByID(ctx, "user-123")
//	users, total, err := cached.List(ctx, repository.Where("active", true))
//
// # Cached vs Pass-through Operations
//
// ## Cached Operations (Read-only)
//
// These operations use the cache for improved performance:
//   - Get, GetByID, GetByIdentifier
//   - List, Count
//
// ## Pass-through Operations
//
// These operations are not served from the cache and go directly to the base repository:
//   - All write operations (Create, Update, Upsert, Delete and variants, including
//     their *Tx forms); after a successful write the decorator also invalidates
//     cached reads (see Cache Invalidation)
//   - Transaction-based reads (GetTx, GetByIDTx, ListTx, CountTx, GetByIdentifierTx)
//   - Raw SQL queries
//
// # Caching Behavior
//
// The cached repository follows a read-through caching pattern:
//
//  1. Check cache for the serialized key
//  2. If cache hit, return cached result
//  3. If cache miss, call base repository
//  4. Store result in cache
//  5. Return result to caller
//
// Key serialization includes the method name and all parameters to ensure cache
// correctness across different query patterns.
//
// # Transaction Handling
//
// Reads within transactions (*Tx read methods) bypass the cache entirely, so they
// neither read cached data nor store uncommitted data in the cache. Writes within
// transactions (*Tx write methods) invalidate cached reads as soon as the base
// call returns without error, before the transaction itself commits.
//
// # Cache Invalidation
//
// Every key used by a cached read is recorded in a key registry. After a
// successful write the decorator deletes registered keys by prefix:
//   - Create, CreateMany, GetOrCreate (and *Tx forms): keys starting with "List" or "Count"
//   - Update, Upsert, Delete, ForceDelete and their bulk/*Tx forms: keys starting
//     with "List", "Count" or "Get" (which covers GetByID and GetByIdentifier)
//   - DeleteMany, DeleteWhere (and *Tx forms): keys for all cached read methods
//
// Only keys in the registry are deleted; errors from the cache's Delete are ignored.
//
// # Integration with Dependency Injection
//
// This package is designed to work with the dependency injection container
// provided in pkg/di:
//
//	container, err := di.NewContainer(cacheConfig)
//	if err != nil {
//		return err
//	}
//	cachedRepo := container.NewCachedRepository(baseRepo)
//
// # Compatibility
//
// The CachedRepository[T] fully implements the repository.Repository[T] interface
// from go-repository-bun, making it a drop-in replacement for existing repository
// usage. The decorator pattern ensures that all methods are available and maintain
// the same signatures as the base interface.
//
// # Performance Considerations
//
//   - Cache hits avoid database roundtrips for read operations
//   - Key serialization has minimal overhead using reflection
//   - List operations cache both records and total count as a unit
//   - Function criteria in keys use pointer addresses (stable per process)
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged. An error returned
// by the cache service's GetOrFetch is returned to the caller as is; the base
// repository is not called as a fallback. Invalidation after a write never
// turns a successful write into an error.
//
// # See Also
//
// For cache configuration and key serialization details, see the cache package.
// For dependency injection setup, see the pkg/di package.
package repositorycache
