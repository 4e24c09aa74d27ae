// Package txcache implements the transaction-aware cache layer: a
// per-transaction journal of staged mutations sitting in
// front of the shared idxcache/maincache instances, so a read inside an
// in-flight transaction sees its own uncommitted writes without any other
// transaction or the notification listener observing them early.
//
// Index and Main are deliberately thin. All read-merge and write-journal
// logic lives here; the actual storage and concurrency guarantees are the
// wrapped idxcache.Cache/maincache.Cache's problem. Neither facade ever
// holds its own lock and the wrapped cache's lock at the same time — the
// journal has its own sync.Mutex, independent of the shared cache.
package txcache
