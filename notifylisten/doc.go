// Package notifylisten implements the notification listener: a background
// subscriber over Postgres LISTEN/NOTIFY that converges database-side
// changes (triggered by other writers, or by this same process through a
// path that doesn't go through corerepo) into the shared idxcache/maincache
// instances.
//
// One dedicated *pq.Listener connection per Listener value — the listener
// is never multiplexed onto the pool used for ordinary queries. Handlers
// are applied directly against the
// shared caches, bypassing txcache's journal: notifications are not
// transaction-scoped, they are the convergence mechanism for state that
// already committed somewhere else.
package notifylisten
