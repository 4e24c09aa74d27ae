// Package idxcache implements the index cache: an in-memory map from
// primary key to index record, plus reverse maps
// from each declared secondary key to the set of primary keys sharing that
// value.
//
// The cache is never evicted (unlike maincache). It starts empty and is
// filled only by corerepo's committed staged writes (via txcache) and by
// notifylisten applying database-trigger notifications; nothing in this
// module loads existing index rows from the database into it.
package idxcache
