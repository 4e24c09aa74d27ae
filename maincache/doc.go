// Package maincache implements the main entity cache: a bounded cache of
// full entity records with a pluggable eviction policy (LRU or FIFO) and
// optional TTL.
//
// The eviction structure (container/list + map[key]*list.Element +
// atomic.Int64 counters) is the same shape a hand-rolled LRU cache would
// use in Go; no third-party LRU library is wired here because the
// pluggable-policy/separately-counted-statistics requirements rule out
// reusing a generic sturdyc-backed read-through cache for this role.
package maincache
