// Package audithash computes the deterministic entity hash used by the
// audit engine's change-detection gate and hash chain.
//
// A record is canonicalized into a sorted, self-describing list of key/value
// pairs (field name to value, recursively) and encoded with msgpack before being digested
// with xxhash. The canonical encoding step is what makes the hash stable
// across host byte order and struct field declaration order.
package audithash
