package audithash

import (
	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Hash computes the deterministic 64-bit hash of v via canonical encoding.
//
// Callers must zero the record's hash field before calling Hash — Hash
// itself does not know which field is "hash"; that is the caller's
// responsibility (see corerepo's create/update/delete staging, which always
// zeroes hash before computing it).
func Hash(v any) (int64, error) {
	canon, err := canonicalize(v)
	if err != nil {
		return 0, err
	}

	data, err := msgpack.Marshal(canon)
	if err != nil {
		return 0, &EncodingError{Type: "canonical", Reason: err.Error()}
	}

	return int64(xxhash.Sum64(data)), nil
}

// MustHash panics if Hash fails. Useful in tests and fixture construction
// where the input shape is known to be hashable.
func MustHash(v any) int64 {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}
