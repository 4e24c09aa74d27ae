package errtax

import (
	"encoding/binary"

	"github.com/tmthrgd/go-hex"
)

// HexHash renders a hash column's int64 value as the same lowercase hex
// string an operator would get back from `SELECT encode(int8send(hash),
// 'hex')` in psql, so a value logged via WithMetadata can be grepped
// straight out of a database dump without a base conversion.
func HexHash(h int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h))
	return hex.EncodeToString(buf[:])
}
