package brickset

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// Key bounds the value domain of the concurrent engine and of the default
// hasher; the sequential Set accepts any T with a matching Hasher. The
// atomic-compact cell variant packs a value and a hash tag into one
// machine word, which only holds cleanly for integer-sized keys — the
// same domain the original library was built against, where the stored
// "value" is itself already a hash-sized fingerprint (state-space
// dedup, content hashes, and the like). Values from a richer domain are
// expected to be hashed down to a Key by the caller before insertion.
type Key interface {
	~uint64 | ~uint32 | ~int64 | ~int32
}

// Hash128 is a 128-bit hash split into two 64-bit halves.
type Hash128 struct {
	Hi, Lo uint64
}

// Hasher supplies both halves of the hash contract a Set or
// ConcurrentSet needs: a 64-bit value used for probing and tagging, and
// a wider 128-bit value made available to callers that want a stronger
// checksum than probing alone requires (state-space model checkers
// deduplicating on this library's ancestor, for instance, cross-check
// the 128-bit half before trusting a match). Equal reports value
// equality, and Valid distinguishes an occupied compact-cell slot from
// an empty one.
type Hasher[T any] interface {
	Hash(v T) (uint64, Hash128)
	Equal(a, b T) bool
	Valid(v T) bool
}

// integerHasher is the default Hasher for any Key type: it hashes the
// little-endian byte representation of the key with xxhash for the
// probing half and xxh3 for the 128-bit half.
type integerHasher[T Key] struct{}

// NewHasher returns the default Hasher for integer-like keys, backed by
// xxhash (64-bit) and xxh3 (128-bit).
func NewHasher[T Key]() Hasher[T] {
	return integerHasher[T]{}
}

func (integerHasher[T]) Hash(v T) (uint64, Hash128) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	h64 := xxhash.Sum64(buf[:])
	h128 := xxh3.Hash128(buf[:])
	return h64, Hash128{Hi: h128.Hi, Lo: h128.Lo}
}

func (integerHasher[T]) Equal(a, b T) bool {
	return a == b
}

func (integerHasher[T]) Valid(v T) bool {
	return v != 0
}
