package stripemap

import (
	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// Hasher maps a key to an unsigned hash. It must be pure and
// deterministic: the same key must hash to the same value for the whole
// lifetime of any map it is installed in. The map reduces the result
// modulo its capacity to pick a bucket.
type Hasher[K any] func(K) uint64

// NewString creates a Map with string keys hashed with xxHash.
func NewString[V any](capacity int) *Map[string, V] {
	return New[string, V](capacity, xxhash.Sum64String)
}

// NewInteger creates a Map with integer keys. Keys are mixed with a
// Golden Ratio multiplier so that dense key ranges still spread across
// buckets of any capacity.
func NewInteger[K constraints.Integer, V any](capacity int) *Map[K, V] {
	return New[K, V](capacity, func(key K) uint64 {
		return mix(uint64(key))
	})
}

// mix is a Fibonacci-style bit mixer. The multiply spreads entropy into
// the high bits and the shift folds it back down, since the map uses the
// low bits for bucket selection.
func mix(x uint64) uint64 {
	x *= hashPrime
	return x ^ (x >> 29)
}
