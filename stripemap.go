// Package stripemap provides a generic hash table that is safe for
// concurrent use by multiple goroutines. Unlike the built-in map, access
// is serialized per bucket rather than per table, so operations on keys
// that hash to different buckets proceed fully in parallel.
package stripemap

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unsafe"
)

var (
	// ErrKeyNotFound is returned by Load and Delete when no entry
	// exists for the given key.
	ErrKeyNotFound = errors.New("stripemap: key not found")

	// ErrNotSized is returned by keyed operations on a map whose
	// capacity is zero. A zero-capacity map holds nothing and cannot
	// place a key; it must be grown with Resize first.
	ErrNotSized = errors.New("stripemap: map has no buckets")

	// ErrInvalidCapacity is returned by Resize for capacities < 1.
	ErrInvalidCapacity = errors.New("stripemap: capacity must be positive")
)

// entry is one stored key-value pair. Entries of one bucket form a
// singly linked chain; within a chain every key occurs at most once.
type entry[K comparable, V any] struct {
	key   K
	value V
	next  *entry[K, V]
}

// bucketMutex is a sync.Mutex padded out to a full cache line so that
// neighboring locks in the stripe do not share one.
type bucketMutex struct {
	sync.Mutex
	//lint:ignore U1000 prevents false sharing
	pad [CacheLineSize - unsafe.Sizeof(sync.Mutex{})]byte
}

// Map is a chained hash table with one exclusive lock per bucket.
//
// Every keyed operation hashes the key with the injected Hasher, takes
// that bucket's lock for the duration of the call and walks the bucket's
// collision chain. Two operations on different buckets never block each
// other; two operations on the same bucket are serialized. The bucket
// count is fixed between explicit Resize calls; the map never rehashes
// on its own.
//
// Table-level state (the bucket array, the lock stripe and the capacity)
// is guarded by an additional reader/writer lock: keyed operations hold
// it shared, Resize and Move hold it exclusive. Resize is therefore safe
// to call while other goroutines read and write the map.
//
// The zero capacity state is valid but inert: Contains reports false and
// the other keyed operations return ErrNotSized until the map is grown.
type Map[K comparable, V any] struct {
	mu       sync.RWMutex
	capacity int
	buckets  []*entry[K, V]
	locks    []bucketMutex
	hasher   Hasher[K]
}

// New creates a Map with the given bucket count and hash function.
// A capacity of zero is allowed and yields an inert map that must be
// grown with Resize before use. New panics on a negative capacity or a
// nil hasher, both of which are programming errors.
//
// The hasher must be deterministic: it has to return the same value for
// the same key over the map's whole lifetime. It does not have to be
// uniform, but skewed hashers grow long chains and degrade every
// operation to a linear scan.
func New[K comparable, V any](capacity int, hasher Hasher[K]) *Map[K, V] {
	if capacity < 0 {
		panic("stripemap: negative capacity")
	}
	if hasher == nil {
		panic("stripemap: nil hasher")
	}
	m := &Map[K, V]{hasher: hasher}
	m.alloc(capacity)
	return m
}

// alloc installs fresh bucket and lock arrays for the given capacity.
// Callers must hold mu exclusively or own m outright.
func (m *Map[K, V]) alloc(capacity int) {
	m.capacity = capacity
	if capacity == 0 {
		m.buckets = nil
		m.locks = nil
		return
	}
	m.buckets = make([]*entry[K, V], capacity)
	m.locks = make([]bucketMutex, capacity)
}

// index maps a key to its bucket. Callers must have checked capacity > 0.
func (m *Map[K, V]) index(key K) int {
	return int(m.hasher(key) % uint64(m.capacity))
}

// upsert applies the find-or-append rule to the chain rooted at slot:
// if the key is already present its value is overwritten in place,
// otherwise a new entry is linked at the chain's tail. The chain never
// holds two entries with the same key.
func upsert[K comparable, V any](slot **entry[K, V], key K, value V) {
	if *slot == nil {
		*slot = &entry[K, V]{key: key, value: value}
		return
	}
	e := *slot
	for e.next != nil && e.key != key {
		e = e.next
	}
	if e.key == key {
		e.value = value
	} else {
		e.next = &entry[K, V]{key: key, value: value}
	}
}

// Contains reports whether an entry exists for key. On a zero-capacity
// map it reports false.
func (m *Map[K, V]) Contains(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.capacity == 0 {
		return false
	}
	i := m.index(key)
	m.locks[i].Lock()
	defer m.locks[i].Unlock()
	for e := m.buckets[i]; e != nil; e = e.next {
		if e.key == key {
			return true
		}
	}
	return false
}

// Load returns the value stored for key. It returns ErrKeyNotFound when
// no entry exists and ErrNotSized on a zero-capacity map. Load has no
// side effects on any path.
func (m *Map[K, V]) Load(key K) (V, error) {
	var zero V
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.capacity == 0 {
		return zero, ErrNotSized
	}
	i := m.index(key)
	m.locks[i].Lock()
	defer m.locks[i].Unlock()
	for e := m.buckets[i]; e != nil; e = e.next {
		if e.key == key {
			return e.value, nil
		}
	}
	return zero, ErrKeyNotFound
}

// Store sets the value for key, overwriting in place when the key is
// already present and appending a new entry to the bucket's chain when
// it is not. Store never duplicates a key. It returns ErrNotSized on a
// zero-capacity map and nil otherwise.
func (m *Map[K, V]) Store(key K, value V) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.capacity == 0 {
		return ErrNotSized
	}
	i := m.index(key)
	m.locks[i].Lock()
	defer m.locks[i].Unlock()
	upsert(&m.buckets[i], key, value)
	return nil
}

// Delete removes the entry for key, unlinking it from its chain. It
// returns ErrKeyNotFound when no entry exists and ErrNotSized on a
// zero-capacity map; neither error path mutates the map. Exactly one
// entry is removed per successful call.
func (m *Map[K, V]) Delete(key K) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.capacity == 0 {
		return ErrNotSized
	}
	i := m.index(key)
	m.locks[i].Lock()
	defer m.locks[i].Unlock()
	var prev *entry[K, V]
	for e := m.buckets[i]; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				m.buckets[i] = e.next
			} else {
				prev.next = e.next
			}
			e.next = nil
			return nil
		}
		prev = e
	}
	return ErrKeyNotFound
}

// Resize rebuilds the map at a new bucket count, re-hashing every entry
// against the new capacity. Old buckets are drained in ascending index
// order, each under its own lock, into freshly allocated bucket and lock
// arrays which are then installed atomically with respect to all keyed
// operations (Resize holds the table lock exclusively). Growth and
// shrinkage are both legal; capacities < 1 are rejected with
// ErrInvalidCapacity.
func (m *Map[K, V]) Resize(newCapacity int) error {
	if newCapacity < 1 {
		return ErrInvalidCapacity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newBuckets := make([]*entry[K, V], newCapacity)
	for i := range m.buckets {
		m.locks[i].Lock()
		for e := m.buckets[i]; e != nil; e = e.next {
			j := int(m.hasher(e.key) % uint64(newCapacity))
			upsert(&newBuckets[j], e.key, e.value)
		}
		m.buckets[i] = nil
		m.locks[i].Unlock()
	}
	m.buckets = newBuckets
	m.locks = make([]bucketMutex, newCapacity)
	m.capacity = newCapacity
	return nil
}

// Cap returns the current bucket count.
func (m *Map[K, V]) Cap() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capacity
}

// Len returns the number of stored entries. It walks every bucket under
// that bucket's lock, so with concurrent writers the result is a
// per-bucket-consistent count, not a point-in-time snapshot.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for i := range m.buckets {
		m.locks[i].Lock()
		for e := m.buckets[i]; e != nil; e = e.next {
			n++
		}
		m.locks[i].Unlock()
	}
	return n
}

// Clone returns a new independent map with the same capacity, hasher and
// logical contents. Source buckets are read one at a time under their
// locks and every pair is re-inserted into the clone through its own
// locking, so with concurrent writers on the source the clone is
// consistent per bucket but not across the whole table. Later mutation
// of either map never affects the other.
func (m *Map[K, V]) Clone() *Map[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := &Map[K, V]{hasher: m.hasher}
	clone.alloc(m.capacity)
	for i := range m.buckets {
		m.locks[i].Lock()
		for e := m.buckets[i]; e != nil; e = e.next {
			// Cannot fail: the clone has the source's capacity and the
			// loop body only runs when that capacity is nonzero.
			_ = clone.Store(e.key, e.value)
		}
		m.locks[i].Unlock()
	}
	return clone
}

// Move transfers the bucket array, lock stripe and capacity to a new map
// and resets the receiver to the zero-capacity state, as if freshly
// constructed. No entries are copied or re-hashed. The receiver keeps
// its hasher and may be grown again with Resize.
func (m *Map[K, V]) Move() *Map[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	dst := &Map[K, V]{
		capacity: m.capacity,
		buckets:  m.buckets,
		locks:    m.locks,
		hasher:   m.hasher,
	}
	m.capacity = 0
	m.buckets = nil
	m.locks = nil
	return dst
}

// Dump writes every non-empty bucket's chain to w in the form
// "[index] -> (key, value), ..." with one line per bucket, each bucket
// read under its own lock. The output is a debugging aid, not a stable
// format.
func (m *Map[K, V]) Dump(w io.Writer) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.buckets {
		m.locks[i].Lock()
		if e := m.buckets[i]; e != nil {
			fmt.Fprintf(w, "[%d] ->", i)
			for ; e != nil; e = e.next {
				fmt.Fprintf(w, " (%v, %v)", e.key, e.value)
			}
			fmt.Fprintln(w)
		}
		m.locks[i].Unlock()
	}
}

// String renders the Dump output as a string.
func (m *Map[K, V]) String() string {
	var sb strings.Builder
	m.Dump(&sb)
	return sb.String()
}
