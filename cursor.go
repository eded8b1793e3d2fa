package stripemap

// Cursor walks a Map's entries: buckets in ascending index order, and
// within a bucket in chain order, which is insertion order for that
// bucket since Store appends at the tail. Empty buckets are skipped.
//
// A Cursor takes no locks. The caller must guarantee that the map is not
// mutated (Store, Delete, Resize, Move) for as long as the cursor is in
// use; this is a precondition, not something the cursor detects.
//
// Usage follows the scanner pattern:
//
//	for c := m.Iter(); c.Next(); {
//		fmt.Println(c.Key(), c.Value())
//	}
type Cursor[K comparable, V any] struct {
	m       *Map[K, V]
	current *entry[K, V]
	bucket  int
	started bool
}

// Iter returns a Cursor positioned before the map's first entry. Call
// Next to advance onto it.
func (m *Map[K, V]) Iter() *Cursor[K, V] {
	return &Cursor[K, V]{m: m}
}

// Next advances the cursor to the next entry and reports whether one
// exists. The first call positions the cursor on the first non-empty
// bucket's head entry. Once Next has returned false it keeps returning
// false.
func (c *Cursor[K, V]) Next() bool {
	if !c.started {
		c.started = true
		c.current = c.seek(0)
		return c.current != nil
	}
	if c.current == nil {
		return false
	}
	if c.current.next != nil {
		c.current = c.current.next
		return true
	}
	c.current = c.seek(c.bucket + 1)
	return c.current != nil
}

// seek scans buckets from index i upward for the first non-empty one and
// returns its head entry, or nil when the table is exhausted.
func (c *Cursor[K, V]) seek(i int) *entry[K, V] {
	for ; i < c.m.capacity; i++ {
		if c.m.buckets[i] != nil {
			c.bucket = i
			return c.m.buckets[i]
		}
	}
	c.bucket = c.m.capacity
	return nil
}

// Key returns the current entry's key. It must only be called after Next
// has returned true.
func (c *Cursor[K, V]) Key() K {
	return c.current.key
}

// Value returns the current entry's value. It must only be called after
// Next has returned true.
func (c *Cursor[K, V]) Value() V {
	return c.current.value
}

// Range calls f for every entry in cursor order and stops early when f
// returns false. Like Cursor, Range takes no locks; the caller must rule
// out concurrent mutation for its duration.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	for c := m.Iter(); c.Next(); {
		if !f(c.Key(), c.Value()) {
			return
		}
	}
}
