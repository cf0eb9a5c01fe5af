package text

// References counts users per glyph. Counts saturate at zero.
//
// References is not safe for concurrent use.
type References[K comparable] struct {
	counts map[K]uint32
}

// NewReferences creates an empty counter.
func NewReferences[K comparable]() *References[K] {
	return &References[K]{counts: make(map[K]uint32)}
}

// Increment adds a user of key and returns the new count.
func (r *References[K]) Increment(key K) uint32 {
	r.counts[key]++
	return r.counts[key]
}

// Decrement drops a user of key and returns the new count. Decrementing a
// key with no users leaves it at zero.
func (r *References[K]) Decrement(key K) uint32 {
	n, ok := r.counts[key]
	if !ok || n <= 1 {
		delete(r.counts, key)
		return 0
	}
	r.counts[key] = n - 1
	return n - 1
}

// Count returns the number of users of key.
func (r *References[K]) Count(key K) uint32 {
	return r.counts[key]
}

// Len returns the number of keys with users.
func (r *References[K]) Len() int {
	return len(r.counts)
}
