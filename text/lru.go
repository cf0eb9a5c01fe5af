package text

// lruNode is a node in a doubly-linked LRU list.
// The node stores a key for O(1) deletion from the parent map.
type lruNode[K comparable] struct {
	key  K
	prev *lruNode[K]
	next *lruNode[K]
}

// lruList is a doubly-linked list for LRU eviction.
// The head is the most recently used, tail is least recently used.
type lruList[K comparable] struct {
	head *lruNode[K]
	tail *lruNode[K]
	len  int
}

// PushFront adds a new node at the front (most recently used).
func (l *lruList[K]) PushFront(key K) *lruNode[K] {
	node := &lruNode[K]{key: key, next: l.head}
	if l.head != nil {
		l.head.prev = node
	} else {
		l.tail = node
	}
	l.head = node
	l.len++
	return node
}

// MoveToFront moves an existing node to the front.
func (l *lruList[K]) MoveToFront(node *lruNode[K]) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	} else {
		l.tail = node
	}
	l.head = node
	l.len++
}

// Remove removes a node from the list.
func (l *lruList[K]) Remove(node *lruNode[K]) {
	if node != nil {
		l.unlink(node)
	}
}

// RemoveOldest removes and returns the key of the least recently used node.
func (l *lruList[K]) RemoveOldest() (K, bool) {
	if l.tail == nil {
		var zero K
		return zero, false
	}
	node := l.tail
	l.unlink(node)
	return node.key, true
}

func (l *lruList[K]) unlink(node *lruNode[K]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}

type bitmapEntry struct {
	bitmap Bitmap
	node   *lruNode[GlyphKey]
}

// bitmapCache keeps the bitmaps of glyphs evicted from the atlas so that a
// glyph coming back does not hit the font backend again.
//
// Not thread-safe; the Atlas lock covers it.
type bitmapCache struct {
	capacity int
	entries  map[GlyphKey]*bitmapEntry
	lru      lruList[GlyphKey]
}

func newBitmapCache(capacity int) *bitmapCache {
	return &bitmapCache{
		capacity: capacity,
		entries:  make(map[GlyphKey]*bitmapEntry),
	}
}

// Take removes and returns the bitmap for key.
func (c *bitmapCache) Take(key GlyphKey) (Bitmap, bool) {
	e, ok := c.entries[key]
	if !ok {
		return Bitmap{}, false
	}
	c.lru.Remove(e.node)
	delete(c.entries, key)
	return e.bitmap, true
}

// Put stores b for key, evicting the least recently stored bitmaps past
// capacity.
func (c *bitmapCache) Put(key GlyphKey, b Bitmap) {
	if c.capacity <= 0 {
		return
	}
	if e, ok := c.entries[key]; ok {
		e.bitmap = b
		c.lru.MoveToFront(e.node)
		return
	}
	c.entries[key] = &bitmapEntry{bitmap: b, node: c.lru.PushFront(key)}
	for c.lru.len > c.capacity {
		oldest, ok := c.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(c.entries, oldest)
	}
}

// Len returns the number of cached bitmaps.
func (c *bitmapCache) Len() int { return len(c.entries) }
