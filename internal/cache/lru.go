package cache

// entry is a node in the recency list. It carries the key so that eviction
// from the tail can delete the map slot in O(1).
type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// recency is a doubly-linked list ordered from most to least recently used.
// It is not safe for concurrent use; LRU guards it with its mutex.
type recency[K comparable, V any] struct {
	head *entry[K, V]
	tail *entry[K, V]
	len  int
}

func (l *recency[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
	l.len++
}

func (l *recency[K, V]) moveToFront(e *entry[K, V]) {
	if e == l.head {
		return
	}
	l.unlink(e)
	l.pushFront(e)
}

// back returns the least recently used entry, or nil.
func (l *recency[K, V]) back() *entry[K, V] {
	return l.tail
}

func (l *recency[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev = nil
	e.next = nil
	l.len--
}

func (l *recency[K, V]) reset() {
	l.head = nil
	l.tail = nil
	l.len = 0
}
