// Package dedupe tracks which session ids have already been seen so that a
// history holds each session once.
package dedupe

import (
	"sync"

	"github.com/okian/taixiu/internal/domain/model"
)

// Deduper records seen session ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(id int64) bool

	// Size returns the number of ids currently held.
	Size() int
}

// node is one recorded id in insertion order, newest at head.
type node struct {
	id   int64
	next *node
}

// inMemoryDeduper keeps ids in a map. With maxSize > 0 the oldest recorded
// id is evicted once the limit is reached; otherwise it grows unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[int64]*node
	head    *node
	maxSize int
}

// NewInMemoryDeduper creates an unbounded deduper unless WithMaxSize is given.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{seen: make(map[int64]*node)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = nil
		return false
	}

	if len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	n := &node{id: id, next: d.head}
	d.head = n
	d.seen[id] = n
	return false
}

// evictOldest drops the tail of the list. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	if d.head == nil {
		return
	}
	if d.head.next == nil {
		delete(d.seen, d.head.id)
		d.head = nil
		return
	}
	prev := d.head
	for prev.next.next != nil {
		prev = prev.next
	}
	delete(d.seen, prev.next.id)
	prev.next = nil
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Sessions returns sessions with repeated ids removed, keeping the first
// occurrence of each id in input order, and how many were dropped. The
// input slice is not modified.
func Sessions(sessions []model.Session) ([]model.Session, int) {
	d := NewInMemoryDeduper()
	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if d.SeenAndRecord(s.ID) {
			continue
		}
		out = append(out, s)
	}
	return out, len(sessions) - len(out)
}
