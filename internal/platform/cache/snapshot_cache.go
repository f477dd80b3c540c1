package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

type snapshotEntry[T any] struct {
	value    T
	storedAt time.Time
}

// SnapshotCache keeps the last loaded value of a collection in process.
// Reads are lock-free. Every Invalidate bumps a generation counter, and Set
// only stores a value loaded under the current generation, so a load that
// raced with a save never resurrects the old data.
type SnapshotCache[T any] struct {
	mu    sync.Mutex
	entry atomic.Pointer[snapshotEntry[T]]
	gen   atomic.Uint64
	ttl   time.Duration
	now   func() time.Time
}

// NewSnapshotCache creates a cache whose entries expire after ttl. A ttl of 0
// keeps entries until the next Invalidate.
func NewSnapshotCache[T any](ttl time.Duration) *SnapshotCache[T] {
	return &SnapshotCache[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value if present and not expired.
func (c *SnapshotCache[T]) Get() (T, bool) {
	e := c.entry.Load()
	if e == nil || (c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Generation returns the current invalidation generation.
func (c *SnapshotCache[T]) Generation() uint64 {
	return c.gen.Load()
}

// Set stores value if no Invalidate happened since gen was read.
func (c *SnapshotCache[T]) Set(gen uint64, value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() != gen {
		return false
	}
	c.entry.Store(&snapshotEntry[T]{value: value, storedAt: c.now()})
	return true
}

// Invalidate drops the cached value.
func (c *SnapshotCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)
	c.entry.Store(nil)
}
