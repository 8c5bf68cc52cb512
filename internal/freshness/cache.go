package freshness

import "sync"

// Cache maps keys to cells. Exactly one cell ever exists per key.
// Entries are never evicted: tracked keys are a small, operator-controlled set.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	cells map[K]*Cell[V]
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		cells: make(map[K]*Cell[V]),
	}
}

// Cell returns the cell for key, creating an empty one on first access.
func (c *Cache[K, V]) Cell(key K) *Cell[V] {
	c.mu.RLock()
	cell, ok := c.cells[key]
	c.mu.RUnlock()

	if ok {
		return cell
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have created it between the two locks.
	if cell, ok = c.cells[key]; ok {
		return cell
	}

	cell = newCell[V]()
	c.cells[key] = cell

	return cell
}

// Current returns a snapshot for key without waiting for any refresh.
func (c *Cache[K, V]) Current(key K) Record[V] {
	return c.Cell(key).Current()
}

// Peek returns the value for key and whether it was ever published.
// Unlike Current it never creates a cell.
func (c *Cache[K, V]) Peek(key K) (Record[V], bool) {
	c.mu.RLock()
	cell, ok := c.cells[key]
	c.mu.RUnlock()

	if !ok {
		return Empty[V](), false
	}

	return cell.Snapshot()
}

// Publish overwrites the value for key.
func (c *Cache[K, V]) Publish(key K, record Record[V]) {
	c.Cell(key).Publish(record)
}

// PublishAt overwrites the value for key unless a later pass already published.
func (c *Cache[K, V]) PublishAt(key K, sequence uint64, record Record[V]) bool {
	return c.Cell(key).PublishAt(sequence, record)
}

// Len returns the number of cells created so far.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cells)
}
