package freshness

import "sync"

// Cell holds the current Record for one key.
// Reads never wait for a refresh; publishes replace the value wholesale.
type Cell[V any] struct {
	// mu guards every field below.
	mu sync.RWMutex
	// record is the value readers observe.
	record Record[V]
	// sequence is the pass sequence of the last accepted publish.
	sequence uint64
	// published is set by the first accepted publish.
	published bool
	// subscribers receive every accepted publish, conflated to the newest value.
	subscribers map[uint64]chan Record[V]
	// nextSubscriberID identifies the next subscription.
	nextSubscriberID uint64
}

func newCell[V any]() *Cell[V] {
	return &Cell[V]{
		record:      Empty[V](),
		subscribers: make(map[uint64]chan Record[V]),
	}
}

// Current returns a snapshot of the cell value.
func (c *Cell[V]) Current() Record[V] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.record
}

// Snapshot returns the cell value and whether anything was ever published,
// telling an explicit "nothing newer" apart from "never checked".
func (c *Cell[V]) Snapshot() (Record[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.record, c.published
}

// Publish overwrites the cell value unconditionally.
func (c *Cell[V]) Publish(record Record[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store(record)
}

// PublishAt overwrites the cell value unless a publish from a later pass was
// already accepted. It reports whether the record was stored.
func (c *Cell[V]) PublishAt(sequence uint64, record Record[V]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sequence < c.sequence {
		return false
	}

	c.sequence = sequence
	c.store(record)

	return true
}

// Subscribe returns a channel that immediately yields the current value and
// then every later publish. Slow readers only see the newest value.
// The returned function cancels the subscription and closes the channel.
func (c *Cell[V]) Subscribe() (<-chan Record[V], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubscriberID
	c.nextSubscriberID++

	updates := make(chan Record[V], 1)
	updates <- c.record
	c.subscribers[id] = updates

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			delete(c.subscribers, id)
			close(updates)
		})
	}

	return updates, cancel
}

// store must be called with mu held.
func (c *Cell[V]) store(record Record[V]) {
	c.record = record
	c.published = true

	for _, updates := range c.subscribers {
		// Drop the unread value, the channel always has room afterwards
		// because only writers holding mu send to it.
		select {
		case <-updates:
		default:
		}

		updates <- record
	}
}
