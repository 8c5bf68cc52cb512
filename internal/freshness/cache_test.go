package freshness

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestCache_CurrentOnUnknownKey returns empty and creates the cell lazily.
func TestCache_CurrentOnUnknownKey(t *testing.T) {
	t.Parallel()

	cache := New[string, int]()

	require.True(t, cache.Current("missing").IsEmpty())
	require.Equal(t, 1, cache.Len())
}

// TestCache_ConcurrentFirstAccess creates exactly one cell for a key raced by many goroutines.
func TestCache_ConcurrentFirstAccess(t *testing.T) {
	t.Parallel()

	const workers = 64

	var (
		cache = New[string, int]()
		cells = make([]*Cell[int], workers)
		start = make(chan struct{})
		wg    sync.WaitGroup
	)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			cells[i] = cache.Cell("same")
		}()
	}

	close(start)
	wg.Wait()

	require.Equal(t, 1, cache.Len())

	for _, cell := range cells {
		require.Same(t, cells[0], cell)
	}
}

// TestCache_PublishIsIdempotent checks replaying a publish yields the same state.
func TestCache_PublishIsIdempotent(t *testing.T) {
	t.Parallel()

	once := New[string, int]()
	twice := New[string, int]()

	once.Publish("k", Of(9))
	twice.Publish("k", Of(9))
	twice.Publish("k", Of(9))

	require.Equal(t, once.Current("k"), twice.Current("k"))

	value, ok := twice.Current("k").Get()
	require.True(t, ok)
	require.Equal(t, 9, value)

	// Publishing empty replaces without merging.
	twice.Publish("k", Empty[int]())
	require.True(t, twice.Current("k").IsEmpty())
}

// TestCache_PublishAtIgnoresOlderPasses ensures a stale pass cannot overwrite a newer one.
func TestCache_PublishAtIgnoresOlderPasses(t *testing.T) {
	t.Parallel()

	cache := New[string, string]()

	require.True(t, cache.PublishAt("k", 2, Of("new")))
	require.False(t, cache.PublishAt("k", 1, Of("old")))
	require.True(t, cache.PublishAt("k", 2, Of("new")))

	value, _ := cache.Current("k").Get()
	require.Equal(t, "new", value)
}

// TestCell_Subscribe delivers the current value first and then conflated updates.
func TestCell_Subscribe(t *testing.T) {
	t.Parallel()

	cache := New[string, int]()
	cache.Publish("k", Of(1))

	updates, cancel := cache.Cell("k").Subscribe()

	first := <-updates
	value, _ := first.Get()
	require.Equal(t, 1, value)

	// Two publishes without reading: only the newest survives.
	cache.Publish("k", Of(2))
	cache.Publish("k", Of(3))

	select {
	case latest := <-updates:
		value, _ = latest.Get()
		require.Equal(t, 3, value)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	cancel()
	cancel()

	_, open := <-updates
	require.False(t, open)

	// Publishing after cancel must not panic.
	cache.Publish("k", Of(4))
}

// TestCache_ConcurrentReadersAndWriters exercises reads while writers publish.
func TestCache_ConcurrentReadersAndWriters(t *testing.T) {
	t.Parallel()

	var (
		cache = New[int, int]()
		wg    sync.WaitGroup
	)

	for writer := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 100 {
				cache.Publish(i%10, Of(writer))
			}
		}()
	}

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 100 {
				_ = cache.Current(i % 10)
			}
		}()
	}

	wg.Wait()

	require.Equal(t, 10, cache.Len())
}

// TestCache_Peek tells published empty records apart from cells never published to.
func TestCache_Peek(t *testing.T) {
	t.Parallel()

	cache := New[string, int]()

	_, published := cache.Peek("missing")
	require.False(t, published)
	require.Zero(t, cache.Len())

	_ = cache.Current("read")

	record, published := cache.Peek("read")
	require.False(t, published)
	require.True(t, record.IsEmpty())

	cache.Publish("none", Empty[int]())

	record, published = cache.Peek("none")
	require.True(t, published)
	require.True(t, record.IsEmpty())

	cache.Publish("value", Of(3))

	record, published = cache.Peek("value")
	require.True(t, published)

	value, ok := record.Get()
	require.True(t, ok)
	require.Equal(t, 3, value)
}
