package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	assert.True(t, q.IsEmpty())

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	front, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, front)

	for want := 1; want <= 3; want++ {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_BoundedEvictsOldest(t *testing.T) {
	q := NewBounded[string](2)
	assert.False(t, q.Enqueue("a"))
	assert.False(t, q.Enqueue("b"))
	assert.True(t, q.Enqueue("c"))

	assert.Equal(t, []string{"b", "c"}, q.Snapshot())
	assert.Equal(t, 2, q.Len())
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(j)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, q.Len())
}
