package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceNext(t *testing.T) {
	seq := New(0)
	assert.Equal(t, int64(1), seq.Next())
	assert.Equal(t, int64(2), seq.Next())
	assert.Equal(t, int64(2), seq.Current())
}

func TestSequenceSeed(t *testing.T) {
	seq := New(0)
	seq.Seed(100)
	assert.Equal(t, int64(101), seq.Next())

	// Seeding below the current floor must not rewind.
	seq.Seed(10)
	assert.Equal(t, int64(102), seq.Next())
}

func TestSequenceConcurrentNext(t *testing.T) {
	seq := New(0)
	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	results := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				results <- seq.Next()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]struct{}, goroutines*perGoroutine)
	for id := range results {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), seq.Current())
}
