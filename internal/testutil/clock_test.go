package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, DefaultEpoch, clock.Peek())
	assert.Equal(t, DefaultEpoch, clock.Now())
	assert.Equal(t, DefaultEpoch+1000, clock.Now())
}

func TestDeterministicClock_AdvanceAndReset(t *testing.T) {
	clock := NewDeterministicClockAt(100, 10)

	assert.Equal(t, int64(100), clock.Now())
	clock.Advance(50)
	assert.Equal(t, int64(160), clock.Now())

	clock.Reset()
	assert.Equal(t, int64(100), clock.Now())
}

func TestDeterministicClock_ConcurrentReadingsUnique(t *testing.T) {
	clock := NewDeterministicClockAt(0, 1)
	const n = 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := clock.Now()
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Equal(t, int64(n), clock.Peek())
}
