package replay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_HasAndAdd(t *testing.T) {
	ring := New(4)

	assert.False(t, ring.Has("token-a"))
	ring.Add("token-a")
	assert.True(t, ring.Has("token-a"))
	assert.False(t, ring.Has("token-b"))
}

func TestRing_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Cap())
	assert.Equal(t, DefaultCapacity, New(-5).Cap())
	assert.Equal(t, 3, New(3).Cap())
}

func TestRing_EvictsOldestInsertedFirst(t *testing.T) {
	ring := New(3)
	ring.Add("first")
	ring.Add("second")
	ring.Add("third")

	// Capacity exceeded: the oldest-inserted token is forgotten, strictly
	// by insertion order, not by access.
	assert.True(t, ring.Has("first"))
	ring.Add("fourth")

	assert.False(t, ring.Has("first"))
	assert.True(t, ring.Has("second"))
	assert.True(t, ring.Has("third"))
	assert.True(t, ring.Has("fourth"))
}

func TestRing_WrapsAroundRepeatedly(t *testing.T) {
	ring := New(2)
	for i := 0; i < 10; i++ {
		ring.Add(fmt.Sprintf("token-%d", i))
	}

	assert.True(t, ring.Has("token-9"))
	assert.True(t, ring.Has("token-8"))
	for i := 0; i < 8; i++ {
		assert.False(t, ring.Has(fmt.Sprintf("token-%d", i)))
	}
}

func TestRing_ConcurrentUse(t *testing.T) {
	ring := New(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				token := fmt.Sprintf("w%d-t%d", worker, j)
				ring.Add(token)
				ring.Has(token)
			}
		}(i)
	}
	wg.Wait()
}
