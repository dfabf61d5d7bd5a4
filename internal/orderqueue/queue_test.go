package orderqueue

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePreservesOrderUnderConcurrentProducers(t *testing.T) {
	const n = 500
	var mu sync.Mutex
	var out []int

	q := New(8, func(slotID int64, value interface{}) {
		mu.Lock()
		out = append(out, value.(int))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	next := 0
	var nextMu sync.Mutex
	nextVal := func() (int, bool) {
		nextMu.Lock()
		defer nextMu.Unlock()
		if next >= n {
			return 0, false
		}
		v := next
		next++
		return v, true
	}

	worker := func() {
		defer wg.Done()
		for {
			v, slot, ok := q.Get(func() (interface{}, bool) {
				val, cont := nextVal()
				return val, cont
			})
			if !ok {
				return
			}
			q.Push(slot, v)
		}
	}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go worker()
	}
	wg.Wait()

	require.Len(t, out, n)
	assert.True(t, sort.IntsAreSorted(out))
}

func TestQueueOutOfOrderPushesStillFlushInOrder(t *testing.T) {
	var out []int
	q := New(10, func(slotID int64, value interface{}) {
		out = append(out, value.(int))
	})

	slots := []int64{}
	for i := 0; i < 5; i++ {
		_, slot, ok := q.Get(func() (interface{}, bool) { return i, true })
		require.True(t, ok)
		slots = append(slots, slot)
	}

	// Push out of order: 4, 2, 3, 0, 1 -- nothing should flush until 0 lands;
	// 0 then flushes alone (1 is still missing), and pushing 1 flushes
	// 1-2-3-4 together in that Push call.
	q.Push(slots[4], 40)
	q.Push(slots[2], 20)
	q.Push(slots[3], 30)
	assert.Empty(t, out)
	q.Push(slots[0], 0)
	assert.Equal(t, []int{0}, out) // 0 flushes alone; 1 still missing
	q.Push(slots[1], 10)

	assert.Equal(t, []int{0, 10, 20, 30, 40}, out)
}

func TestQueueBlocksProducerAtLimit(t *testing.T) {
	q := New(2, func(int64, interface{}) {})

	_, s0, ok := q.Get(func() (interface{}, bool) { return 0, true })
	require.True(t, ok)
	_, _, ok = q.Get(func() (interface{}, bool) { return 1, true })
	require.True(t, ok)

	done := make(chan struct{})
	go func() {
		_, _, ok := q.Get(func() (interface{}, bool) { return 2, true })
		require.True(t, ok)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Get should have blocked at the reservation limit")
	default:
	}

	q.Push(s0, 0)
	<-done
}
