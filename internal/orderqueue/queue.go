// Package orderqueue implements the bounded per-query output ordering
// queue described in spec.md §4.6/§5: many workers extend queries out of
// order, but output must be emitted in ascending submission order. It
// replaces the teacher's ad hoc channel plumbing (reduce.go,
// progress_bar.go's single-writer idiom) with the explicit get/push
// slot-reservation contract the spec calls for, backed by one
// sync.Mutex + one sync.Cond exactly as spec.md §5 requires (channels
// cannot expose the head-of-line tracking this contract needs).
package orderqueue

import "sync"

// Consumer is invoked, strictly in ascending slot order, once a slot and
// every slot before it that is ready has been pushed. It runs on whichever
// goroutine's Push call happens to consume the head, not a dedicated
// writer thread (spec.md §5: "the consumer callback runs on the pushing
// thread, not on a dedicated writer").
type Consumer func(slotID int64, value interface{})

// Queue is the bounded ordering queue (spec.md §4.6).
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	limit    int
	consume  Consumer
	nextSlot int64 // next slot id to be reserved
	head     int64 // next slot id the consumer is waiting on

	ready map[int64]interface{} // slots that have been pushed but not yet consumed
	ended bool
}

// New creates a Queue that blocks producers once reserved-but-unreleased
// slots reach limit, and invokes consume in ascending slot order.
func New(limit int, consume Consumer) *Queue {
	q := &Queue{limit: limit, consume: consume, ready: make(map[int64]interface{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Get reserves the next slot in submission order and runs init under the
// queue's lock to assign the input to that slot (spec.md §4.6). It blocks
// while reserved-but-unreleased slots reach the configured limit. init
// returning false signals end-of-input (spec.md: "Cancellation is
// cooperative: producers signal end-of-input through init returning
// false"); Get then returns ok=false without reserving a slot.
func (q *Queue) Get(init func() (interface{}, bool)) (value interface{}, slotID int64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.ended && q.reservedUnreleasedLocked() >= q.limit {
		q.cond.Wait()
	}
	if q.ended {
		return nil, 0, false
	}

	v, cont := init()
	if !cont {
		q.ended = true
		q.cond.Broadcast()
		return nil, 0, false
	}

	slot := q.nextSlot
	q.nextSlot++
	return v, slot, true
}

// reservedUnreleasedLocked counts slots reserved (nextSlot - head) that
// have not yet been consumed; must be called with q.mu held.
func (q *Queue) reservedUnreleasedLocked() int {
	return int(q.nextSlot - q.head)
}

// Push marks slotID ready with the given value. If slotID is the current
// head, Push consumes it and every consecutive ready successor by invoking
// Consumer on the calling goroutine; otherwise it stores the value and
// returns immediately (spec.md §4.6: "a push whose slot is not the head
// marks it ready and returns immediately, while a push of the head
// consumes that slot and any consecutive ready successors").
func (q *Queue) Push(slotID int64, value interface{}) {
	q.mu.Lock()
	if slotID != q.head {
		q.ready[slotID] = value
		q.mu.Unlock()
		return
	}

	// We hold the head: consume it and any run of already-ready
	// successors, invoking Consumer outside the lock so a slow consumer
	// callback does not block other producers' Get/Push calls on unrelated
	// slots. head is advanced only after the last consumed slot, so no
	// other Push can become the head (and call Consumer) while this one is
	// still consuming; a successor pushed meanwhile is stored in ready and
	// picked up by this loop, which keeps output strictly in slot order.
	q.mu.Unlock()
	next := slotID
	for {
		q.consume(next, value)
		q.mu.Lock()
		next++
		v, ok := q.ready[next]
		if !ok {
			break
		}
		delete(q.ready, next)
		q.mu.Unlock()
		value = v
	}
	q.head = next
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Close signals end-of-input to any producer currently blocked in Get.
func (q *Queue) Close() {
	q.mu.Lock()
	q.ended = true
	q.cond.Broadcast()
	q.mu.Unlock()
}
