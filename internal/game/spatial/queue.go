package spatial

import (
	"runtime"
	"sync/atomic"
)

// CacheLineSize is the typical CPU cache line size (64 bytes on x86-64)
const CacheLineSize = 64

// Padding keeps producer and consumer cursors on separate cache lines
type Padding [CacheLineSize]byte

type queueSlot[T any] struct {
	seq  uint64
	item T
}

// LockFreeQueue is a bounded MPSC ring buffer.
// Producers may call TryPush from any goroutine; exactly one goroutine may pop.
//
// Each slot carries a sequence number so the consumer never observes a slot
// whose producer has claimed it but not yet written the item.
type LockFreeQueue[T any] struct {
	_pad0 Padding
	head  uint64 // next slot a producer will claim
	_pad1 Padding
	tail  uint64 // next slot the consumer will read
	_pad2 Padding
	mask  uint64
	slots []queueSlot[T]
}

// NewLockFreeQueue creates a queue; capacity is rounded up to a power of 2
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}

	q := &LockFreeQueue[T]{
		mask:  uint64(size - 1),
		slots: make([]queueSlot[T], size),
	}
	for i := range q.slots {
		q.slots[i].seq = uint64(i)
	}
	return q
}

// TryPush adds an item without blocking. Returns false if the queue is full.
func (q *LockFreeQueue[T]) TryPush(item T) bool {
	for {
		head := atomic.LoadUint64(&q.head)
		slot := &q.slots[head&q.mask]
		seq := atomic.LoadUint64(&slot.seq)

		switch {
		case seq == head:
			if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
				slot.item = item
				atomic.StoreUint64(&slot.seq, head+1)
				return true
			}
		case seq < head:
			return false // full: consumer has not released this slot yet
		}

		// Lost the race to another producer, retry
		runtime.Gosched()
	}
}

// TryPop removes the oldest item. Must only be called by the single consumer.
func (q *LockFreeQueue[T]) TryPop() (T, bool) {
	var zero T

	tail := atomic.LoadUint64(&q.tail)
	slot := &q.slots[tail&q.mask]
	if atomic.LoadUint64(&slot.seq) != tail+1 {
		return zero, false
	}

	item := slot.item
	slot.item = zero
	atomic.StoreUint64(&q.tail, tail+1)
	atomic.StoreUint64(&slot.seq, tail+q.mask+1)
	return item, true
}

// DrainTo pops up to len(buf) items into buf (zero-alloc batch).
// Returns the number of items written.
func (q *LockFreeQueue[T]) DrainTo(buf []T) int {
	count := 0
	for count < len(buf) {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		buf[count] = item
		count++
	}
	return count
}

// Len returns the approximate number of queued items
func (q *LockFreeQueue[T]) Len() int {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue capacity
func (q *LockFreeQueue[T]) Cap() int {
	return int(q.mask + 1)
}
