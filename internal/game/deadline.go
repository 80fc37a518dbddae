package game

import (
	"container/heap"
	"time"
)

// DeadlineID identifies an armed deadline so it can be cancelled.
type DeadlineID uint64

type deadline struct {
	id   DeadlineID
	due  time.Duration
	fire func(now time.Duration)
}

type deadlineHeap []*deadline

func (h deadlineHeap) Len() int { return len(h) }
func (h deadlineHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].id < h[j].id // arm order breaks ties
}
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x interface{}) { *h = append(*h, x.(*deadline)) }
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return d
}

// Scheduler holds armed deadlines (timestamp + closure) for the tick loop.
// It is not safe for concurrent use; the engine owns it under its lock.
//
// A deadline fires on the first Advance whose now >= due, which may be later
// than due when ticks are coarse. Callbacks receive the actual now and must
// re-validate whatever state they act on.
type Scheduler struct {
	pending   deadlineHeap
	cancelled map[DeadlineID]struct{}
	nextID    DeadlineID
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{cancelled: make(map[DeadlineID]struct{})}
}

// Arm schedules fire to run at or after due.
func (s *Scheduler) Arm(due time.Duration, fire func(now time.Duration)) DeadlineID {
	s.nextID++
	heap.Push(&s.pending, &deadline{id: s.nextID, due: due, fire: fire})
	return s.nextID
}

// Cancel drops an armed deadline. Unknown or already-fired IDs are ignored.
func (s *Scheduler) Cancel(id DeadlineID) {
	for _, d := range s.pending {
		if d.id == id {
			s.cancelled[id] = struct{}{}
			return
		}
	}
}

// Advance fires every deadline due at or before now, in (due, arm) order.
// Deadlines armed by a callback that are already due fire in the same call.
func (s *Scheduler) Advance(now time.Duration) int {
	fired := 0
	for len(s.pending) > 0 && s.pending[0].due <= now {
		d := heap.Pop(&s.pending).(*deadline)
		if _, ok := s.cancelled[d.id]; ok {
			delete(s.cancelled, d.id)
			continue
		}
		d.fire(now)
		fired++
	}
	return fired
}

// Len returns the number of armed deadlines, including cancelled ones not yet reaped.
func (s *Scheduler) Len() int {
	return len(s.pending)
}
