package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"brawler/internal/game/spatial"
)

const (
	EventBufferSize         = 1024                   // pending events before new ones are dropped
	MaxEventsPerSec         = 10000                  // global rate limit
	MaxEventsPerCharacter   = 200                    // per character, per second
	BatchFlushSize          = 64                     // events per write
	BatchFlushInterval      = 100 * time.Millisecond // how often the writer drains
	CharacterLimiterCleanup = 5 * time.Minute        // idle character limiters are forgotten after this
)

type characterLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// EventLog is a bounded, rate-limited JSONL record of combat. Emit never
// blocks: events over the rate limits or beyond the buffer are counted as
// dropped. A writer goroutine appends batches to the file.
type EventLog struct {
	pending  *spatial.LockFreeQueue[Event]
	sequence atomic.Uint64

	global *rate.Limiter

	limitersMu sync.Mutex
	limiters   map[CharacterID]*characterLimiter

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	file *os.File
	out  *bufio.Writer

	total   atomic.Uint64
	dropped atomic.Uint64
}

// NewEventLog creates a stopped log. Events emitted before Start are ignored.
func NewEventLog() *EventLog {
	return &EventLog{
		pending:  spatial.NewLockFreeQueue[Event](EventBufferSize),
		global:   rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		limiters: make(map[CharacterID]*characterLimiter),
		stop:     make(chan struct{}),
	}
}

// Start opens filePath for append and starts the writer. An empty path keeps
// the counters and limits without writing anything.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return fmt.Errorf("event log: %w", err)
		}
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("event log: %w", err)
		}
		el.file = f
		el.out = bufio.NewWriter(f)
	}

	el.running.Store(true)
	el.wg.Add(2)
	go el.writeLoop()
	go el.sweepLoop()
	return nil
}

// Stop flushes what is pending and closes the file. Safe to call more than once.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stop)
		el.wg.Wait()

		if el.file != nil {
			if err := el.file.Close(); err != nil {
				log.Printf("❌ event log close: %v", err)
			}
		}
	})
}

// Emit queues event. It returns false when the log is stopped, a limit
// was hit or the buffer is full.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}
	if !el.global.Allow() || (event.CharacterID != "" && !el.allowCharacter(event.CharacterID)) {
		el.dropped.Add(1)
		return false
	}

	// sequence gaps in the file mark events lost to a full buffer
	event.Sequence = el.sequence.Add(1)
	if !el.pending.TryPush(event) {
		el.dropped.Add(1)
		return false
	}
	el.total.Add(1)
	return true
}

// EmitSimple builds and emits an event.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, simTime time.Duration, id CharacterID, payload interface{}) bool {
	if !el.running.Load() {
		return false
	}
	return el.Emit(NewEvent(eventType, tickNum, simTime, id, payload))
}

func (el *EventLog) allowCharacter(id CharacterID) bool {
	now := time.Now()

	el.limitersMu.Lock()
	defer el.limitersMu.Unlock()
	cl, ok := el.limiters[id]
	if !ok {
		cl = &characterLimiter{limiter: rate.NewLimiter(MaxEventsPerCharacter, MaxEventsPerCharacter/10)}
		el.limiters[id] = cl
	}
	cl.lastUsed = now
	return cl.limiter.AllowN(now, 1)
}

func (el *EventLog) writeLoop() {
	defer el.wg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, BatchFlushSize)
	for {
		select {
		case <-el.stop:
			el.drain(batch)
			return
		case <-ticker.C:
			el.drain(batch)
		}
	}
}

// drain writes everything pending, BatchFlushSize events at a time.
func (el *EventLog) drain(batch []Event) {
	for {
		n := el.pending.DrainTo(batch)
		if n == 0 {
			return
		}
		el.write(batch[:n])
		if n < len(batch) {
			return
		}
	}
}

func (el *EventLog) write(events []Event) {
	if el.out == nil {
		return
	}
	enc := json.NewEncoder(el.out)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			log.Printf("⚠️ event log: skipping %s event: %v", events[i].Type, err)
		}
	}
	if err := el.out.Flush(); err != nil {
		log.Printf("❌ event log write failed: %v", err)
	}
}

func (el *EventLog) sweepLoop() {
	defer el.wg.Done()

	ticker := time.NewTicker(CharacterLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stop:
			return
		case now := <-ticker.C:
			el.sweep(now.Add(-CharacterLimiterCleanup))
		}
	}
}

func (el *EventLog) sweep(cutoff time.Time) {
	el.limitersMu.Lock()
	defer el.limitersMu.Unlock()
	for id, cl := range el.limiters {
		if cl.lastUsed.Before(cutoff) {
			delete(el.limiters, id)
		}
	}
}

// GetStats reports counters for the stats endpoint and metrics.
func (el *EventLog) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"total":   el.total.Load(),
		"dropped": el.dropped.Load(),
		"pending": uint64(el.pending.Len()),
		"running": el.running.Load(),
	}
}

func (el *EventLog) GetDroppedCount() uint64 { return el.dropped.Load() }

func (el *EventLog) GetTotalCount() uint64 { return el.total.Load() }
