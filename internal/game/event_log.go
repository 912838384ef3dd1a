package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	EventBufferSize       = 1024                   // Circular buffer size
	MaxEventsPerSec       = 10000                  // Global rate limit
	MaxEventsPerSession   = 1000                   // Per-session rate limit per second
	BatchFlushSize        = 64                     // Events per batch write
	BatchFlushInterval    = 100 * time.Millisecond // How often to flush
	SessionLimiterCleanup = 5 * time.Minute        // Cleanup interval for session limiters
)

// EventSink receives domain events from the engine
type EventSink interface {
	Emit(event Event) bool
}

// EventLog provides bounded, rate-limited event logging with backpressure.
// Events are appended as NDJSON by a background writer.
type EventLog struct {
	// Circular buffer; oldest events are overwritten when full
	bufMu     sync.Mutex
	buffer    [EventBufferSize]Event
	writeHead uint64
	readHead  uint64

	globalLimiter   *rate.Limiter
	sessionLimiters sync.Map // map[string]*sessionLimiterEntry

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// Output
	out    *bufio.Writer
	closer io.Closer
	outMu  sync.Mutex

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
	writeErrors  atomic.Uint64
}

type sessionLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer.
// An empty path keeps events in memory only.
func (el *EventLog) Start(filePath string) error {
	if filePath == "" {
		return el.StartWriter(nil)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event log %s: %w", filePath, err)
	}
	return el.StartWriter(file)
}

// StartWriter begins the async writer on w. If w is an io.Closer it is
// closed by Stop.
func (el *EventLog) StartWriter(w io.Writer) error {
	if el.running.Load() {
		return nil
	}

	el.outMu.Lock()
	if w != nil {
		el.out = bufio.NewWriter(w)
		if c, ok := w.(io.Closer); ok {
			el.closer = c
		}
	}
	el.outMu.Unlock()

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes pending events and shuts down the writer
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		wasRunning := el.running.Swap(false)
		close(el.stopChan)
		if wasRunning {
			el.writerWg.Wait()
		}

		el.outMu.Lock()
		defer el.outMu.Unlock()
		if el.out != nil {
			if err := el.out.Flush(); err != nil {
				log.WithError(err).Warn("⚠️ Event log flush failed")
			}
		}
		if el.closer != nil {
			el.closer.Close()
		}
	})
}

// Emit adds an event with rate limiting.
// Returns false if rate limited or the log is not running.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}

	if event.Session != "" && !el.sessionLimiter(event.Session).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.bufMu.Lock()
	el.writeHead++
	if el.writeHead-el.readHead > EventBufferSize {
		// Drop oldest (rolling window)
		el.readHead++
		el.droppedCount.Add(1)
	}
	event.Sequence = el.writeHead
	el.buffer[el.writeHead%EventBufferSize] = event
	el.bufMu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, at time.Time, tickNum uint64, session string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, at, tickNum, session, payload))
}

func (el *EventLog) sessionLimiter(session string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.sessionLimiters.Load(session); ok {
		e := entry.(*sessionLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &sessionLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerSession, MaxEventsPerSession/10),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.sessionLimiters.LoadOrStore(session, entry)
	return actual.(*sessionLimiterEntry).limiter
}

// writerLoop batches and writes events asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			// Final drain
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale session limiters
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SessionLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSessionLimiters()
		}
	}
}

func (el *EventLog) cleanupSessionLimiters() {
	cutoff := time.Now().Add(-SessionLimiterCleanup).UnixNano()
	el.sessionLimiters.Range(func(key, value interface{}) bool {
		if value.(*sessionLimiterEntry).lastUsed.Load() < cutoff {
			el.sessionLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch reads available events from the circular buffer
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.bufMu.Lock()
	defer el.bufMu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		el.readHead++
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
	}
	return batch
}

// flushBatch writes events as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Event) {
	el.outMu.Lock()
	defer el.outMu.Unlock()

	if el.out == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			el.writeErrors.Add(1)
			continue
		}
		el.out.Write(data)
		el.out.WriteByte('\n')
	}
	if err := el.out.Flush(); err != nil {
		el.writeErrors.Add(1)
		log.WithError(err).Warn("⚠️ Event log write failed")
	}
}

// GetStats returns counters for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.bufMu.Lock()
	pending := el.writeHead - el.readHead
	el.bufMu.Unlock()

	return map[string]interface{}{
		"total":       el.totalCount.Load(),
		"dropped":     el.droppedCount.Load(),
		"writeErrors": el.writeErrors.Load(),
		"pending":     pending,
		"running":     el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return el.droppedCount.Load()
}

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 {
	return el.totalCount.Load()
}

// ReadEvents decodes an NDJSON event stream, as written by EventLog
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	dec := json.NewDecoder(r)
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			return events, fmt.Errorf("decode event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
