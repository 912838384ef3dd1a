package input

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// CommandQueue buffers commands from connections that must not block on the
// engine (WebSocket readers). A single worker applies them in arrival order.
type CommandQueue struct {
	commands chan Command
	handler  *Handler
	wg       sync.WaitGroup
	running  atomic.Bool
	stopChan chan struct{}

	// OnResult, if set, receives the outcome of every processed command
	OnResult func(Command, Result)

	// Metrics
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	dropped     atomic.Uint64
	avgWaitTime atomic.Int64 // nanoseconds, exponential moving average
}

// NewCommandQueue creates a new command queue
func NewCommandQueue(handler *Handler, bufferSize int) *CommandQueue {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &CommandQueue{
		commands: make(chan Command, bufferSize),
		handler:  handler,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker
func (q *CommandQueue) Start() {
	if q.running.Swap(true) {
		return // Already running
	}

	log.Printf("🚀 CommandQueue starting, buffer size %d", cap(q.commands))

	q.wg.Add(1)
	go q.worker()
}

// Stop processes what is already buffered, then shuts down
func (q *CommandQueue) Stop() {
	if !q.running.Swap(false) {
		return // Not running
	}

	close(q.stopChan)
	q.wg.Wait()

	log.Printf("📊 CommandQueue stopped - enqueued: %d, processed: %d, dropped: %d",
		q.enqueued.Load(), q.processed.Load(), q.dropped.Load())
}

// Enqueue adds a command to the queue (non-blocking).
// Returns false if the queue is full or stopped and the command was dropped.
func (q *CommandQueue) Enqueue(cmd Command) bool {
	if !q.running.Load() {
		q.dropped.Add(1)
		return false
	}
	cmd.ReceivedAt = time.Now()

	select {
	case q.commands <- cmd:
		q.enqueued.Add(1)
		return true
	default:
		// Queue full - drop command to prevent backpressure
		dropped := q.dropped.Add(1)
		if dropped%100 == 1 {
			log.Printf("⚠️ CommandQueue full, dropped %s from %s (total dropped: %d)",
				cmd.Kind, cmd.Source, dropped)
		}
		return false
	}
}

func (q *CommandQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopChan:
			// Drain what was accepted before Stop
			for {
				select {
				case cmd := <-q.commands:
					q.process(cmd)
				default:
					return
				}
			}
		case cmd := <-q.commands:
			q.process(cmd)
		}
	}
}

func (q *CommandQueue) process(cmd Command) {
	waitTime := time.Since(cmd.ReceivedAt)
	q.updateAvgWaitTime(waitTime)

	if waitTime > 100*time.Millisecond {
		log.Printf("⚠️ %s command from %s waited %.1fms in queue",
			cmd.Kind, cmd.Source, float64(waitTime.Microseconds())/1000)
	}

	res := q.handler.ProcessCommand(cmd)
	q.processed.Add(1)
	if q.OnResult != nil {
		q.OnResult(cmd, res)
	}
}

// updateAvgWaitTime updates exponential moving average
func (q *CommandQueue) updateAvgWaitTime(waitTime time.Duration) {
	current := q.avgWaitTime.Load()
	// EMA with alpha = 0.1 (smooth over ~10 samples)
	newAvg := (current*9 + waitTime.Nanoseconds()) / 10
	q.avgWaitTime.Store(newAvg)
}

// Stats returns current queue statistics
func (q *CommandQueue) Stats() QueueStats {
	return QueueStats{
		Enqueued:       q.enqueued.Load(),
		Processed:      q.processed.Load(),
		Dropped:        q.dropped.Load(),
		Pending:        uint64(len(q.commands)),
		BufferSize:     uint64(cap(q.commands)),
		AvgWaitTimeMs:  float64(q.avgWaitTime.Load()) / 1e6,
		BufferUsagePct: float64(len(q.commands)) / float64(cap(q.commands)) * 100,
	}
}

// QueueStats holds queue metrics
type QueueStats struct {
	Enqueued       uint64  `json:"enqueued"`
	Processed      uint64  `json:"processed"`
	Dropped        uint64  `json:"dropped"`
	Pending        uint64  `json:"pending"`
	BufferSize     uint64  `json:"buffer_size"`
	AvgWaitTimeMs  float64 `json:"avg_wait_time_ms"`
	BufferUsagePct float64 `json:"buffer_usage_pct"`
}
