// Package queue implements the strictly ordered processing pipeline:
// a single FIFO queue of pending messages drained by at most one
// goroutine at a time. Draining is edge-triggered: an enqueue while no
// drain is running starts one, an enqueue during a drain only appends.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Kind identifies what a queued message asks the pipeline to do.
type Kind string

const (
	KindObservation Kind = "observation"
	KindSummarize   Kind = "summarize"
	KindComplete    Kind = "complete"
)

// ObservationPayload is one raw tool invocation awaiting distillation.
type ObservationPayload struct {
	ToolName     string
	ToolInput    string
	ToolResponse string
	CWD          string
}

// SummarizePayload is the closing exchange of a session awaiting debrief.
type SummarizePayload struct {
	LastUserMessage      string
	LastAssistantMessage string
}

// CompletePayload marks a session finished.
type CompletePayload struct {
	Reason string
}

// Message is one unit of queued work. Exactly one payload field is set,
// matching Kind.
type Message struct {
	Kind            Kind
	ClaudeSessionID string
	Observation     *ObservationPayload
	Summarize       *SummarizePayload
	Complete        *CompletePayload
	EnqueuedAt      time.Time
}

// Handler processes a single message. Errors are logged and do not stop
// the drain.
type Handler func(ctx context.Context, msg Message) error

// Queue serializes all pipeline work. All store mutations flow through
// the single drain goroutine, which is the only concurrency control the
// write path needs.
type Queue struct {
	mu       sync.Mutex
	pending  []Message
	draining bool

	handle Handler
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func New(handle Handler) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		handle: handle,
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "queue").Logger(),
	}
}

// Enqueue appends a message and starts a drain if none is running.
// Never blocks.
func (q *Queue) Enqueue(msg Message) {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	q.pending = append(q.pending, msg)
	depth := len(q.pending)
	start := !q.draining
	if start {
		q.draining = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	q.log.Debug().
		Str("kind", string(msg.Kind)).
		Str("claudeSessionId", msg.ClaudeSessionID).
		Int("queueDepth", depth).
		Msg("Message enqueued")

	if start {
		go q.drain()
	}
}

// drain pops and processes messages in FIFO order until the queue is
// empty, then exits. A later enqueue starts a fresh drain.
func (q *Queue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.pending) == 0 || q.ctx.Err() != nil {
			q.draining = false
			q.mu.Unlock()
			return
		}
		msg := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if err := q.process(msg); err != nil {
			q.log.Error().
				Err(err).
				Str("kind", string(msg.Kind)).
				Str("claudeSessionId", msg.ClaudeSessionID).
				Msg("Message processing failed")
		}
	}
}

// process isolates a single message: a panic in the handler is
// converted to an error so one bad message cannot kill the drain.
func (q *Queue) process(msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return q.handle(q.ctx, msg)
}

// Pending returns the number of queued, not yet processed messages.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Shutdown waits for the active drain to finish in-flight work. If ctx
// expires first, remaining queued messages are abandoned: they are
// dropped, not persisted, and the loss is logged. No further messages
// are processed after Shutdown returns.
func (q *Queue) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		q.mu.Lock()
		abandoned := len(q.pending)
		q.pending = nil
		q.mu.Unlock()
		if abandoned > 0 {
			q.log.Warn().
				Int("abandoned", abandoned).
				Msg("Shutdown deadline reached, dropping queued messages")
		}
		return ctx.Err()
	}
}
