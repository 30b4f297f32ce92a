// Package worker provides an asynchronous worker pool that persists finished
// conversation turns using the provided storage.Driver and publishes them to
// the provided eventstream.Publisher.
//
// The pool decouples storage operations from the streaming hot path so that
// the client never waits on the history database or the event stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/storage"
	"github.com/papercomputeco/promptsmith/pkg/stream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Source eventstream.EventSource
	Turn   eventstream.TurnMeta
	Record conversation.Record
}

// NewJob snapshots conv after a turn that ended with res.
func NewJob(source eventstream.EventSource, conv *conversation.State, res *stream.Result, elapsed time.Duration) Job {
	turn := eventstream.TurnMeta{
		State:            res.State.String(),
		Deltas:           res.Deltas,
		DroppedFragments: res.DroppedFragments,
		DurationMs:       elapsed.Milliseconds(),
	}
	if res.Err != nil {
		turn.Error = res.Err.Error()
	}
	if source.Model == "" {
		source.Model = conv.Model()
	}
	return Job{Source: source, Turn: turn, Record: conv.Snapshot()}
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting conversations.
	Driver storage.Driver

	// Publisher receives a TurnCompletedEvent after each stored turn.
	// Optional.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"conversation_id", job.Record.ID,
			"state", job.Turn.State,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"conversation_id", job.Record.ID,
			"state", job.Turn.State,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
// The publisher, when set, is closed last.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()

		if p.config.Publisher != nil {
			if err := p.config.Publisher.Close(); err != nil {
				p.logger.Warn("closing event publisher", "error", err)
			}
		}
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob stores the conversation, then publishes the turn. A failed
// store skips publishing.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if err := p.config.Driver.SaveConversation(ctx, job.Record); err != nil {
		p.logger.Error("async conversation storage failed",
			"conversation_id", job.Record.ID,
			"error", err,
		)
		return
	}

	p.logger.Info("conversation stored",
		"conversation_id", job.Record.ID,
		"messages", len(job.Record.Messages),
		"state", job.Turn.State,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewTurnCompletedEvent(job.Source, job.Turn, job.Record)
	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("failed to publish turn event",
			"conversation_id", job.Record.ID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
