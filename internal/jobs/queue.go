package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/medibook/telehealth-booking/internal/logging"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
)

type task struct {
	name     string
	run      func(ctx context.Context) error
	attempts int
}

// QueueConfig bounds the queue and its retry policy.
type QueueConfig struct {
	Capacity    int
	Workers     int
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Queue is a bounded in-process task queue with explicit workers. Failed
// tasks are re-submitted by a timer after exponential backoff; past
// MaxAttempts they are dropped with an error log.
type Queue struct {
	cfg     QueueConfig
	tasks   chan *task
	log     *logging.Logger
	onRetry func()

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	timers sync.WaitGroup
}

func NewQueue(cfg QueueConfig, log *logging.Logger, onRetry func()) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	if log == nil {
		log = logging.Default()
	}

	return &Queue{
		cfg:     cfg,
		tasks:   make(chan *task, cfg.Capacity),
		log:     log,
		onRetry: onRetry,
	}
}

// Start launches the workers. They drain until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Submit enqueues a task without blocking. ErrQueueFull when the bounded
// capacity is exhausted.
func (q *Queue) Submit(name string, run func(ctx context.Context) error) error {
	return q.enqueue(&task{name: name, run: run})
}

func (q *Queue) enqueue(t *task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for workers and pending retry timers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.timers.Wait()
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			q.process(ctx, t)
		}
	}
}

func (q *Queue) process(ctx context.Context, t *task) {
	err := t.run(ctx)
	if err == nil {
		return
	}

	t.attempts++
	if t.attempts >= q.cfg.MaxAttempts {
		q.log.Error("job dropped after max attempts",
			"job", t.name, "attempts", t.attempts, "err", err.Error())
		return
	}

	delay := q.backoff(t.attempts)
	q.log.Warn("job failed, retrying",
		"job", t.name, "attempt", t.attempts, "delay", delay.String(), "err", err.Error())
	if q.onRetry != nil {
		q.onRetry()
	}

	q.timers.Add(1)
	time.AfterFunc(delay, func() {
		defer q.timers.Done()
		if err := q.enqueue(t); err != nil {
			q.log.Error("could not re-enqueue job", "job", t.name, "err", err.Error())
		}
	})
}

func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.BackoffBase << uint(attempt-1)
	if delay > q.cfg.BackoffCap || delay <= 0 {
		delay = q.cfg.BackoffCap
	}
	return delay
}
