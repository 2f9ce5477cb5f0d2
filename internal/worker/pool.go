package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrQueueFull is returned by Submit when every queue slot is taken.
var ErrQueueFull = errors.New("worker queue is full")

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("worker pool is stopped")

// Task is one unit of background work. The context is cancelled when the
// per-task timeout elapses.
type Task func(ctx context.Context)

type queuedTask struct {
	name string
	run  Task
}

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	queue   chan queuedTask
	workers int
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(workers, queueSize int, timeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		queue:   make(chan queuedTask, queueSize),
		workers: workers,
		timeout: timeout,
	}
}

// Start launches the workers. Tasks submitted before Start wait in the queue.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	log.Printf("worker pool started workers=%d queue=%d timeout=%s", p.workers, cap(p.queue), p.timeout)
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- queuedTask{name: name, run: task}:
		return nil
	default:
		log.Printf("worker queue full task=%s", name)
		return ErrQueueFull
	}
}

// Stop rejects new tasks and waits until queued ones have finished or ctx
// is done.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Printf("worker pool drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for t := range p.queue {
		p.run(ctx, id, t)
	}
}

func (p *Pool) run(parent context.Context, id int, t queuedTask) {
	ctx := parent
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, p.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker panic worker=%d task=%s: %v", id, t.name, r)
		}
	}()

	start := time.Now()
	t.run(ctx)
	log.Printf("worker task done worker=%d task=%s elapsed=%s", id, t.name, time.Since(start).Round(time.Millisecond))
}
