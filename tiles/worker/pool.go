// Package worker runs tile fetches on a fixed number of goroutines.
package worker

import (
	"context"
	"sync"
	"time"
)

const (
	queueSize      = 100
	resubmitDelay  = 100 * time.Millisecond
	defaultTimeout = 10 * time.Second
)

type Pool struct {
	tasks   chan Task
	quit    chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

// Task is one unit of work. Work receives a context derived from Ctx that
// is also bounded by the pool timeout. Tasks whose Ctx is already done when
// a worker picks them up are dropped.
type Task struct {
	Ctx  context.Context
	Work func(ctx context.Context) error
}

func NewPool(maxWorkers int, timeout time.Duration) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	p := &Pool{
		tasks:   make(chan Task, queueSize),
		quit:    make(chan struct{}),
		timeout: timeout,
	}

	p.wg.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			p.run(task)
		}
	}
}

func (p *Pool) run(task Task) {
	parent := task.Ctx
	if parent == nil {
		parent = context.Background()
	}
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	_ = task.Work(ctx)
}

// Submit queues a task without blocking. When the queue is full the task is
// retried after a short delay until it is accepted, its context ends or the
// pool shuts down.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.quit:
		return
	case p.tasks <- task:
	default:
		go func() {
			timer := time.NewTimer(resubmitDelay)
			defer timer.Stop()
			var done <-chan struct{}
			if task.Ctx != nil {
				done = task.Ctx.Done()
			}
			select {
			case <-p.quit:
			case <-done:
			case <-timer.C:
				p.Submit(task)
			}
		}()
	}
}

// Shutdown stops the workers and waits for running tasks to return.
func (p *Pool) Shutdown() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
