// Package worker provides the bounded concurrency primitives shared by the
// extraction and geocoding stages: a generic worker pool that streams
// results as they complete, and a per-host rate limiter for outbound HTTP.
package worker

import (
	"context"
	"sync"
)

// Task is one unit of work executed by the pool. The context passed in is
// the pool's context; tasks should stop early when it is canceled.
type Task[R any] func(ctx context.Context) R

// Pool runs tasks on a fixed number of goroutines and streams results out
// as they complete, in completion order. Submission and collection are meant
// to run concurrently: one goroutine submits and calls Close, another ranges
// over Results. Results never blocks the workers indefinitely, so any number
// of tasks can be submitted against any pool size.
type Pool[R any] struct {
	workers   int
	tasks     chan Task[R]
	results   chan R
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool starts a pool with the given number of workers, bound to ctx.
// Canceling ctx stops the workers after their current task.
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	pctx, cancel := context.WithCancel(ctx)
	p := &Pool[R]{
		workers: workers,
		tasks:   make(chan Task[R], workers),
		results: make(chan R, workers),
		ctx:     pctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			result := task(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues one task. It reports false when the pool is shut down, in
// which case the task will not run. Submit must not be called after Close;
// the submitting goroutine owns that ordering.
func (p *Pool[R]) Submit(task Task[R]) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	}
}

// Close signals that no more tasks will be submitted. The results channel
// closes once the workers drain the queue.
func (p *Pool[R]) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
	})
}

// Results returns the stream of completed task results. It closes after
// Close (or Shutdown) once every in-flight task has finished.
func (p *Pool[R]) Results() <-chan R {
	return p.results
}

// Shutdown cancels the pool: queued tasks are abandoned and workers exit
// after their current task. Safe to call from the collecting goroutine while
// the submitting goroutine is still running.
func (p *Pool[R]) Shutdown() {
	p.cancel()
}

// Run is the one-shot form: it executes all tasks with at most workers
// running concurrently and returns every result in completion order. It
// stops submitting when ctx is canceled and returns whatever completed.
func Run[R any](ctx context.Context, workers int, tasks []Task[R]) []R {
	pool := NewPool[R](ctx, workers)
	go func() {
		defer pool.Close()
		for _, task := range tasks {
			if !pool.Submit(task) {
				return
			}
		}
	}()

	results := make([]R, 0, len(tasks))
	for r := range pool.Results() {
		results = append(results, r)
	}
	return results
}
