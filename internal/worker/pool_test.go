package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_ClampsWorkers(t *testing.T) {
	for _, workers := range []int{0, -3} {
		pool := NewPool[int](context.Background(), workers)
		if pool.workers != 1 {
			t.Errorf("expected 1 worker for input %d, got %d", workers, pool.workers)
		}
		pool.Close()
	}
}

func TestRun_ExecutesAllTasks(t *testing.T) {
	var executed int32
	count := 10

	tasks := make([]Task[int], count)
	for i := 0; i < count; i++ {
		i := i
		tasks[i] = func(ctx context.Context) int {
			atomic.AddInt32(&executed, 1)
			return i
		}
	}

	results := Run(context.Background(), 3, tasks)

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed tasks, got %d", count, executed)
	}

	seen := make(map[int]bool)
	for _, r := range results {
		seen[r] = true
	}
	if len(seen) != count {
		t.Errorf("expected %d distinct results, got %d", count, len(seen))
	}
}

func TestRun_ManyMoreTasksThanWorkers(t *testing.T) {
	// Regression guard: submission must never deadlock against collection,
	// no matter how far the task count exceeds the channel buffers.
	var executed int32
	count := 500

	tasks := make([]Task[struct{}], count)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) struct{} {
			atomic.AddInt32(&executed, 1)
			return struct{}{}
		}
	}

	results := Run(context.Background(), 2, tasks)
	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed tasks, got %d", count, executed)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	workers := 4
	var current, peak int32
	var mu sync.Mutex

	tasks := make([]Task[struct{}], 40)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) struct{} {
			curr := atomic.AddInt32(&current, 1)
			mu.Lock()
			if curr > peak {
				peak = curr
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return struct{}{}
		}
	}

	Run(context.Background(), workers, tasks)

	mu.Lock()
	defer mu.Unlock()
	if peak > int32(workers) {
		t.Errorf("peak concurrency %d exceeded %d workers", peak, workers)
	}
	if peak <= 1 {
		t.Logf("warning: peak concurrency was %d, expected > 1", peak)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := make([]Task[int], 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) int { return 1 }
	}

	done := make(chan []int, 1)
	go func() { done <- Run(ctx, 2, tasks) }()

	select {
	case results := <-done:
		if len(results) == 20 {
			t.Log("all tasks ran before cancellation took effect")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on canceled context")
	}
}

func TestPool_StreamsResultsWhileSubmitting(t *testing.T) {
	pool := NewPool[int](context.Background(), 1)
	count := 10

	go func() {
		defer pool.Close()
		for i := 0; i < count; i++ {
			i := i
			if !pool.Submit(func(ctx context.Context) int { return i }) {
				return
			}
		}
	}()

	got := 0
	for range pool.Results() {
		got++
	}
	if got != count {
		t.Errorf("expected %d streamed results, got %d", count, got)
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool[int](context.Background(), 2)
	pool.Shutdown()

	done := make(chan bool, 1)
	go func() {
		done <- pool.Submit(func(ctx context.Context) int { return 1 })
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected Submit to report false after shutdown")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
	pool.Close()
}

func TestPool_ShutdownClosesResults(t *testing.T) {
	pool := NewPool[struct{}](context.Background(), 2)

	started := make(chan struct{})
	go func() {
		defer pool.Close()
		pool.Submit(func(ctx context.Context) struct{} {
			close(started)
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
			}
			return struct{}{}
		})
	}()

	<-started
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		for range pool.Results() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("results channel did not close after shutdown")
	}
}
