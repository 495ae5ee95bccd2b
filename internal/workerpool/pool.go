// Package workerpool runs an indexed batch of tasks over a fixed number of goroutines
// and returns the results in input order.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrWorkerPanic is returned for a row whose task panicked.
var ErrWorkerPanic = errors.New("worker panicked")

// Task computes the value for the row at idx.
type Task[T any] func(ctx context.Context, idx int) (T, error)

// Result holds the outcome of a single row.
type Result[T any] struct {
	Value T
	Err   error
}

// Config controls the pool size and optional worker lifecycle hooks.
type Config struct {
	Workers       int           // Number of goroutines; values below 1 mean one worker.
	OnWorkerStart func(id int) // Called when a worker starts taking spans.
	OnWorkerStop  func(id int) // Called when a worker exits.
}

// span is a half-open range of row indices owned by one job.
type span struct {
	start int
	end   int
}

// DefaultWorkers returns the available parallelism minus one core reserved for the coordinator.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}

	return n
}

// Run executes task for every index in [0, n) and returns one Result per index.
// Indices are split into contiguous spans dispatched over a jobs channel; each worker
// writes only the slots of the spans it owns, so no locking is needed. A panic or error
// inside a task affects only that row. Once ctx is done, rows that have not started
// report ctx.Err(). All workers have exited when Run returns.
func Run[T any](ctx context.Context, cfg Config, n int, task Task[T]) []Result[T] {
	results := make([]Result[T], n)
	if n == 0 {
		return results
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	spans := partition(n, workers)
	jobs := make(chan span, len(spans))
	for _, s := range spans {
		jobs <- s
	}
	close(jobs)

	var wgr sync.WaitGroup
	for id := 1; id <= workers; id++ {
		wgr.Add(1)
		go worker(ctx, id, cfg, &wgr, jobs, results, task)
	}
	wgr.Wait()

	return results
}

func worker[T any](
	ctx context.Context,
	id int,
	cfg Config,
	wg *sync.WaitGroup,
	jobs <-chan span,
	results []Result[T],
	task Task[T],
) {
	defer wg.Done()
	if cfg.OnWorkerStart != nil {
		cfg.OnWorkerStart(id)
	}
	if cfg.OnWorkerStop != nil {
		defer cfg.OnWorkerStop(id)
	}

	for s := range jobs {
		for idx := s.start; idx < s.end; idx++ {
			if err := ctx.Err(); err != nil {
				results[idx] = Result[T]{Err: err}
				continue
			}
			results[idx] = runTask(ctx, idx, task)
		}
	}
}

func runTask[T any](ctx context.Context, idx int, task Task[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("%w: row %d: %v", ErrWorkerPanic, idx, r)}
		}
	}()

	value, err := task(ctx, idx)

	return Result[T]{Value: value, Err: err}
}

// partition splits [0, n) into at most parts contiguous spans of near-equal size.
func partition(n, parts int) []span {
	if parts < 1 {
		parts = 1
	}
	size := (n + parts - 1) / parts
	spans := make([]span, 0, parts)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		spans = append(spans, span{start: start, end: end})
	}

	return spans
}
