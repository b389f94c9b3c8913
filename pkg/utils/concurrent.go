package utils

import (
	"context"
	"runtime"
	"sync"
)

// DefaultConcurrency is the worker count used when a caller passes a
// non-positive concurrency limit.
func DefaultConcurrency() int {
	return runtime.NumCPU()
}

// ExecuteWithResults runs functions concurrently under a semaphore and
// returns per-function results and errors, index-aligned with the input.
// Panics in goroutines are recovered and surfaced as PanicError.
func ExecuteWithResults[T any](ctx context.Context, maxConcurrency int, functions ...func() (T, error)) ([]T, []error) {
	if len(functions) == 0 {
		return nil, nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency()
	}

	semaphore := make(chan struct{}, maxConcurrency)
	results := make([]T, len(functions))
	errors := make([]error, len(functions))
	var wg sync.WaitGroup

	for i, fn := range functions {
		wg.Add(1)
		go func(index int, function func() (T, error)) {
			defer wg.Done()
			defer RecoverWithCallback(func(err error) {
				errors[index] = err
			})

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				errors[index] = ctx.Err()
				return
			}

			results[index], errors[index] = function()
		}(i, fn)
	}

	wg.Wait()
	return results, errors
}

// Worker processes one item and returns its result.
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool fans a slice of items out over a fixed number of worker
// goroutines. Workers drain an internal channel and stop when it is
// exhausted or the context is cancelled; ProcessItems blocks until all
// workers finish. Panics in workers are recovered as PanicError.
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

// NewWorkerPool creates a worker pool with the given parallelism.
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = DefaultConcurrency()
	}
	return &WorkerPool[T, R]{numWorkers: numWorkers, worker: worker}
}

// ProcessItems processes items concurrently and returns results and errors
// index-aligned with the input slice.
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	type job struct {
		item  T
		index int
	}
	jobs := make(chan job, len(items))
	for i, item := range items {
		jobs <- job{item: item, index: i}
	}
	close(jobs)

	results := make([]R, len(items))
	errors := make([]error, len(items))
	var wg sync.WaitGroup

	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case j, ok := <-jobs:
					if !ok {
						return
					}
					func() {
						defer RecoverWithCallback(func(err error) {
							errors[j.index] = err
						})
						results[j.index], errors[j.index] = wp.worker(ctx, j.item)
					}()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	wg.Wait()
	return results, errors
}
