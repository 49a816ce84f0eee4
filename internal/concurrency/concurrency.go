// Package concurrency provides a bounded task runner for fan-out work.
package concurrency

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Task is one unit of async work.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes tasks with at most maxConcurrent in flight at once. As each
// task finishes, the next queued one starts. Results are collected in
// completion order, not submission order; callers needing positional
// correspondence must correlate by an identifier embedded in T.
//
// The first task error fails the whole run. Already-started sibling tasks are
// not cancelled; they run to completion and their results are discarded.
// maxConcurrent == 1 degenerates to strict sequential execution.
func Run[T any](ctx context.Context, tasks []Task[T], maxConcurrent int) ([]T, error) {
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("maxConcurrent must be >= 1, got %d", maxConcurrent)
	}

	type outcome struct {
		value T
		err   error
	}

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	done := make(chan outcome, len(tasks))

	started := 0
	for _, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		started++
		go func(t Task[T]) {
			defer sem.Release(1)
			v, err := t(ctx)
			done <- outcome{value: v, err: err}
		}(task)
	}

	results := make([]T, 0, started)
	var firstErr error
	for i := 0; i < started; i++ {
		o := <-done
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		results = append(results, o.value)
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if started < len(tasks) {
		return nil, ctx.Err()
	}
	return results, nil
}
