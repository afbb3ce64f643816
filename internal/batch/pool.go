package batch

import (
	"context"
	"fmt"
	"sync"
)

// Result holds the outcome of one pool worker. Err is set when the worker
// returned an error or panicked; the rest of the pool is unaffected.
type Result[R any] struct {
	Value R
	Err   error
}

// RunPool fans worker out over items with at most concurrency workers in
// flight. Results come back in input order regardless of completion order,
// and a failing worker never aborts the pool: its slot carries the error.
// Cancelling ctx stops dispatching new items; already-running workers finish
// and undispatched slots are marked with ctx.Err().
func RunPool[T, R any](ctx context.Context, concurrency int, items []T, worker func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	workerChan := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range items {
		// Checked before the select so a context cancelled up front never
		// dispatches anything.
		if ctx.Err() != nil {
			for j := i; j < len(items); j++ {
				results[j].Err = ctx.Err()
			}
			wg.Wait()
			return results
		}
		select {
		case <-ctx.Done():
			for j := i; j < len(items); j++ {
				results[j].Err = ctx.Err()
			}
			wg.Wait()
			return results
		case workerChan <- struct{}{}:
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				defer func() { <-workerChan }()
				results[idx] = runWorker(ctx, items[idx], worker)
			}(i)
		}
	}

	wg.Wait()
	return results
}

func runWorker[T, R any](ctx context.Context, item T, worker func(context.Context, T) (R, error)) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	value, err := worker(ctx, item)
	res.Value = value
	res.Err = err
	return res
}
