package pool

import (
	"context"
	"sync"
)

// WorkerFunc defines the function signature for a worker that processes an item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// Run executes a worker pool. It processes a slice of items concurrently with numWorkers
// goroutines (at least one). It returns a slice containing any errors that occurred during processing.
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	return run(ctx, items, numWorkers, workerFunc, nil)
}

// RunUntilError is Run, except that the first error stops the pool: items not yet handed to a
// worker are skipped and the context passed to running workers is cancelled.
func RunUntilError[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return run(ctx, items, numWorkers, workerFunc, cancel)
}

func run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T], onError context.CancelFunc) []error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	var wg sync.WaitGroup
	taskChan := make(chan T, numWorkers)
	errChan := make(chan error, len(items))

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range taskChan {
				select {
				case <-ctx.Done():
					return
				default:
					if err := workerFunc(ctx, item); err != nil {
						errChan <- err
						if onError != nil {
							onError()
						}
					}
				}
			}
		}()
	}

OUT:
	for _, item := range items {
		select {
		case taskChan <- item:
		case <-ctx.Done():
			// Stop feeding tasks if the context is cancelled
			break OUT
		}
	}
	close(taskChan)

	wg.Wait()
	close(errChan)

	var allErrors []error
	for err := range errChan {
		allErrors = append(allErrors, err)
	}
	return allErrors
}
