// Package fanout runs many independent operations with bounded parallelism.
// It is the single concurrency primitive behind every per-repository fan-out
// site: log queries, author extraction, and code-change extraction.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the process-wide default parallelism for fan-out sites.
const DefaultLimit = 8

// Task is a single zero-argument asynchronous operation
type Task[T any] func(ctx context.Context) (T, error)

// Result holds the outcome of one task, at the same index as its input
type Result[T any] struct {
	Value T
	Err   error
}

// Run executes all tasks with at most limit in flight simultaneously and
// returns results index-aligned with the input, regardless of completion
// order. A failing task never aborts its siblings; error handling policy is
// the caller's responsibility, applied per result.
func Run[T any](ctx context.Context, tasks []Task[T], limit int) []Result[T] {
	if limit < 1 {
		limit = DefaultLimit
	}

	results := make([]Result[T], len(tasks))

	g := &errgroup.Group{}
	g.SetLimit(limit)

	for i, task := range tasks {
		g.Go(func() error {
			value, err := task(ctx)
			results[i] = Result[T]{Value: value, Err: err}
			return nil
		})
	}

	// Errors are captured per result, so Wait never returns one.
	g.Wait()

	return results
}

// Values collects the successful values from results, dropping failures
func Values[T any](results []Result[T]) []T {
	values := make([]T, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			values = append(values, r.Value)
		}
	}
	return values
}
