package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIndexAlignment(t *testing.T) {
	// Stagger completion so later tasks finish before earlier ones
	tasks := make([]Task[int], 20)
	for i := range tasks {
		delay := time.Duration(20-i) * time.Millisecond
		tasks[i] = func(ctx context.Context) (int, error) {
			time.Sleep(delay)
			return i * 10, nil
		}
	}

	results := Run(context.Background(), tasks, 4)
	require.Len(t, results, 20)

	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i*10, r.Value, "result %d not index-aligned", i)
	}
}

func TestRunConcurrencyLimit(t *testing.T) {
	const limit = 3

	var inFlight, maxInFlight int64
	tasks := make([]Task[struct{}], 30)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := atomic.AddInt64(&inFlight, 1)
			for {
				prev := atomic.LoadInt64(&maxInFlight)
				if n <= prev || atomic.CompareAndSwapInt64(&maxInFlight, prev, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return struct{}{}, nil
		}
	}

	Run(context.Background(), tasks, limit)

	assert.LessOrEqual(t, atomic.LoadInt64(&maxInFlight), int64(limit),
		"more than %d tasks were in flight simultaneously", limit)
}

func TestRunErrorIsolation(t *testing.T) {
	boom := errors.New("boom")

	tasks := []Task[string]{
		func(ctx context.Context) (string, error) { return "a", nil },
		func(ctx context.Context) (string, error) { return "", fmt.Errorf("task failed: %w", boom) },
		func(ctx context.Context) (string, error) { return "c", nil },
	}

	results := Run(context.Background(), tasks, 2)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "a", results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "c", results[2].Value)

	assert.Equal(t, []string{"a", "c"}, Values(results))
}

func TestRunEmpty(t *testing.T) {
	results := Run[int](context.Background(), nil, 8)
	assert.Empty(t, results)
}

func TestRunZeroLimitDefaults(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 42, nil },
	}
	results := Run(context.Background(), tasks, 0)
	require.Len(t, results, 1)
	assert.Equal(t, 42, results[0].Value)
}
