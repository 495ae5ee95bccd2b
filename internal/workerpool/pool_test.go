package workerpool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/UnknownOlympus/hestia/internal/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(_ context.Context, idx int) (int, error) {
	return idx * idx, nil
}

func TestRun(t *testing.T) {
	ctx := t.Context()

	t.Run("output order matches input order for any pool size", func(t *testing.T) {
		single := workerpool.Run(ctx, workerpool.Config{Workers: 1}, 100, square)
		many := workerpool.Run(ctx, workerpool.Config{Workers: 7}, 100, square)

		require.Len(t, single, 100)
		assert.Equal(t, single, many)
		for i, res := range many {
			require.NoError(t, res.Err)
			assert.Equal(t, i*i, res.Value)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		res := workerpool.Run(ctx, workerpool.Config{Workers: 4}, 0, square)

		assert.Empty(t, res)
	})

	t.Run("panic is isolated to its row", func(t *testing.T) {
		task := func(_ context.Context, idx int) (int, error) {
			if idx == 4 {
				panic("boom")
			}
			return idx, nil
		}

		res := workerpool.Run(ctx, workerpool.Config{Workers: 3}, 10, task)

		require.Len(t, res, 10)
		for i, r := range res {
			if i == 4 {
				require.ErrorIs(t, r.Err, workerpool.ErrWorkerPanic)
				assert.Contains(t, r.Err.Error(), "boom")
				continue
			}
			require.NoError(t, r.Err)
			assert.Equal(t, i, r.Value)
		}
	})

	t.Run("task error is isolated to its row", func(t *testing.T) {
		task := func(_ context.Context, idx int) (int, error) {
			if idx%2 == 1 {
				return 0, assert.AnError
			}
			return idx, nil
		}

		res := workerpool.Run(ctx, workerpool.Config{Workers: 2}, 6, task)

		for i, r := range res {
			if i%2 == 1 {
				require.ErrorIs(t, r.Err, assert.AnError)
			} else {
				require.NoError(t, r.Err)
			}
		}
	})

	t.Run("cancelled context stops remaining rows", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		var calls atomic.Int32
		task := func(_ context.Context, idx int) (int, error) {
			calls.Add(1)
			return idx, nil
		}

		res := workerpool.Run(cctx, workerpool.Config{Workers: 2}, 5, task)

		assert.Zero(t, calls.Load())
		for _, r := range res {
			assert.True(t, errors.Is(r.Err, context.Canceled))
		}
	})

	t.Run("worker hooks are balanced", func(t *testing.T) {
		var active, started atomic.Int32
		cfg := workerpool.Config{
			Workers:       3,
			OnWorkerStart: func(int) { active.Add(1); started.Add(1) },
			OnWorkerStop:  func(int) { active.Add(-1) },
		}

		workerpool.Run(ctx, cfg, 9, square)

		assert.Equal(t, int32(3), started.Load())
		assert.Zero(t, active.Load())
	})
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, workerpool.DefaultWorkers(), 1)
}
