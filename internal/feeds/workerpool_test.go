package feeds

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsJobs(t *testing.T) {
	p := NewWorkerPool(4, 16)
	var failed int32
	p.OnError = func(error) { atomic.AddInt32(&failed, 1) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var ran int32
	for i := 0; i < 100; i++ {
		i := i
		err := p.Submit(ctx, func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			if i%10 == 0 {
				return errors.New("boom")
			}
			return nil
		})
		require.NoError(t, err)
	}
	p.Close()

	assert.Equal(t, int32(100), atomic.LoadInt32(&ran))
	assert.Equal(t, int32(10), atomic.LoadInt32(&failed))
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewWorkerPool(1, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Close()

	err := p.Submit(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestSubmitHonoursContext(t *testing.T) {
	p := NewWorkerPool(1, 1)
	// no workers started, so the queue fills up
	require.NoError(t, p.Submit(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Submit(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
