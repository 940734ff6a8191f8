package jobs

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolWorkers(t *testing.T) {
	p := New(0, zap.NewNop())
	defer p.Close()
	assert.Equal(t, runtime.GOMAXPROCS(0), p.Workers())

	q := New(3, zap.NewNop())
	defer q.Close()
	assert.Equal(t, 3, q.Workers())
}

func TestAwaitWaitsForAllJobs(t *testing.T) {
	p := New(4, zap.NewNop())
	defer p.Close()

	var done atomic.Int64
	for i := 0; i < 200; i++ {
		require.NoError(t, p.Submit(func() {
			time.Sleep(50 * time.Microsecond)
			done.Add(1)
		}))
	}
	p.Await()
	assert.Equal(t, int64(200), done.Load())
}

func TestAwaitOnIdlePoolReturns(t *testing.T) {
	p := New(2, zap.NewNop())
	defer p.Close()

	finished := make(chan struct{})
	go func() {
		p.Await()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Await blocked on an idle pool")
	}
}

func TestSingleWorkerRunsFIFO(t *testing.T) {
	p := New(1, zap.NewNop())
	defer p.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, p.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	p.Await()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	p := New(1, zap.NewNop())
	defer p.Close()

	var ran atomic.Bool
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { ran.Store(true) }))
	p.Await()
	assert.True(t, ran.Load())
}

func TestParallelForCoversRange(t *testing.T) {
	p := New(4, zap.NewNop())
	defer p.Close()

	const n = 1000
	hits := make([]int32, n)
	p.ParallelFor(n, 64, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i, h := range hits {
		require.Equal(t, int32(1), h, "index %d", i)
	}

	var calls atomic.Int32
	p.ParallelFor(10, 64, func(start, end int) {
		calls.Add(1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, int32(1), calls.Load())

	p.ParallelFor(0, 8, func(int, int) { t.Fatal("empty range") })
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(2, zap.NewNop())
	var done atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(func() { done.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int32(20), done.Load(), "queued jobs drain before Close returns")
	assert.ErrorIs(t, p.Submit(func() {}), ErrClosed)
	p.Close()

	hits := 0
	p.ParallelFor(100, 10, func(start, end int) { hits += end - start })
	assert.Equal(t, 100, hits, "a closed pool runs chunks on the caller")
}
