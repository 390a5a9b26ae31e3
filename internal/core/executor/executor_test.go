package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainLoopRunsTasksInOrder(t *testing.T) {
	loop := NewMainLoop(10)
	ctx, cancel := context.WithCancel(context.Background())

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, loop.Post(func() { got = append(got, i) }))
	}
	loop.Post(cancel)

	loop.Run(ctx)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestMainLoopRejectsAfterStop(t *testing.T) {
	loop := NewMainLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loop.Run(ctx)

	select {
	case <-loop.Done():
	default:
		t.Fatal("Done should be closed after Run returns")
	}
	assert.False(t, loop.Post(func() {}))
}

func TestMainLoopRunsOnSingleGoroutine(t *testing.T) {
	loop := NewMainLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go loop.Post(func() {
			defer wg.Done()
			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&maxActive) {
				atomic.StoreInt32(&maxActive, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)

	var active, maxActive, done int32
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			atomic.AddInt32(&done, 1)
		})
	}
	pool.Wait()

	assert.Equal(t, int32(10), done)
	assert.LessOrEqual(t, maxActive, int32(2))
}

func TestNewWorkerPoolMinimumSize(t *testing.T) {
	assert.Equal(t, 1, cap(NewWorkerPool(0).semaphore))
}
