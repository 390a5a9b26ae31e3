// Package executor provides the two scheduling contexts the viewer runs on:
// a single interactive loop that owns presentation state, and a bounded pool
// of workers for blocking file I/O.
package executor

import (
	"context"
	"sync"
)

// MainLoop runs posted functions one at a time on the goroutine that calls Run.
type MainLoop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewMainLoop creates a loop whose queue holds up to buffer pending tasks.
func NewMainLoop(buffer int) *MainLoop {
	return &MainLoop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post queues fn. It reports false when the loop has stopped; fn is then dropped.
func (l *MainLoop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that
// point are abandoned.
func (l *MainLoop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *MainLoop) Done() <-chan struct{} {
	return l.done
}

// WorkerPool runs submitted jobs on background goroutines, at most size at a time.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{semaphore: make(chan struct{}, size)}
}

// Submit starts job in the background. Jobs cannot be cancelled once submitted.
func (p *WorkerPool) Submit(job func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.semaphore <- struct{}{}
		defer func() { <-p.semaphore }()

		job()
	}()
}

// Wait blocks until every submitted job has returned.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
