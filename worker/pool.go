// Package worker runs background tasks on a fixed set of goroutines.
package worker

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
)

var ErrClosed = errors.New("worker: pool is closed")

// Pool executes submitted tasks on a fixed number of goroutines. Tasks run in
// no particular order relative to each other.
//
// The queue is unbounded: Submit never waits for a worker to become free.
type Pool struct {
	mu      sync.Mutex
	ready   *sync.Cond
	queue   []func()
	closed  bool
	workers sync.WaitGroup
	pending sync.WaitGroup
}

// New starts a pool with the given number of workers. Values below one start a
// single worker.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{}
	p.ready = sync.NewCond(&p.mu)
	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns a process wide pool with one worker per CPU. It is never
// closed.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = New(runtime.GOMAXPROCS(0))
	})
	return defaultPool
}

func (p *Pool) run() {
	defer p.workers.Done()
	for {
		task, ok := p.next()
		if !ok {
			return
		}
		p.execute(task)
	}
}

// next pops the oldest queued task. It reports false once the pool is closed
// and the queue has drained.
func (p *Pool) next() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.ready.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	task := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return task, true
}

func (p *Pool) execute(task func()) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker task panicked", "panic", r)
		}
	}()
	task()
}

// Submit queues task and returns immediately.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.pending.Add(1)
	p.queue = append(p.queue, task)
	p.ready.Signal()
	return nil
}

// Wait blocks until every task submitted so far has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close stops accepting tasks, lets queued tasks finish and stops the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.ready.Broadcast()
	p.mu.Unlock()
	p.workers.Wait()
}
