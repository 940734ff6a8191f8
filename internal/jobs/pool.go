// Package jobs is a fixed-size worker pool for bulk CPU work such as
// per-frame transform updates.
package jobs

import (
	"errors"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("jobs: pool closed")

// Pool runs submitted jobs on a fixed set of goroutines. Jobs are taken from
// one FIFO queue guarded by a mutex; workers sleep on a condition variable
// while the queue is empty.
//
// Safe for concurrent use.
type Pool struct {
	log *zap.Logger

	mu     sync.Mutex
	work   *sync.Cond // signalled when a job is queued or the pool closes
	idle   *sync.Cond // signalled when queue and active both reach zero
	queue  []func()
	active int
	closed bool

	workers int
	wg      sync.WaitGroup
}

// New starts a pool with the given number of workers; 0 or less uses GOMAXPROCS.
func New(workers int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		log:     log,
		queue:   make([]func(), 0, workers*4),
		workers: workers,
	}
	p.work = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.work.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.active++
		p.mu.Unlock()

		p.run(job)

		p.mu.Lock()
		p.active--
		if p.active == 0 && len(p.queue) == 0 {
			p.idle.Broadcast()
		}
		p.mu.Unlock()
	}
}

func (p *Pool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("工作 panic 已恢復", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	job()
}

// Submit queues job. It never blocks on running work.
func (p *Pool) Submit(job func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, job)
	p.work.Signal()
	return nil
}

// Await blocks until the queue is empty and no job is running.
func (p *Pool) Await() {
	p.mu.Lock()
	for len(p.queue) > 0 || p.active > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// ParallelFor calls fn(start, end) over [0, n) in chunks of at most chunk
// items and waits for those chunks only. Small ranges run on the caller.
func (p *Pool) ParallelFor(n, chunk int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if chunk <= 0 {
		chunk = (n + p.workers - 1) / p.workers
	}
	if n <= chunk {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		s := start
		err := p.Submit(func() {
			defer wg.Done()
			fn(s, end)
		})
		if err != nil {
			wg.Done()
			fn(s, end)
		}
	}
	wg.Wait()
}

// Close stops accepting jobs, lets queued jobs finish and waits for the workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.work.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
