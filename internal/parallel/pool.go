// Package parallel distributes independent per-slice volume work across a
// pool of worker goroutines. CPU-side analysis passes operate slice by
// slice with no cross-slice dependencies, so each slice becomes one work
// item.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs work items on a fixed set of goroutines. Each worker
// owns a queue and steals from the others when its own runs dry, which
// keeps cores busy when slices cost unevenly.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool creates a pool with the given number of workers, or
// GOMAXPROCS when workers is not positive. Workers start immediately.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}
	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	mine := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(mine)
			return
		case work := <-mine:
			if work != nil {
				work()
			}
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(mine)
				return
			case work := <-mine:
				if work != nil {
					work()
				}
			}
		}
	}
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}

// steal takes one item from another worker's queue, nil when all queues
// are empty.
func (p *WorkerPool) steal(myID int) func() {
	for i := 0; i < p.workers; i++ {
		if i == myID {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll queues every item round-robin and waits for all of them to
// finish. On a closed pool the items run on the caller instead.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		fn := fn
		wrapped := func() {
			defer wg.Done()
			fn()
		}
		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-p.done:
			wrapped()
		}
	}
	wg.Wait()
}

// Close stops accepting work, finishes everything queued and joins the
// workers. Close is idempotent.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the pool size.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool { return p.running.Load() }

var (
	sharedOnce sync.Once
	sharedPool *WorkerPool
)

func shared() *WorkerPool {
	sharedOnce.Do(func() { sharedPool = NewWorkerPool(0) })
	return sharedPool
}

// For runs fn for every index in [0, n) on the shared pool and waits for
// completion. Iterations must be independent.
func For(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || runtime.GOMAXPROCS(0) == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	work := make([]func(), n)
	for i := 0; i < n; i++ {
		i := i
		work[i] = func() { fn(i) }
	}
	shared().ExecuteAll(work)
}
