// Package parallel runs row bands of raster work across a fixed set of
// goroutines.
//
// The pool distributes work items across workers, each with its own queue.
// Workers steal from other queues when their own is empty, which keeps the
// wide horizontal pass and the narrow tail bands of a blur balanced.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines for band-parallel raster passes.
//
// Thread safety: WorkerPool is safe for concurrent use. Work items must not
// call back into the pool that runs them.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool

	// submitMu orders enqueues before Close so no item lands in a queue
	// after its worker has drained it.
	submitMu sync.RWMutex
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll runs every work item and waits for all of them.
// A nil or closed pool runs the items on the calling goroutine.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if p == nil {
		runInline(work)
		return
	}

	p.submitMu.RLock()
	if !p.running.Load() {
		p.submitMu.RUnlock()
		runInline(work)
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		p.workQueues[i%p.workers] <- func() {
			defer wg.Done()
			fn()
		}
	}
	p.submitMu.RUnlock()
	wg.Wait()
}

func runInline(work []func()) {
	for _, fn := range work {
		fn()
	}
}

// Rows splits [0, n) into contiguous bands, one or more per worker, and calls
// fn for each band. It returns ctx.Err() if the context is done before the
// bands are dispatched or after they complete.
func (p *WorkerPool) Rows(ctx context.Context, n int, fn func(lo, hi int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}

	bands := p.Workers() * 2
	size := max((n+bands-1)/bands, 1)

	work := make([]func(), 0, bands)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		work = append(work, func() {
			if ctx.Err() != nil {
				return
			}
			fn(lo, hi)
		})
	}
	p.ExecuteAll(work)
	return ctx.Err()
}

// Close stops the workers after the queued work completes.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if p == nil {
		return
	}
	p.submitMu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.submitMu.Unlock()
		return
	}
	close(p.done)
	p.submitMu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers, 1 for a nil pool.
func (p *WorkerPool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p != nil && p.running.Load()
}

// QueuedWork returns the approximate number of queued work items.
func (p *WorkerPool) QueuedWork() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
