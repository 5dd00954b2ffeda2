package pool

import (
	"context"
	"sync"
)

// WorkerPool bounds the number of jobs rendered at once. Browser launches are
// expensive, so the cap keeps memory and process count predictable.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

// Submit runs fn on a free slot. If the context is cancelled before a slot
// frees up, fn never runs.
func (p *WorkerPool) Submit(ctx context.Context, fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		// A select with both cases ready picks at random, so an
		// already-cancelled context must be rejected before contending
		// for a slot.
		if ctx.Err() != nil {
			return
		}

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			fn()
		case <-ctx.Done():
		}
	}()
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
