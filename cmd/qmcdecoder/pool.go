package main

import (
	"context"
	"sync"
)

type job struct {
	input string

	// overwrite replaces an existing output instead of skipping the container.
	overwrite bool
}

// pool runs jobs on a fixed number of workers. Results are delivered in completion order and
// the results channel is closed once the pool has been closed and every worker returned.
type pool struct {
	workers int
	process func(ctx context.Context, j job) jobResult

	jobs    chan job
	results chan jobResult
	wg      sync.WaitGroup
}

func newPool(workers int, process func(ctx context.Context, j job) jobResult) *pool {
	if workers < 1 {
		workers = 1
	}

	return &pool{
		workers: workers,
		process: process,
		jobs:    make(chan job, workers*2),
		results: make(chan jobResult),
	}
}

func (p *pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for j := range p.jobs {
		// drain what is left once cancelled
		if ctx.Err() != nil {
			continue
		}

		p.results <- p.process(ctx, j)
	}
}

// Submit queues a job, blocking while the queue is full. It returns false if the context is
// done before the job could be queued.
func (p *pool) Submit(ctx context.Context, j job) bool {
	select {
	case p.jobs <- j:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops accepting jobs, must be called exactly once after the last Submit.
func (p *pool) Close() {
	close(p.jobs)
}

func (p *pool) Results() <-chan jobResult {
	return p.results
}
