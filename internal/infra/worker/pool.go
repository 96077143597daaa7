package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Task is one unit of work scheduled on the pool.
type Task func(ctx context.Context) error

// Pool runs submitted tasks with a fixed concurrency limit. Submit blocks
// until a worker can take the task, which is what the job processor needs:
// a leased job must never be dropped on the floor.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int
	log  *zerolog.Logger
}

func NewPool(workers int, log *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 5
	}
	return &Pool{jobs: make(chan Task), quit: make(chan struct{}), n: workers, log: log}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						p.log.Error().Err(err).Int("worker", id).Msg("task error")
					}
				}
			}
		}(i)
	}
}

func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

// Submit hands a task to the pool, waiting for a free worker.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	case <-p.quit:
		return errors.New("pool stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}
