package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"workspace-assistant/internal/infra/metrics"
)

// Task is a unit of work run by the pool with the pool's context.
type Task func(ctx context.Context) error

var ErrPoolStopped = errors.New("worker pool stopped")

// Pool runs submitted tasks on a fixed number of goroutines. A panicking task
// is recovered and logged; the worker keeps running.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	done chan struct{}
	n    int
	log  *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		jobs: make(chan Task, workers),
		done: make(chan struct{}),
		n:    workers,
		log:  logger,
	}
}

// Start launches the workers. They exit once ctx is done, after finishing
// the task in hand.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
}

// Submit queues task, blocking while every worker is busy and the queue is
// full. It fails when ctx is done or the pool has stopped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	case <-p.done:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	<-p.done
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncWorkerPanic()
			p.log.Error().
				Int("worker_id", id).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("worker task panic")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Error().Err(err).Int("worker_id", id).Msg("worker task error")
	}
}
