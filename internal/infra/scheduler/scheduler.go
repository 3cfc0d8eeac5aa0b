package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one periodic unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a Job every interval until stopped.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	logger   *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler defaults interval to one minute. Each run is bounded by the interval.
func NewScheduler(name string, interval time.Duration, job Job, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		timeout:  interval,
		job:      job,
		logger:   logger,
	}
}

// Start launches the loop. Calling Start on a running scheduler has no effect.
func (s *Scheduler) Start(parent context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.logger.Debug().Str("scheduler", s.name).Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, s.timeout)
			if err := s.job(runCtx); err != nil {
				s.logger.Warn().Err(err).Str("scheduler", s.name).Msg("scheduled job failed")
			}
			cancel()
		}
	}
}

// Stop cancels the loop and waits for it to exit. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.logger.Debug().Str("scheduler", s.name).Msg("scheduler stopped")
}
