// Package worker runs background maintenance jobs on a fixed interval.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Job is one run of a periodic task.
type Job func(ctx context.Context) error

// Periodic calls a Job every interval until stopped. Each run gets at most half
// the interval so a slow run never overlaps the next tick.
type Periodic struct {
	name     string
	interval time.Duration
	job      Job
	log      *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func NewPeriodic(name string, interval time.Duration, job Job, log *slog.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		job:      job,
		log:      log.With("worker", name),
	}
}

// Start launches the goroutine. It returns immediately; calling Start twice is a no-op.
// The worker also exits when ctx is cancelled.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	p.log.Debug("starting worker", "interval", p.interval)
	ticker := time.NewTicker(p.interval)

	go func(stopCh, doneCh chan struct{}) {
		defer close(doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.RunOnce(ctx)
			case <-stopCh:
				p.log.Info("stopping worker")
				return
			case <-ctx.Done():
				p.log.Info("worker context done")
				return
			}
		}
	}(p.stopCh, p.doneCh)
}

// RunOnce runs the job synchronously with the per-run deadline applied.
func (p *Periodic) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, p.interval/2)
	defer cancel()

	if err := p.job(runCtx); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			p.log.Error("worker run failed", "err", err)
		}
	}
}

// Stop signals the goroutine and waits for it to exit.
func (p *Periodic) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}
