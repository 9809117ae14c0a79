package invites

import (
	"context"
	"time"

	"github.com/lumela/huecircle/internal/logging"
)

// Janitor periodically runs the invite cleanup sweep plus any extra
// sweeps (the circle service's expired-signal sweep is wired here by the
// caller). Explicit Cleanup calls remain available; the sweeps are
// idempotent so overlap with manual runs is harmless.
type Janitor struct {
	svc      *Service
	extra    []func(context.Context) (int, error)
	interval time.Duration
	log      logging.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewJanitor builds a stopped janitor. interval must be positive.
func NewJanitor(svc *Service, interval time.Duration, log logging.Logger, extra ...func(context.Context) (int, error)) *Janitor {
	return &Janitor{
		svc:      svc,
		extra:    extra,
		interval: interval,
		log:      log.With("component", "janitor"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep goroutine.
func (j *Janitor) Start() {
	go j.run()
}

// Stop halts the sweeps and waits for the goroutine to finish.
func (j *Janitor) Stop() {
	close(j.stopCh)
	<-j.doneCh
}

func (j *Janitor) run() {
	defer close(j.doneCh)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	ctx := context.Background()
	if n, err := j.svc.Cleanup(ctx); err != nil {
		j.log.Error(ctx, "invite cleanup failed", "err", err)
	} else if n > 0 {
		j.log.Info(ctx, "invite cleanup", "removed", n)
	}
	for _, fn := range j.extra {
		if n, err := fn(ctx); err != nil {
			j.log.Error(ctx, "sweep failed", "err", err)
		} else if n > 0 {
			j.log.Info(ctx, "sweep", "removed", n)
		}
	}
}
