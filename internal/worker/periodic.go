package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Periodic runs a task on a fixed interval until the context is cancelled.
// Runs never overlap; a slow run delays the next tick.
type Periodic struct {
	name  string
	every time.Duration
	task  func(ctx context.Context) error
	log   zerolog.Logger
}

// NewPeriodic creates a Periodic that calls task every interval.
func NewPeriodic(name string, every time.Duration, task func(ctx context.Context) error, log zerolog.Logger) *Periodic {
	return &Periodic{
		name:  name,
		every: every,
		task:  task,
		log:   log.With().Str("component", name).Logger(),
	}
}

// Start runs the task once immediately, then on every tick. It returns when
// ctx is cancelled.
func (p *Periodic) Start(ctx context.Context) {
	p.log.Info().Dur("interval", p.every).Msg("Worker started")

	ticker := time.NewTicker(p.every)
	defer ticker.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	start := time.Now()
	if err := p.task(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Error().Err(err).Dur("took", time.Since(start)).Msg("Run failed")
		return
	}
	p.log.Debug().Dur("took", time.Since(start)).Msg("Run finished")
}
