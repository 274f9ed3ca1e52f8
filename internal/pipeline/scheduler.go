package pipeline

import (
	"context"
	"log/slog"
	"time"
)

type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
}

func NewScheduler(p *Pipeline, interval time.Duration) *Scheduler {
	return &Scheduler{pipeline: p, interval: interval}
}

// Start runs the pipeline right away and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.pipeline.Run(ctx)

	for {
		select {
		case <-ticker.C:
			s.pipeline.Run(ctx)
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return ctx.Err()
		}
	}
}
