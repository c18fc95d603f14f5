// Package scheduler re-harvests the configured channels on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runner harvests every configured channel once. services.Harvester
// implements it.
type Runner interface {
	RunAll(ctx context.Context, source string) error
}

// Scheduler calls Runner.RunAll every Interval until its context ends.
// Ticks that fire while a pass is still running are dropped.
type Scheduler struct {
	Runner     Runner
	Interval   time.Duration
	RunOnStart bool
	// Source is recorded on every run. Defaults to "schedule".
	Source string
	Log    *zerolog.Logger
}

func (s *Scheduler) logger() *zerolog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return &log.Logger
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	source := s.Source
	if source == "" {
		source = "schedule"
	}
	lg := s.logger()
	lg.Info().Dur("interval", s.Interval).Bool("run_on_start", s.RunOnStart).Msg("scheduler: started")
	defer lg.Info().Msg("scheduler: stopped")

	pass := func() {
		start := time.Now()
		if err := s.Runner.RunAll(ctx, source); err != nil && ctx.Err() == nil {
			lg.Error().Err(err).Msg("scheduler: pass failed")
			return
		}
		lg.Debug().Dur("took", time.Since(start)).Msg("scheduler: pass done")
	}

	if s.RunOnStart {
		pass()
	}
	if s.Interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass()
		}
	}
}
