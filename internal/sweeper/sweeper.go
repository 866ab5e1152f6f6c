// Package sweeper completes past appointments on a cron schedule so their
// slots are released even when nobody reads the bookings.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Sweeper interface {
	SweepPastAppointments(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	log     *slog.Logger
}

// New parses schedule as a standard five-field cron expression (descriptors
// such as "@every 5m" also work) evaluated in loc.
func New(schedule string, loc *time.Location, sw Sweeper, timeout time.Duration, log *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sw,
		timeout: timeout,
		log:     log.With(slog.String("component", "sweeper")),
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce runs a single sweep and logs its outcome.
func (s *Scheduler) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := s.sweeper.SweepPastAppointments(ctx)
	if err != nil {
		s.log.Error("sweep failed", slog.Int("completed", n), slog.Any("err", err))
		return
	}
	s.log.Info("sweep finished", slog.Int("completed", n), slog.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("sweeper started")
}

// Stop halts scheduling and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("sweeper stop timed out")
	}
}
