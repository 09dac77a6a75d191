package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/logging"
)

// TickFunc is invoked once per scheduled day.
type TickFunc func(ctx context.Context, day time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	// DailyAt is the wall-clock fire time in "15:04" form, UTC.
	DailyAt string
	// RunOnStart triggers an immediate catch-up tick for today.
	RunOnStart bool
	// StartupDelay postpones the first action after Run is called.
	StartupDelay time.Duration
	// RunTimeout bounds each tick invocation. Zero means no bound.
	RunTimeout time.Duration
}

// Scheduler drives the daily ingestion sweep: an optional catch-up run at
// startup, then one tick per day at the configured time.
type Scheduler struct {
	opts   Options
	fireAt time.Duration
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	at, err := time.Parse("15:04", opts.DailyAt)
	if err != nil {
		return nil, err
	}
	fireAt := time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute
	return &Scheduler{
		opts:   opts,
		fireAt: fireAt,
		logger: logging.Component(logger, "scheduler"),
	}, nil
}

// Run blocks, invoking the tick function daily until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.RunOnStart {
		s.execute(ctx, tick, today(time.Now().UTC()))
	}

	for {
		next := s.nextFire(time.Now().UTC())
		timer := time.NewTimer(time.Until(next))
		s.logger.Debug().Time("next_fire", next).Msg("waiting for next daily run")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		s.execute(ctx, tick, today(next))
	}
}

func (s *Scheduler) execute(ctx context.Context, tick TickFunc, day time.Time) {
	runCtx := ctx
	var cancel context.CancelFunc
	if s.opts.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
	}
	if cancel != nil {
		defer cancel()
	}

	s.logger.Info().Time("day", day).Msg("executing scheduled run")
	if err := tick(runCtx, day); err != nil {
		s.logger.Error().Err(err).Time("day", day).Msg("scheduled run failed")
	}
}

// nextFire returns the next wall-clock fire time strictly after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	fire := today(now).Add(s.fireAt)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

func today(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
