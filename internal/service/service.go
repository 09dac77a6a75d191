package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/alerting"
	"commodity-price-intel/internal/ingest"
	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/scheduler"
	"commodity-price-intel/internal/storage"
)

// Service binds the scheduler to the ingestion engine and the notification
// worker for the long-running daemon.
type Service struct {
	scheduler *scheduler.Scheduler
	engine    *ingest.Engine
	worker    *alerting.Worker
	locker    storage.AdvisoryLocker
	lockKey   int64
	logger    zerolog.Logger
}

// New constructs the daemon service. worker and locker may be nil.
func New(sched *scheduler.Scheduler, engine *ingest.Engine, worker *alerting.Worker, locker storage.AdvisoryLocker, lockKey int64, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		engine:    engine,
		worker:    worker,
		locker:    locker,
		lockKey:   lockKey,
		logger:    logging.Component(logger, "service"),
	}
}

// Run starts the notification worker and blocks in the daily schedule loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	if s.worker != nil {
		go s.worker.Start(ctx)
	}

	return s.scheduler.Run(ctx, s.ProcessDay)
}

// ProcessDay runs one full category sweep for a day, guarded by the advisory
// lock so concurrent runners do not double-ingest.
func (s *Service) ProcessDay(ctx context.Context, day time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("day", day).Msg("skip run because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	report := s.engine.SyncAll(ctx, day)
	if failed := report.FailedCategories(); failed > 0 {
		s.logger.Warn().Int("failed_categories", failed).Time("day", day).Msg("sweep finished with category failures")
	}
	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
