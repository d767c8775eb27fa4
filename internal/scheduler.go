package internal

import (
	"context"
	"time"

	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

// Scheduler enqueues the recurring full regeneration when the schedule setting is on.
type Scheduler struct {
	settings *SettingsStore
	queue    swatches.WorkQueue
	logger   *zap.Logger
	nowFunc  func() time.Time
}

func NewScheduler(settings *SettingsStore, queue swatches.WorkQueue, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{settings: settings, queue: queue, logger: logger, nowFunc: time.Now}
}

// EnqueueIfDue adds a RegenerateAll item once per configured interval.
func (s *Scheduler) EnqueueIfDue(ctx context.Context) error {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.ScheduleEnabled {
		return nil
	}
	now := s.nowFunc()
	last, ok, err := s.settings.LastScheduledRun(ctx)
	if err != nil {
		return err
	}
	if ok && now.Sub(last) < cfg.ScheduleInterval.Duration() {
		return nil
	}

	added, err := s.queue.Enqueue(ctx, swatches.RegenerateAll(now))
	if err != nil {
		return swatches.NewQueueError("enqueue scheduled regeneration", err)
	}
	if err := s.settings.MarkScheduledRun(ctx, now); err != nil {
		return err
	}
	s.logger.Info("scheduled regeneration enqueued",
		zap.String("interval", string(cfg.ScheduleInterval)),
		zap.Bool("added", added),
	)
	return nil
}
