package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

// Dispatcher drains the work queue and runs each typed item against the regeneration service.
type Dispatcher struct {
	queue     swatches.WorkQueue
	service   swatches.RegenerationService
	scheduler *Scheduler
	cfg       swatches.ScheduleConfig
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewDispatcher wires a dispatcher. scheduler may be nil when no recurring schedule is wanted.
func NewDispatcher(queue swatches.WorkQueue, service swatches.RegenerationService, scheduler *Scheduler, cfg swatches.ScheduleConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:     queue,
		service:   service,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// ScheduleSingle enqueues item to run after the configured single-event delay.
func (d *Dispatcher) ScheduleSingle(ctx context.Context, item swatches.WorkItem) (bool, error) {
	item.RunAt = d.nowFunc().Add(d.cfg.SingleEventDelay)
	added, err := d.queue.Enqueue(ctx, item)
	if err != nil {
		return false, swatches.NewQueueError("enqueue work item", err)
	}
	return added, nil
}

// Dispatch runs one item. It reports false when the run-lock was busy and the item should be retried.
func (d *Dispatcher) Dispatch(ctx context.Context, item swatches.WorkItem) (bool, error) {
	switch item.Kind {
	case swatches.WorkRegenerateAll:
		return d.service.RunAll(ctx)
	case swatches.WorkRegenerateForAttribute:
		return d.service.RunForAttribute(ctx, item.Taxonomy)
	default:
		return true, fmt.Errorf("unknown work item kind %q", item.Kind)
	}
}

// RunPending runs every due item once and returns how many completed.
func (d *Dispatcher) RunPending(ctx context.Context) (int, error) {
	if d.scheduler != nil {
		if err := d.scheduler.EnqueueIfDue(ctx); err != nil {
			d.logger.Warn("recurring schedule check failed", zap.Error(err))
		}
	}

	items, err := d.queue.Due(ctx, d.nowFunc(), d.cfg.MaxItemsPerPoll)
	if err != nil {
		return 0, swatches.NewQueueError("load due work items", err)
	}

	done := 0
	for _, item := range items {
		logger := d.logger.With(zap.String("work_id", item.ID.String()), zap.String("kind", string(item.Kind)), zap.String("taxonomy", item.Taxonomy))
		finished, err := d.Dispatch(ctx, item)
		switch {
		case err != nil && item.Attempts+1 >= d.cfg.MaxAttempts:
			logger.Error("work item failed, dropping", zap.Int("attempts", item.Attempts+1), zap.Error(err))
			if cerr := d.queue.Complete(ctx, item); cerr != nil {
				return done, swatches.NewQueueError("complete work item", cerr)
			}
		case err != nil:
			logger.Warn("work item failed, retrying", zap.Error(err))
			if rerr := d.queue.Reschedule(ctx, item, d.nowFunc().Add(d.cfg.BusyRetryDelay)); rerr != nil {
				return done, swatches.NewQueueError("reschedule work item", rerr)
			}
		case !finished:
			// Busy deferrals never drop the item. A live pass refreshes the run-lock and an abandoned
			// one goes stale after batch.lockStaleAfter, so the wait ends either way.
			logger.Info("regeneration busy, work item deferred", zap.Int("attempts", item.Attempts+1))
			if rerr := d.queue.Reschedule(ctx, item, d.nowFunc().Add(d.cfg.BusyRetryDelay)); rerr != nil {
				return done, swatches.NewQueueError("reschedule work item", rerr)
			}
		default:
			if cerr := d.queue.Complete(ctx, item); cerr != nil {
				return done, swatches.NewQueueError("complete work item", cerr)
			}
			done++
		}
	}
	return done, nil
}

// Run polls the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	d.logger.Info("work dispatcher started", zap.Duration("poll_interval", d.cfg.PollInterval))
	for {
		if _, err := d.RunPending(ctx); err != nil {
			d.logger.Error("work dispatch failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			d.logger.Info("work dispatcher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
