package internal

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

type productPersister interface {
	Persist(ctx context.Context, id swatches.ProductID) error
	Delete(ctx context.Context, id swatches.ProductID) error
}

// BatchEngine runs regeneration passes over many products.
type BatchEngine struct {
	catalog           swatches.Catalog
	builder           productPersister
	cache             *SwatchCache
	options           swatches.OptionStore
	lock              *RunLock
	telemetry         *Telemetry
	logger            *zap.Logger
	runningStatus     string
	doneStatus        string
	interruptedStatus string
	nowFunc           func() time.Time
}

var _ swatches.RegenerationService = (*BatchEngine)(nil)

// NewBatchEngine wires an engine. Status labels come from swatches.BatchConfig; an unset interrupted
// label falls back to the done label.
func NewBatchEngine(
	catalog swatches.Catalog,
	builder productPersister,
	cache *SwatchCache,
	options swatches.OptionStore,
	lock *RunLock,
	cfg swatches.BatchConfig,
	telemetry *Telemetry,
	logger *zap.Logger,
) *BatchEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InterruptedStatus == "" {
		cfg.InterruptedStatus = cfg.DoneStatus
	}
	return &BatchEngine{
		catalog:           catalog,
		builder:           builder,
		cache:             cache,
		options:           options,
		lock:              lock,
		telemetry:         telemetry,
		logger:            logger,
		runningStatus:     cfg.RunningStatus,
		doneStatus:        cfg.DoneStatus,
		interruptedStatus: cfg.InterruptedStatus,
		nowFunc:           time.Now,
	}
}

// RunAll regenerates every product. It returns false without touching any state when a pass is already running.
// The lock is refreshed after every product; a pass that finds it taken over stops without writing further state.
func (e *BatchEngine) RunAll(ctx context.Context) (bool, error) {
	runID := uuid.Must(uuid.NewV7()).String()
	acquired, err := e.lock.Acquire(ctx, runID)
	if err != nil {
		return false, err
	}
	if !acquired {
		e.logger.Info("regeneration already running, skipping")
		e.telemetry.EmitRunSkipped(ctx, "all")
		return false, nil
	}

	logger := e.logger.With(zap.String("run_id", runID))
	started := e.nowFunc()

	// The lock must be released even if the context is cancelled mid-pass.
	finishCtx := context.WithoutCancel(ctx)
	owned := true
	defer func() {
		if owned {
			e.release(finishCtx, logger, runID)
		}
	}()

	ids, err := e.catalog.ListProductIDs(ctx)
	if err != nil {
		return true, swatches.NewCatalogError("list products", err)
	}
	e.setOption(finishCtx, logger, swatches.OptionStatus, e.runningStatus)
	e.setOption(finishCtx, logger, swatches.OptionImportMax, strconv.Itoa(len(ids)))
	e.setOption(finishCtx, logger, swatches.OptionImportCount, "0")
	logger.Info("regeneration started", zap.Int("products", len(ids)))

	count, failures := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			logger.Warn("regeneration interrupted", zap.Int("processed", count), zap.Error(ctx.Err()))
			break
		}
		if err := e.builder.Persist(ctx, id); err != nil {
			failures++
			logger.Warn("product swatch update failed, skipping", zap.Int64("product_id", int64(id)), zap.Error(err))
		}
		count++
		if owned = e.touch(finishCtx, logger, runID); !owned {
			logger.Error("run lock taken over, stopping pass", zap.Int("processed", count))
			return true, swatches.NewRunLockLostError(runID)
		}
		e.setOption(finishCtx, logger, swatches.OptionImportCount, strconv.Itoa(count))
	}

	// Status first so pollers never see running=false next to the in-progress label.
	status := e.doneStatus
	if count < len(ids) {
		status = e.interruptedStatus
	}
	e.setOption(finishCtx, logger, swatches.OptionStatus, status)
	owned = false
	e.release(finishCtx, logger, runID)

	elapsed := e.nowFunc().Sub(started)
	e.telemetry.EmitRunDuration(ctx, "all", elapsed.Milliseconds())
	e.telemetry.EmitProductsProcessed(ctx, "all", int64(count))
	e.telemetry.EmitProductFailures(ctx, "all", int64(failures))
	logger.Info("regeneration finished",
		zap.Int("processed", count),
		zap.Int("failed", failures),
		zap.Duration("elapsed", elapsed),
	)
	return true, nil
}

// RunForAttribute regenerates the products carrying any term of taxonomy. It shares the run-lock with
// RunAll but leaves the progress counters alone.
func (e *BatchEngine) RunForAttribute(ctx context.Context, taxonomy string) (bool, error) {
	if taxonomy == "" {
		return false, swatches.NewValidationError("taxonomy", "taxonomy name is required")
	}
	runID := uuid.Must(uuid.NewV7()).String()
	acquired, err := e.lock.Acquire(ctx, runID)
	if err != nil {
		return false, err
	}
	if !acquired {
		e.logger.Info("regeneration already running, attribute pass deferred", zap.String("taxonomy", taxonomy))
		e.telemetry.EmitRunSkipped(ctx, "attribute")
		return false, nil
	}
	logger := e.logger.With(zap.String("run_id", runID), zap.String("taxonomy", taxonomy))
	finishCtx := context.WithoutCancel(ctx)
	owned := true
	defer func() {
		if owned {
			e.release(finishCtx, logger, runID)
		}
	}()

	started := e.nowFunc()
	ids, err := e.catalog.ListProductIDsByTaxonomy(ctx, taxonomy)
	if err != nil {
		return true, swatches.NewCatalogError("list products by taxonomy", err).WithDetail("taxonomy", taxonomy)
	}

	count, failures := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := e.builder.Persist(ctx, id); err != nil {
			failures++
			logger.Warn("product swatch update failed, skipping", zap.Int64("product_id", int64(id)), zap.Error(err))
		}
		count++
		if owned = e.touch(finishCtx, logger, runID); !owned {
			logger.Error("run lock taken over, stopping attribute pass", zap.Int("processed", count))
			return true, swatches.NewRunLockLostError(runID)
		}
	}

	e.telemetry.EmitRunDuration(ctx, "attribute", e.nowFunc().Sub(started).Milliseconds())
	e.telemetry.EmitProductsProcessed(ctx, "attribute", int64(count))
	e.telemetry.EmitProductFailures(ctx, "attribute", int64(failures))
	logger.Info("attribute regeneration finished", zap.Int("processed", count), zap.Int("failed", failures))
	return true, nil
}

// DeleteAll removes the cache entry of every product that has one and returns how many were removed.
func (e *BatchEngine) DeleteAll(ctx context.Context) (int, error) {
	ids, err := e.cache.ProductIDs(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		if err := e.builder.Delete(ctx, id); err != nil {
			e.logger.Warn("delete product swatches failed", zap.Int64("product_id", int64(id)), zap.Error(err))
			continue
		}
		deleted++
	}
	e.logger.Info("product swatches deleted", zap.Int("deleted", deleted), zap.Int("found", len(ids)))
	return deleted, nil
}

// Progress reads the persisted run state.
func (e *BatchEngine) Progress(ctx context.Context) (swatches.Progress, error) {
	var p swatches.Progress
	var err error
	if p.Count, err = e.intOption(ctx, swatches.OptionImportCount); err != nil {
		return p, err
	}
	if p.Max, err = e.intOption(ctx, swatches.OptionImportMax); err != nil {
		return p, err
	}
	if p.Running, err = e.lock.Held(ctx); err != nil {
		return p, err
	}
	status, _, err := e.options.GetOption(ctx, swatches.OptionStatus)
	if err != nil {
		return p, swatches.NewStorageError("read status", err)
	}
	p.Status = status
	return p, nil
}

// ForceUnlock clears a stuck run-lock. A pass still holding it stops at its next product.
func (e *BatchEngine) ForceUnlock(ctx context.Context) error {
	e.logger.Warn("run lock cleared manually")
	return e.lock.Clear(ctx)
}

// touch refreshes the lock. A storage error keeps the pass going; only a confirmed takeover stops it.
func (e *BatchEngine) touch(ctx context.Context, logger *zap.Logger, runID string) bool {
	owned, err := e.lock.Touch(ctx, runID)
	if err != nil {
		logger.Warn("refresh run lock failed", zap.Error(err))
		return true
	}
	return owned
}

func (e *BatchEngine) release(ctx context.Context, logger *zap.Logger, runID string) {
	released, err := e.lock.Release(ctx, runID)
	if err != nil {
		logger.Error("release run lock failed", zap.Error(err))
		return
	}
	if !released {
		logger.Warn("run lock was no longer held by this pass")
	}
}

func (e *BatchEngine) setOption(ctx context.Context, logger *zap.Logger, name, value string) {
	if err := e.options.SetOption(ctx, name, value); err != nil {
		logger.Warn("update run state failed", zap.String("option", name), zap.Error(err))
	}
}

// intOption reads a non-negative counter; garbage reads as 0.
func (e *BatchEngine) intOption(ctx context.Context, name string) (int, error) {
	v, ok, err := e.options.GetOption(ctx, name)
	if err != nil {
		return 0, swatches.NewStorageError("read "+name, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}
