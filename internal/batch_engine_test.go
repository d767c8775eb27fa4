package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lychee-technology/swatches"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatchConfig() swatches.BatchConfig {
	return swatches.DefaultConfig().Batch
}

type metricRecorder struct {
	mu     sync.Mutex
	values map[string]any
}

func (m *metricRecorder) emit(_ context.Context, name string, labels map[string]string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.values[name+"/"+labels["scope"]] = value
}

func (m *metricRecorder) get(key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

func newEngine(p *pipeline, options swatches.OptionStore) *BatchEngine {
	if options == nil {
		options = p.store
	}
	lock := NewRunLock(options, 6*time.Hour)
	return NewBatchEngine(p.store, p.builder, p.cache, options, lock, testBatchConfig(), nil, nil)
}

func TestBatchEngine_RunAll(t *testing.T) {
	p := newPipeline(nil)
	engine := newEngine(p, nil)
	ctx := context.Background()

	started, err := engine.RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, started)

	progress, err := engine.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, swatches.Progress{Count: 2, Max: 2, Running: false, Status: testBatchConfig().DoneStatus}, progress)

	_, ok, err := p.cache.Read(ctx, teeID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = p.cache.Read(ctx, mugID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchEngine_RunAllSkipsWhileLocked(t *testing.T) {
	p := newPipeline(nil)
	engine := newEngine(p, nil)
	ctx := context.Background()

	now := time.Now()
	acquired, err := p.store.TryAcquire(ctx, swatches.OptionRunning, "other-run", now, now.Add(-6*time.Hour))
	require.NoError(t, err)
	require.True(t, acquired)

	started, err := engine.RunAll(ctx)
	require.NoError(t, err)
	assert.False(t, started)

	_, ok, err := p.store.GetOption(ctx, swatches.OptionStatus)
	require.NoError(t, err)
	assert.False(t, ok, "a skipped pass leaves the run state alone")
	_, ok, err = p.cache.Read(ctx, teeID)
	require.NoError(t, err)
	assert.False(t, ok)

	held, err := engine.lock.Held(ctx)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestBatchEngine_StaleLockIsTakenOver(t *testing.T) {
	p := newPipeline(nil)
	engine := newEngine(p, nil)
	ctx := context.Background()

	abandoned := time.Now().Add(-7 * time.Hour)
	_, err := p.store.TryAcquire(ctx, swatches.OptionRunning, "crashed-run", abandoned, abandoned.Add(-time.Hour))
	require.NoError(t, err)

	stale, err := engine.lock.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale)

	started, err := engine.RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, started)

	held, err := engine.lock.Held(ctx)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestBatchEngine_StatusIsWrittenBeforeRelease(t *testing.T) {
	p := newPipeline(nil)
	options := &recordingOptions{MemoryStore: p.store}
	engine := newEngine(p, options)

	_, err := engine.RunAll(context.Background())
	require.NoError(t, err)

	running := options.indexOf("set " + swatches.OptionStatus + "=" + testBatchConfig().RunningStatus)
	done := options.indexOf("set " + swatches.OptionStatus + "=" + testBatchConfig().DoneStatus)
	released := options.indexOf("delete " + swatches.OptionRunning)
	require.NotEqual(t, -1, running)
	require.NotEqual(t, -1, done)
	require.NotEqual(t, -1, released)
	assert.Less(t, running, done)
	assert.Less(t, done, released)
}

func TestBatchEngine_FailedProductsAreSkipped(t *testing.T) {
	p := newPipeline(nil)
	persister := &fakePersister{fail: map[swatches.ProductID]bool{teeID: true}}
	metrics := &metricRecorder{}
	engine := NewBatchEngine(p.store, persister, p.cache, p.store, NewRunLock(p.store, time.Hour), testBatchConfig(), NewTelemetry(metrics.emit), nil)
	ctx := context.Background()

	started, err := engine.RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []swatches.ProductID{mugID}, persister.persisted)

	progress, err := engine.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Count)
	assert.Equal(t, int64(1), metrics.get("swatch_product_failures/all"))
	assert.Equal(t, int64(2), metrics.get("swatch_products_processed/all"))
}

func TestBatchEngine_CancelledPassReleasesLock(t *testing.T) {
	p := newPipeline(nil)
	ctx, cancel := context.WithCancel(context.Background())
	persister := &fakePersister{onPersist: func(swatches.ProductID) { cancel() }}
	engine := NewBatchEngine(p.store, persister, p.cache, p.store, NewRunLock(p.store, time.Hour), testBatchConfig(), nil, nil)

	started, err := engine.RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Len(t, persister.persisted, 1)

	progress, err := engine.Progress(context.Background())
	require.NoError(t, err)
	assert.False(t, progress.Running)
	assert.Equal(t, 1, progress.Count)
	assert.Equal(t, 2, progress.Max)
}

func TestBatchEngine_RunForAttribute(t *testing.T) {
	p := newPipeline(nil)
	persister := &fakePersister{}
	metrics := &metricRecorder{}
	engine := NewBatchEngine(p.store, persister, p.cache, p.store, NewRunLock(p.store, time.Hour), testBatchConfig(), NewTelemetry(metrics.emit), nil)
	ctx := context.Background()

	started, err := engine.RunForAttribute(ctx, "pa_color")
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []swatches.ProductID{teeID}, persister.persisted)
	assert.Equal(t, int64(1), metrics.get("swatch_products_processed/attribute"))

	progress, err := engine.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, swatches.Progress{}, progress, "attribute passes leave the counters alone")
}

func TestBatchEngine_RunForAttributeSharesLock(t *testing.T) {
	p := newPipeline(nil)
	persister := &fakePersister{}
	metrics := &metricRecorder{}
	engine := NewBatchEngine(p.store, persister, p.cache, p.store, NewRunLock(p.store, time.Hour), testBatchConfig(), NewTelemetry(metrics.emit), nil)
	ctx := context.Background()

	acquired, err := engine.lock.Acquire(ctx, "other-run")
	require.NoError(t, err)
	require.True(t, acquired)

	started, err := engine.RunForAttribute(ctx, "pa_color")
	require.NoError(t, err)
	assert.False(t, started)
	assert.Empty(t, persister.persisted)
	assert.Equal(t, int64(1), metrics.get("swatch_run_skipped/attribute"))

	_, err = engine.RunForAttribute(ctx, "")
	assert.True(t, swatches.IsValidationError(err))
}

func TestBatchEngine_DeleteAll(t *testing.T) {
	p := newPipeline(nil)
	engine := newEngine(p, nil)
	ctx := context.Background()
	require.NoError(t, p.cache.Write(ctx, teeID, "<ul></ul>"))
	require.NoError(t, p.cache.Write(ctx, 300, "<ul></ul>"))

	deleted, err := engine.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	ids, err := p.cache.ProductIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBatchEngine_ProgressToleratesGarbage(t *testing.T) {
	p := newPipeline(nil)
	engine := newEngine(p, nil)
	ctx := context.Background()
	require.NoError(t, p.store.SetOption(ctx, swatches.OptionImportCount, "many"))
	require.NoError(t, p.store.SetOption(ctx, swatches.OptionImportMax, "-4"))
	require.NoError(t, p.store.SetOption(ctx, swatches.OptionRunning, "0"))

	progress, err := engine.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Count)
	assert.Equal(t, 0, progress.Max)
	assert.False(t, progress.Running)
}

func TestBatchEngine_ForceUnlock(t *testing.T) {
	p := newPipeline(nil)
	engine := newEngine(p, nil)
	ctx := context.Background()

	_, err := engine.lock.Acquire(ctx, "stuck-run")
	require.NoError(t, err)
	require.NoError(t, engine.ForceUnlock(ctx))

	progress, err := engine.Progress(ctx)
	require.NoError(t, err)
	assert.False(t, progress.Running)
}

func TestRunLock_StaleWindow(t *testing.T) {
	store := NewMemoryStore()
	lock := NewRunLock(store, time.Hour)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	lock.withClock(fixedClock(start))

	ok, err := lock.Acquire(ctx, "run-a")
	require.NoError(t, err)
	assert.True(t, ok)

	lock.withClock(fixedClock(start.Add(30 * time.Minute)))
	ok, err = lock.Acquire(ctx, "run-b")
	require.NoError(t, err)
	assert.False(t, ok)
	stale, err := lock.Stale(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	lock.withClock(fixedClock(start.Add(2 * time.Hour)))
	stale, err = lock.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale)
	ok, err = lock.Acquire(ctx, "run-b")
	require.NoError(t, err)
	assert.True(t, ok)

	released, err := lock.Release(ctx, "run-b")
	require.NoError(t, err)
	assert.True(t, released)
	held, err := lock.Held(ctx)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRunLock_TouchKeepsLockFresh(t *testing.T) {
	store := NewMemoryStore()
	lock := NewRunLock(store, time.Hour)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	lock.withClock(fixedClock(start))

	ok, err := lock.Acquire(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)

	lock.withClock(fixedClock(start.Add(50 * time.Minute)))
	owned, err := lock.Touch(ctx, "run-a")
	require.NoError(t, err)
	assert.True(t, owned)

	lock.withClock(fixedClock(start.Add(90 * time.Minute)))
	ok, err = lock.Acquire(ctx, "run-b")
	require.NoError(t, err)
	assert.False(t, ok, "a refreshed lock is not stale")

	owned, err = lock.Touch(ctx, "run-b")
	require.NoError(t, err)
	assert.False(t, owned, "only the owner can refresh")
}

func TestRunLock_ReleaseOnlyByOwner(t *testing.T) {
	store := NewMemoryStore()
	lock := NewRunLock(store, time.Hour)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	lock.withClock(fixedClock(start))

	_, err := lock.Acquire(ctx, "run-a")
	require.NoError(t, err)
	lock.withClock(fixedClock(start.Add(2 * time.Hour)))
	ok, err := lock.Acquire(ctx, "run-b")
	require.NoError(t, err)
	require.True(t, ok)

	released, err := lock.Release(ctx, "run-a")
	require.NoError(t, err)
	assert.False(t, released)

	owner, _, err := store.GetOption(ctx, swatches.OptionRunning)
	require.NoError(t, err)
	assert.Equal(t, "run-b", owner, "a former owner cannot release the new holder's lock")
}

// ---------------------------------------------------------------------------
// Overlapping passes
// ---------------------------------------------------------------------------

func TestBatchEngine_NestedRunAllIsRejectedWhileInFlight(t *testing.T) {
	p := newPipeline(nil)
	var engine *BatchEngine
	var nested []bool
	persister := &fakePersister{}
	persister.onPersist = func(swatches.ProductID) {
		started, err := engine.RunAll(context.Background())
		require.NoError(t, err)
		nested = append(nested, started)
	}
	engine = NewBatchEngine(p.store, persister, p.cache, p.store, NewRunLock(p.store, time.Hour), testBatchConfig(), nil, nil)
	ctx := context.Background()

	started, err := engine.RunAll(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []bool{false, false}, nested)
	assert.Len(t, persister.persisted, 2, "only the outer pass persisted")

	progress, err := engine.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, swatches.Progress{Count: 2, Max: 2, Running: false, Status: testBatchConfig().DoneStatus}, progress)
}

func TestBatchEngine_LongPassRefreshesLock(t *testing.T) {
	p := newPipeline(nil)
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	lock := NewRunLock(p.store, 6*time.Hour)
	lock.withClock(fixedClock(start))

	var engine *BatchEngine
	var nested []bool
	calls := 0
	persister := &fakePersister{}
	persister.onPersist = func(swatches.ProductID) {
		calls++
		switch calls {
		case 1:
			lock.withClock(fixedClock(start.Add(5 * time.Hour)))
		case 2:
			// Seven hours after the pass started but two after its last refresh.
			lock.withClock(fixedClock(start.Add(7 * time.Hour)))
			started, err := engine.RunAll(context.Background())
			require.NoError(t, err)
			nested = append(nested, started)
		}
	}
	engine = NewBatchEngine(p.store, persister, p.cache, p.store, lock, testBatchConfig(), nil, nil)

	started, err := engine.RunAll(context.Background())
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []bool{false}, nested)
	assert.Len(t, persister.persisted, 2)

	held, err := lock.Held(context.Background())
	require.NoError(t, err)
	assert.False(t, held)
}

func TestBatchEngine_TakenOverPassStopsWithoutTouchingState(t *testing.T) {
	p := newPipeline(nil)
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	lock := NewRunLock(p.store, 6*time.Hour)
	lock.withClock(fixedClock(start))

	var engine *BatchEngine
	var nestedErr error
	nestedStarted := false
	calls := 0
	persister := &fakePersister{}
	persister.onPersist = func(swatches.ProductID) {
		calls++
		if calls == 1 {
			// A single product outlives the staleness window, so another pass may take over.
			lock.withClock(fixedClock(start.Add(7 * time.Hour)))
			nestedStarted, nestedErr = engine.RunAll(context.Background())
		}
	}
	engine = NewBatchEngine(p.store, persister, p.cache, p.store, lock, testBatchConfig(), nil, nil)

	started, err := engine.RunAll(context.Background())
	assert.True(t, started)
	require.Error(t, err)
	assert.True(t, swatches.IsRunLockLostError(err))

	require.NoError(t, nestedErr)
	assert.True(t, nestedStarted)
	assert.Len(t, persister.persisted, 3, "the outer pass stopped after its first product")

	progress, err := engine.Progress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, swatches.Progress{Count: 2, Max: 2, Running: false, Status: testBatchConfig().DoneStatus}, progress,
		"the stopped pass leaves the run state of the pass that took over")
}

// ---------------------------------------------------------------------------
// Run state on early exits
// ---------------------------------------------------------------------------

type failingListCatalog struct{ swatches.Catalog }

func (failingListCatalog) ListProductIDs(context.Context) ([]swatches.ProductID, error) {
	return nil, errBoom
}

func TestBatchEngine_ListFailureLeavesRunStateAlone(t *testing.T) {
	p := newPipeline(nil)
	ctx := context.Background()
	require.NoError(t, p.store.SetOption(ctx, swatches.OptionImportCount, "5"))
	require.NoError(t, p.store.SetOption(ctx, swatches.OptionImportMax, "5"))
	require.NoError(t, p.store.SetOption(ctx, swatches.OptionStatus, testBatchConfig().DoneStatus))

	engine := NewBatchEngine(failingListCatalog{p.store}, p.builder, p.cache, p.store, NewRunLock(p.store, time.Hour), testBatchConfig(), nil, nil)

	started, err := engine.RunAll(ctx)
	assert.True(t, started)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	progress, err := engine.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, swatches.Progress{Count: 5, Max: 5, Running: false, Status: testBatchConfig().DoneStatus}, progress)
}

func TestBatchEngine_CancelledPassWritesInterruptedStatus(t *testing.T) {
	p := newPipeline(nil)
	ctx, cancel := context.WithCancel(context.Background())
	persister := &fakePersister{onPersist: func(swatches.ProductID) { cancel() }}
	engine := NewBatchEngine(p.store, persister, p.cache, p.store, NewRunLock(p.store, time.Hour), testBatchConfig(), nil, nil)

	_, err := engine.RunAll(ctx)
	require.NoError(t, err)

	progress, err := engine.Progress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testBatchConfig().InterruptedStatus, progress.Status)
	assert.False(t, progress.Running)
}

func TestBatchEngine_InterruptedStatusDefaultsToDone(t *testing.T) {
	p := newPipeline(nil)
	cfg := testBatchConfig()
	cfg.InterruptedStatus = ""
	engine := NewBatchEngine(p.store, p.builder, p.cache, p.store, NewRunLock(p.store, time.Hour), cfg, nil, nil)
	assert.Equal(t, cfg.DoneStatus, engine.interruptedStatus)
}
