package internal

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// TelemetryEmitter receives a named measurement with labels.
type TelemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

// Telemetry is a small hook layer for regeneration metrics. A nil *Telemetry is a no-op.
type Telemetry struct {
	mu   sync.Mutex
	emit TelemetryEmitter
}

// NewTelemetry creates telemetry backed by fn.
func NewTelemetry(fn TelemetryEmitter) *Telemetry {
	return &Telemetry{emit: fn}
}

// NewLogTelemetry writes every measurement as a debug log entry.
func NewLogTelemetry(logger *zap.Logger) *Telemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewTelemetry(func(ctx context.Context, name string, labels map[string]string, value any) {
		logger.Debug("telemetry", zap.String("metric", name), zap.Any("labels", labels), zap.Any("value", value))
	})
}

// SetEmitter swaps the emitter, e.g. for a test meter.
func (t *Telemetry) SetEmitter(fn TelemetryEmitter) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit = fn
}

func (t *Telemetry) send(ctx context.Context, name string, labels map[string]string, value any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	fn := t.emit
	t.mu.Unlock()
	if fn == nil {
		return
	}
	fn(ctx, name, labels, value)
}

// EmitRunDuration records the wall time of a pass in milliseconds.
// name: "swatch_run_duration_ms" with label {"scope": "all"|"attribute"}
func (t *Telemetry) EmitRunDuration(ctx context.Context, scope string, ms int64) {
	t.send(ctx, "swatch_run_duration_ms", map[string]string{"scope": scope}, ms)
}

// EmitProductsProcessed records how many products a pass touched.
func (t *Telemetry) EmitProductsProcessed(ctx context.Context, scope string, n int64) {
	t.send(ctx, "swatch_products_processed", map[string]string{"scope": scope}, n)
}

// EmitProductFailures records how many products failed during a pass.
func (t *Telemetry) EmitProductFailures(ctx context.Context, scope string, n int64) {
	t.send(ctx, "swatch_product_failures", map[string]string{"scope": scope}, n)
}

// EmitRunSkipped records a pass that did not start because the run-lock was held.
func (t *Telemetry) EmitRunSkipped(ctx context.Context, scope string) {
	t.send(ctx, "swatch_run_skipped", map[string]string{"scope": scope}, int64(1))
}
