package internal

import (
	"context"
	"time"

	"github.com/lychee-technology/swatches"
)

// RunLock is the process-wide regeneration flag stored in the option table.
// The flag holds the run id of its owner. A holder refreshes it while working; a flag not
// refreshed within staleAfter is treated as abandoned and may be taken over.
type RunLock struct {
	options    swatches.OptionStore
	staleAfter time.Duration
	nowFunc    func() time.Time
}

func NewRunLock(options swatches.OptionStore, staleAfter time.Duration) *RunLock {
	return &RunLock{options: options, staleAfter: staleAfter, nowFunc: time.Now}
}

func (l *RunLock) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	l.nowFunc = now
}

// Acquire takes the lock for owner unless a fresh holder exists.
func (l *RunLock) Acquire(ctx context.Context, owner string) (bool, error) {
	now := l.nowFunc()
	ok, err := l.options.TryAcquire(ctx, swatches.OptionRunning, owner, now, now.Add(-l.staleAfter))
	if err != nil {
		return false, swatches.NewStorageError("acquire run lock", err)
	}
	return ok, nil
}

// Touch refreshes the lock timestamp. It returns false once owner no longer holds the lock.
func (l *RunLock) Touch(ctx context.Context, owner string) (bool, error) {
	ok, err := l.options.TouchOwned(ctx, swatches.OptionRunning, owner, l.nowFunc())
	if err != nil {
		return false, swatches.NewStorageError("refresh run lock", err)
	}
	return ok, nil
}

// Release clears the flag if owner still holds it.
func (l *RunLock) Release(ctx context.Context, owner string) (bool, error) {
	ok, err := l.options.DeleteOwned(ctx, swatches.OptionRunning, owner)
	if err != nil {
		return false, swatches.NewStorageError("release run lock", err)
	}
	return ok, nil
}

// Clear removes the flag whoever holds it.
func (l *RunLock) Clear(ctx context.Context) error {
	if err := l.options.DeleteOption(ctx, swatches.OptionRunning); err != nil {
		return swatches.NewStorageError("clear run lock", err)
	}
	return nil
}

// Held reports whether the flag is set, stale or not.
func (l *RunLock) Held(ctx context.Context) (bool, error) {
	v, ok, err := l.options.GetOption(ctx, swatches.OptionRunning)
	if err != nil {
		return false, swatches.NewStorageError("read run lock", err)
	}
	return ok && flagSet(v), nil
}

// Stale reports whether the flag is set and was not refreshed within the staleness window.
func (l *RunLock) Stale(ctx context.Context) (bool, error) {
	held, err := l.Held(ctx)
	if err != nil || !held {
		return false, err
	}
	since, ok, err := l.options.OptionUpdatedAt(ctx, swatches.OptionRunning)
	if err != nil {
		return false, swatches.NewStorageError("read run lock timestamp", err)
	}
	if !ok {
		return true, nil
	}
	return since.Before(l.nowFunc().Add(-l.staleAfter)), nil
}

func flagSet(v string) bool {
	return v != "" && v != "0"
}
