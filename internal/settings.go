package internal

import (
	"context"
	"strconv"
	"time"

	"github.com/lychee-technology/swatches"
)

// SettingsStore reads and writes the administrator settings kept in the option table.
type SettingsStore struct {
	options swatches.OptionStore
}

func NewSettingsStore(options swatches.OptionStore) *SettingsStore {
	return &SettingsStore{options: options}
}

// Load returns the stored settings, falling back to defaults for missing or unknown values.
func (s *SettingsStore) Load(ctx context.Context) (swatches.Settings, error) {
	out := swatches.DefaultSettings()

	pos, ok, err := s.options.GetOption(ctx, swatches.OptionPositionInList)
	if err != nil {
		return out, swatches.NewStorageError("read settings", err)
	}
	if ok && validPosition(swatches.DisplayPosition(pos)) {
		out.Position = swatches.DisplayPosition(pos)
	}

	if v, ok, err := s.options.GetOption(ctx, swatches.OptionDisableCache); err != nil {
		return out, swatches.NewStorageError("read settings", err)
	} else if ok {
		out.DisableCache = v == "yes"
	}

	if v, ok, err := s.options.GetOption(ctx, swatches.OptionDeleteOnUninstall); err != nil {
		return out, swatches.NewStorageError("read settings", err)
	} else if ok {
		out.DeleteOnUninstall = v == "yes"
	}

	if v, ok, err := s.options.GetOption(ctx, swatches.OptionScheduleEnabled); err != nil {
		return out, swatches.NewStorageError("read settings", err)
	} else if ok {
		out.ScheduleEnabled = v == "1"
	}

	if v, ok, err := s.options.GetOption(ctx, swatches.OptionScheduleInterval); err != nil {
		return out, swatches.NewStorageError("read settings", err)
	} else if ok && swatches.ScheduleInterval(v).Duration() > 0 {
		out.ScheduleInterval = swatches.ScheduleInterval(v)
	}
	return out, nil
}

// Save validates and writes every setting.
func (s *SettingsStore) Save(ctx context.Context, in swatches.Settings) error {
	if !validPosition(in.Position) {
		return swatches.NewValidationError("position_in_list", "unknown display position").WithDetail("value", string(in.Position))
	}
	if in.ScheduleInterval.Duration() == 0 {
		return swatches.NewValidationError("schedule_interval", "unknown schedule interval").WithDetail("value", string(in.ScheduleInterval))
	}
	values := []struct{ name, value string }{
		{swatches.OptionPositionInList, string(in.Position)},
		{swatches.OptionDisableCache, yesNo(in.DisableCache)},
		{swatches.OptionDeleteOnUninstall, yesNo(in.DeleteOnUninstall)},
		{swatches.OptionScheduleEnabled, boolFlag(in.ScheduleEnabled)},
		{swatches.OptionScheduleInterval, string(in.ScheduleInterval)},
	}
	for _, v := range values {
		if err := s.options.SetOption(ctx, v.name, v.value); err != nil {
			return swatches.NewStorageError("write settings", err).WithField(v.name)
		}
	}
	return nil
}

// LastScheduledRun returns when the recurring schedule last enqueued a pass.
func (s *SettingsStore) LastScheduledRun(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := s.options.GetOption(ctx, swatches.OptionScheduleLastRunAt)
	if err != nil {
		return time.Time{}, false, swatches.NewStorageError("read schedule state", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.Unix(sec, 0), true, nil
}

// MarkScheduledRun stores t as the last recurring enqueue time.
func (s *SettingsStore) MarkScheduledRun(ctx context.Context, t time.Time) error {
	if err := s.options.SetOption(ctx, swatches.OptionScheduleLastRunAt, strconv.FormatInt(t.Unix(), 10)); err != nil {
		return swatches.NewStorageError("write schedule state", err)
	}
	return nil
}

func validPosition(p swatches.DisplayPosition) bool {
	switch p {
	case swatches.PositionBeforeCart, swatches.PositionAfterCart, swatches.PositionBeforePrice, swatches.PositionAfterPrice:
		return true
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
