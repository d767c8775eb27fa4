package internal

import (
	"context"
	"testing"

	"github.com/lychee-technology/swatches"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_MigrateLegacyColors(t *testing.T) {
	p := newPipeline(nil)
	ctx := context.Background()
	fields, scheduler := newTestFields(p, nil)

	require.NoError(t, p.store.SetTermMeta(ctx, p.red.ID, swatches.LegacyColorTermMetaKey, "black"))
	require.NoError(t, p.store.SetTermMeta(ctx, p.blue.ID, swatches.LegacyColorTermMetaKey, "white"))
	// green has no legacy value and is skipped.
	require.NoError(t, p.store.SetTermMeta(ctx, p.small.ID, swatches.LegacyColorTermMetaKey, "red"))

	res, err := NewMigrator(p.store, p.store, fields, nil).MigrateLegacyColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationResult{Migrated: 2, Skipped: 1}, res)

	value, _, err := p.store.GetTermMeta(ctx, p.red.ID, "color")
	require.NoError(t, err)
	assert.Equal(t, "black", value)
	value, _, err = p.store.GetTermMeta(ctx, p.green.ID, "color")
	require.NoError(t, err)
	assert.Equal(t, "green", value, "skipped terms keep their color")

	_, ok, err := p.store.GetTermMeta(ctx, p.small.ID, "color")
	require.NoError(t, err)
	assert.False(t, ok, "select taxonomies are not migrated")

	assert.Len(t, scheduler.items, 2)
}

func TestMigrator_ReadFailure(t *testing.T) {
	p := newPipeline(nil)
	fields, _ := newTestFields(p, nil)

	_, err := NewMigrator(p.store, failingTermMeta{}, fields, nil).MigrateLegacyColors(context.Background())
	require.Error(t, err)
	assert.True(t, swatches.IsStorageError(err))
}
