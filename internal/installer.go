package internal

import (
	"context"

	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

// pluginOptions are removed by RemoveAllData regardless of the delete flag.
var pluginOptions = []string{
	swatches.OptionImportMax,
	swatches.OptionImportCount,
	swatches.OptionRunning,
	swatches.OptionStatus,
	swatches.OptionDeleteOnUninstall,
	swatches.OptionDisableCache,
	swatches.OptionPositionInList,
}

// Installer initializes default settings and removes plugin data.
type Installer struct {
	catalog  swatches.Catalog
	registry *Registry
	termMeta swatches.TermMetaStore
	options  swatches.OptionStore
	engine   swatches.RegenerationService
	queue    swatches.WorkQueue
	logger   *zap.Logger
}

func NewInstaller(
	catalog swatches.Catalog,
	registry *Registry,
	termMeta swatches.TermMetaStore,
	options swatches.OptionStore,
	engine swatches.RegenerationService,
	queue swatches.WorkQueue,
	logger *zap.Logger,
) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{
		catalog:  catalog,
		registry: registry,
		termMeta: termMeta,
		options:  options,
		engine:   engine,
		queue:    queue,
		logger:   logger,
	}
}

// Initialize writes default settings that are not yet present.
func (i *Installer) Initialize(ctx context.Context) error {
	defaults := []struct{ name, value string }{
		{swatches.OptionDeleteOnUninstall, "yes"},
		{swatches.OptionDisableCache, "no"},
		{swatches.OptionScheduleEnabled, "1"},
		{swatches.OptionScheduleInterval, string(swatches.IntervalDaily)},
	}
	for _, d := range defaults {
		_, ok, err := i.options.GetOption(ctx, d.name)
		if err != nil {
			return swatches.NewStorageError("read option", err).WithField(d.name)
		}
		if ok {
			continue
		}
		if err := i.options.SetOption(ctx, d.name, d.value); err != nil {
			return swatches.NewStorageError("write option", err).WithField(d.name)
		}
	}
	return nil
}

// RemoveAllData deletes the collected swatch data when delete-on-uninstall is set or force is
// true, then removes the plugin options.
func (i *Installer) RemoveAllData(ctx context.Context, force bool) error {
	flag, _, err := i.options.GetOption(ctx, swatches.OptionDeleteOnUninstall)
	if err != nil {
		return swatches.NewStorageError("read option", err)
	}

	if force || flag == "yes" {
		if err := i.removeCollectedData(ctx); err != nil {
			return err
		}
	}

	if err := i.queue.Clear(ctx); err != nil {
		return swatches.NewQueueError("clear work queue", err)
	}
	for _, name := range pluginOptions {
		if err := i.options.DeleteOption(ctx, name); err != nil {
			return swatches.NewStorageError("delete option", err).WithField(name)
		}
	}
	i.logger.Info("plugin options removed", zap.Bool("data_removed", force || flag == "yes"))
	return nil
}

// Reset removes plugin data and writes the defaults again.
func (i *Installer) Reset(ctx context.Context, force bool) error {
	if err := i.RemoveAllData(ctx, force); err != nil {
		return err
	}
	return i.Initialize(ctx)
}

func (i *Installer) removeCollectedData(ctx context.Context) error {
	taxonomies, err := i.catalog.ListTaxonomies(ctx)
	if err != nil {
		return swatches.NewCatalogError("list taxonomies", err)
	}
	removedKeys := make(map[string]bool)
	for _, tax := range taxonomies {
		attrType, ok := i.registry.AttributeType(tax.AttributeType)
		if !ok {
			continue
		}
		for _, field := range attrType.Fields() {
			if removedKeys[field.Name] {
				continue
			}
			removedKeys[field.Name] = true
			n, err := i.termMeta.DeleteTermMetaByKey(ctx, field.Name)
			if err != nil {
				return swatches.NewStorageError("delete term values", err).WithField(field.Name)
			}
			i.logger.Info("term values removed", zap.String("key", field.Name), zap.Int("terms", n))
		}
	}

	deleted, err := i.engine.DeleteAll(ctx)
	if err != nil {
		return err
	}
	i.logger.Info("product swatches removed", zap.Int("products", deleted))

	for _, key := range i.registry.AttributeTypeKeys() {
		n, err := i.catalog.ResetAttributeType(ctx, key, swatches.FallbackAttributeTypeKey)
		if err != nil {
			return swatches.NewCatalogError("reset attribute type", err).WithDetail("type", key)
		}
		if n > 0 {
			i.logger.Info("attribute type reset", zap.String("type", key), zap.Int("taxonomies", n))
		}
	}
	return nil
}
