package swatches

import (
	"context"
	"time"
)

// Product meta and option keys shared by every storage backend.
const (
	CacheKey = "lw_product_swatches"

	OptionImportCount = "lsImportCount"
	OptionImportMax   = "lsImportMax"
	OptionRunning     = "lsRunning"
	OptionStatus      = "lsStatus"

	settingPrefix            = "wc_lw_product_swatches_"
	OptionPositionInList     = settingPrefix + "position_in_list"
	OptionDisableCache       = settingPrefix + "disable_cache"
	OptionDeleteOnUninstall  = settingPrefix + "delete_on_uninstall"
	OptionScheduleEnabled    = "productSwatchesEnableRegenerationSchedule"
	OptionScheduleInterval   = "productSwatchesRegenerationScheduleInterval"
	OptionScheduleLastRunAt  = "productSwatchesRegenerationLastRunAt"
	LegacyColorTermMetaKey   = "product_attribute_color"
	FallbackAttributeTypeKey = "select"
)

// Catalog is the read surface of the host catalog.
// Lookups of missing entities return nil and no error.
type Catalog interface {
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	ListVariations(ctx context.Context, productID ProductID) ([]Variation, error)
	// ProductTermOrder returns the term ids of a taxonomy assigned to a product, in the product's configured order.
	ProductTermOrder(ctx context.Context, productID ProductID, taxonomy string) ([]TermID, error)
	GetTermBySlug(ctx context.Context, taxonomy, slug string) (*Term, error)
	ListTerms(ctx context.Context, taxonomy string) ([]Term, error)
	GetTaxonomy(ctx context.Context, name string) (*Taxonomy, error)
	ListTaxonomies(ctx context.Context) ([]Taxonomy, error)
	ListProductIDs(ctx context.Context) ([]ProductID, error)
	ListProductIDsByTaxonomy(ctx context.Context, taxonomy string) ([]ProductID, error)
	// ResetAttributeType replaces the attribute type of every taxonomy using typeKey.
	ResetAttributeType(ctx context.Context, typeKey, replacement string) (int, error)
}

// ProductMetaStore is per-product key/value storage.
type ProductMetaStore interface {
	GetProductMeta(ctx context.Context, id ProductID, key string) (string, bool, error)
	SetProductMeta(ctx context.Context, id ProductID, key, value string) error
	DeleteProductMeta(ctx context.Context, id ProductID, key string) error
	ListProductIDsWithMeta(ctx context.Context, key string) ([]ProductID, error)
}

// OptionStore is the global key/value option storage.
type OptionStore interface {
	GetOption(ctx context.Context, name string) (string, bool, error)
	SetOption(ctx context.Context, name, value string) error
	DeleteOption(ctx context.Context, name string) error
	// TryAcquire stores owner under name unless another holder wrote it after staleBefore.
	// An empty or "0" value counts as free. It reports whether the caller now owns the flag.
	TryAcquire(ctx context.Context, name, owner string, now, staleBefore time.Time) (bool, error)
	// TouchOwned moves the update time of name to now if it still holds owner.
	TouchOwned(ctx context.Context, name, owner string, now time.Time) (bool, error)
	// DeleteOwned removes name only if it still holds owner.
	DeleteOwned(ctx context.Context, name, owner string) (bool, error)
	// OptionUpdatedAt returns when the option was last written.
	OptionUpdatedAt(ctx context.Context, name string) (time.Time, bool, error)
}

// TermMetaStore is per-term key/value storage.
type TermMetaStore interface {
	TermMetaReader
	SetTermMeta(ctx context.Context, termID TermID, key, value string) error
	DeleteTermMeta(ctx context.Context, termID TermID, key string) error
	DeleteTermMetaByKey(ctx context.Context, key string) (int, error)
}

// WorkQueue persists typed work items until a dispatcher runs them.
type WorkQueue interface {
	// Enqueue adds the item unless identical work is already pending. It reports whether the item was added.
	Enqueue(ctx context.Context, item WorkItem) (bool, error)
	// Due returns pending items with RunAt at or before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]WorkItem, error)
	Complete(ctx context.Context, item WorkItem) error
	// Reschedule moves an item to a later time and counts the attempt.
	Reschedule(ctx context.Context, item WorkItem, runAt time.Time) error
	Pending(ctx context.Context) ([]WorkItem, error)
	Clear(ctx context.Context) error
}

// RegenerationService is the surface used by transports and schedulers.
type RegenerationService interface {
	RunAll(ctx context.Context) (bool, error)
	RunForAttribute(ctx context.Context, taxonomy string) (bool, error)
	DeleteAll(ctx context.Context) (int, error)
	Progress(ctx context.Context) (Progress, error)
}
