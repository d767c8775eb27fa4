package swatches

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductID identifies a product or a variation in the host catalog.
type ProductID int64

// TermID identifies a taxonomy term.
type TermID int64

// ProductType is the catalog product kind. Only variable products carry swatches.
type ProductType string

const (
	ProductTypeSimple    ProductType = "simple"
	ProductTypeVariable  ProductType = "variable"
	ProductTypeVariation ProductType = "variation"
	ProductTypeGrouped   ProductType = "grouped"
	ProductTypeExternal  ProductType = "external"
)

// StockStatus values as reported by the catalog.
const (
	StockStatusInStock     = "instock"
	StockStatusOutOfStock  = "outofstock"
	StockStatusOnBackorder = "onbackorder"
)

// Product is the catalog view of a product.
type Product struct {
	ID       ProductID   `json:"id"`
	ParentID ProductID   `json:"parentId,omitempty"`
	Type     ProductType `json:"type"`
	Title    string      `json:"title"`
	Link     string      `json:"link"`
}

// IsVariable reports whether the product can have swatches.
func (p *Product) IsVariable() bool {
	return p != nil && p.Type == ProductTypeVariable
}

// Image is a variation thumbnail with its responsive source set.
type Image struct {
	URL    string `json:"url"`
	SrcSet string `json:"srcset"`
}

// VariationAttribute is one attribute selection on a variation, e.g. pa_color=red.
type VariationAttribute struct {
	Taxonomy string `json:"taxonomy"`
	Slug     string `json:"slug"`
}

// Variation is a purchasable child of a variable product.
type Variation struct {
	ID          ProductID            `json:"id"`
	ParentID    ProductID            `json:"parentId"`
	Purchasable bool                 `json:"purchasable"`
	StockStatus string               `json:"stockStatus"`
	OnSale      bool                 `json:"onSale"`
	Thumbnail   *Image               `json:"thumbnail,omitempty"`
	Attributes  []VariationAttribute `json:"attributes"`
}

// Taxonomy is a product attribute taxonomy and the attribute type configured for it.
type Taxonomy struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Label         string `json:"label"`
	SingularLabel string `json:"singularLabel"`
	AttributeType string `json:"attributeType"`
}

// Term is a single value inside a taxonomy.
type Term struct {
	ID       TermID `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
}

// FieldDef describes one per-term field of an attribute type.
type FieldDef struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Label       string            `json:"label"`
	Description string            `json:"desc,omitempty"`
	Default     string            `json:"value"`
	Size        string            `json:"size,omitempty"`
	Required    bool              `json:"required"`
	Placeholder string            `json:"placeholder,omitempty"`
	Dependency  map[string]string `json:"dependency,omitempty"`
	Type        string            `json:"type"`
}

// FormName is the submitted form field name of the field, e.g. lwps1.
func (f FieldDef) FormName() string {
	id := f.ID
	if id == "" {
		id = "0"
	}
	return "lwps" + id
}

// TermMetaReader is the read half of term metadata storage.
type TermMetaReader interface {
	GetTermMeta(ctx context.Context, termID TermID, key string) (string, bool, error)
}

// AttributeType is a swatch strategy such as color.
type AttributeType interface {
	// Key is the singular type name, e.g. "color".
	Key() string
	// PluralKey is used for CSS scoping, e.g. "colors".
	PluralKey() string
	Label() string
	Fields() []FieldDef
	// Values reads and validates the semantic values of a term. Invalid values become "".
	Values(ctx context.Context, meta TermMetaReader, termID TermID, fields []FieldDef) ([]string, error)
	// ItemStyle returns the inline style of one swatch item.
	ItemStyle(values []string) string
	// RenderColumn renders the admin taxonomy column for a term.
	RenderColumn(values []string) string
}

// FieldControl is the input for rendering one backend input control.
type FieldControl struct {
	Field       FieldDef
	Name        string
	ID          string
	Value       string
	Required    bool
	Placeholder string
}

// FieldType knows how to sanitize and render a backend input.
type FieldType interface {
	Key() string
	Sanitize(raw string) string
	RenderControl(ctl FieldControl) string
}

// Progress is the batch run state as seen by pollers.
type Progress struct {
	Count   int    `json:"count"`
	Max     int    `json:"max"`
	Running bool   `json:"running"`
	Status  string `json:"status"`
}

// WorkItemKind tags the variant of a queued work item.
type WorkItemKind string

const (
	WorkRegenerateAll          WorkItemKind = "regenerate_all"
	WorkRegenerateForAttribute WorkItemKind = "regenerate_for_attribute"
)

// WorkItem is a persisted unit of deferred work. It never carries code references.
type WorkItem struct {
	ID       uuid.UUID    `json:"id"`
	Kind     WorkItemKind `json:"kind"`
	Taxonomy string       `json:"taxonomy,omitempty"`
	RunAt    time.Time    `json:"runAt"`
	Attempts int          `json:"attempts"`
}

// RegenerateAll builds a work item for a full regeneration pass.
func RegenerateAll(runAt time.Time) WorkItem {
	return WorkItem{ID: uuid.Must(uuid.NewV7()), Kind: WorkRegenerateAll, RunAt: runAt}
}

// RegenerateForAttribute builds a work item for a pass over products using one taxonomy.
func RegenerateForAttribute(taxonomy string, runAt time.Time) WorkItem {
	return WorkItem{ID: uuid.Must(uuid.NewV7()), Kind: WorkRegenerateForAttribute, Taxonomy: taxonomy, RunAt: runAt}
}

// SameWork reports whether two items describe identical work regardless of id and schedule.
func (w WorkItem) SameWork(other WorkItem) bool {
	return w.Kind == other.Kind && w.Taxonomy == other.Taxonomy
}

// DisplayPosition controls where storefront lists render swatches.
type DisplayPosition string

const (
	PositionBeforeCart  DisplayPosition = "beforecart"
	PositionAfterCart   DisplayPosition = "aftercart"
	PositionBeforePrice DisplayPosition = "beforeprice"
	PositionAfterPrice  DisplayPosition = "afterprice"
)

// ScheduleInterval is the recurrence of the regeneration schedule.
type ScheduleInterval string

const (
	IntervalHourly     ScheduleInterval = "hourly"
	IntervalTwiceDaily ScheduleInterval = "twicedaily"
	IntervalDaily      ScheduleInterval = "daily"
	IntervalWeekly     ScheduleInterval = "weekly"
)

// Duration returns the recurrence period, zero for unknown intervals.
func (i ScheduleInterval) Duration() time.Duration {
	switch i {
	case IntervalHourly:
		return time.Hour
	case IntervalTwiceDaily:
		return 12 * time.Hour
	case IntervalDaily:
		return 24 * time.Hour
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Settings are the administrator options stored in the option table.
type Settings struct {
	Position          DisplayPosition  `json:"position_in_list"`
	DisableCache      bool             `json:"disable_cache"`
	DeleteOnUninstall bool             `json:"delete_on_uninstall"`
	ScheduleEnabled   bool             `json:"schedule_enabled"`
	ScheduleInterval  ScheduleInterval `json:"schedule_interval"`
}

// DefaultSettings mirrors the values written on first initialization.
func DefaultSettings() Settings {
	return Settings{
		Position:          PositionAfterPrice,
		DisableCache:      false,
		DeleteOnUninstall: true,
		ScheduleEnabled:   true,
		ScheduleInterval:  IntervalDaily,
	}
}
