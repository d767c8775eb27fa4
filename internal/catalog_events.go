package internal

import (
	"context"
	"fmt"

	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

// CatalogEventKind names a catalog mutation that invalidates swatches.
type CatalogEventKind string

const (
	EventProductCreated    CatalogEventKind = "product_created"
	EventProductUpdated    CatalogEventKind = "product_updated"
	EventProductStockSet   CatalogEventKind = "product_stock_set"
	EventVariationStockSet CatalogEventKind = "variation_stock_set"
)

// CatalogEvent is a single mutation notification from the host catalog.
type CatalogEvent struct {
	Kind      CatalogEventKind   `json:"kind"`
	ProductID swatches.ProductID `json:"productId"`
}

// Validate checks the event kind and id.
func (e CatalogEvent) Validate() error {
	switch e.Kind {
	case EventProductCreated, EventProductUpdated, EventProductStockSet, EventVariationStockSet:
	default:
		return swatches.NewValidationError("kind", fmt.Sprintf("unknown catalog event %q", e.Kind))
	}
	if e.ProductID <= 0 {
		return swatches.NewValidationError("productId", "product id must be positive")
	}
	return nil
}

// BulkResult reports the outcome of a bulk regeneration.
type BulkResult struct {
	Updated int                  `json:"updated"`
	Failed  []swatches.ProductID `json:"failed,omitempty"`
}

// CatalogEvents keeps single product caches current after catalog mutations.
type CatalogEvents struct {
	catalog swatches.Catalog
	builder productPersister
	logger  *zap.Logger
}

func NewCatalogEvents(catalog swatches.Catalog, builder productPersister, logger *zap.Logger) *CatalogEvents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogEvents{catalog: catalog, builder: builder, logger: logger}
}

// Handle rebuilds the product named by the event. Variations rebuild their parent.
func (c *CatalogEvents) Handle(ctx context.Context, event CatalogEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	id, err := c.owner(ctx, event.ProductID)
	if err != nil {
		return err
	}
	if id == 0 {
		return nil
	}
	c.logger.Debug("catalog event", zap.String("kind", string(event.Kind)), zap.Int64("product_id", int64(id)))
	return c.builder.Persist(ctx, id)
}

// Regenerate rebuilds one product immediately.
func (c *CatalogEvents) Regenerate(ctx context.Context, id swatches.ProductID) error {
	owner, err := c.owner(ctx, id)
	if err != nil {
		return err
	}
	if owner == 0 {
		return swatches.NewProductNotFoundError(id)
	}
	return c.builder.Persist(ctx, owner)
}

// BulkRegenerate rebuilds each selected product and keeps going past failures.
func (c *CatalogEvents) BulkRegenerate(ctx context.Context, ids []swatches.ProductID) BulkResult {
	var res BulkResult
	for _, id := range ids {
		if err := c.Regenerate(ctx, id); err != nil {
			c.logger.Warn("bulk swatch update failed", zap.Int64("product_id", int64(id)), zap.Error(err))
			res.Failed = append(res.Failed, id)
			continue
		}
		res.Updated++
	}
	return res
}

// owner returns the id whose cache entry covers id, or 0 when the product is unknown.
func (c *CatalogEvents) owner(ctx context.Context, id swatches.ProductID) (swatches.ProductID, error) {
	product, err := c.catalog.GetProduct(ctx, id)
	if err != nil {
		return 0, swatches.NewCatalogError("load product", err).WithProduct(id)
	}
	if product == nil {
		return 0, nil
	}
	if product.Type == swatches.ProductTypeVariation && product.ParentID != 0 {
		return product.ParentID, nil
	}
	return product.ID, nil
}
