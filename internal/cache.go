package internal

import (
	"context"

	"github.com/lychee-technology/swatches"
)

// SwatchCache stores rendered swatch HTML as product meta under swatches.CacheKey.
type SwatchCache struct {
	meta swatches.ProductMetaStore
}

func NewSwatchCache(meta swatches.ProductMetaStore) *SwatchCache {
	return &SwatchCache{meta: meta}
}

// Read returns the cached HTML and whether an entry exists.
func (c *SwatchCache) Read(ctx context.Context, id swatches.ProductID) (string, bool, error) {
	html, ok, err := c.meta.GetProductMeta(ctx, id, swatches.CacheKey)
	if err != nil {
		return "", false, swatches.NewStorageError("read swatch cache", err).WithProduct(id)
	}
	return html, ok, nil
}

func (c *SwatchCache) Write(ctx context.Context, id swatches.ProductID, html string) error {
	if err := c.meta.SetProductMeta(ctx, id, swatches.CacheKey, html); err != nil {
		return swatches.NewStorageError("write swatch cache", err).WithProduct(id)
	}
	return nil
}

func (c *SwatchCache) Delete(ctx context.Context, id swatches.ProductID) error {
	if err := c.meta.DeleteProductMeta(ctx, id, swatches.CacheKey); err != nil {
		return swatches.NewStorageError("delete swatch cache", err).WithProduct(id)
	}
	return nil
}

// ProductIDs lists every product that currently has a cache entry.
func (c *SwatchCache) ProductIDs(ctx context.Context) ([]swatches.ProductID, error) {
	ids, err := c.meta.ListProductIDsWithMeta(ctx, swatches.CacheKey)
	if err != nil {
		return nil, swatches.NewStorageError("list swatch cache entries", err)
	}
	return ids, nil
}
