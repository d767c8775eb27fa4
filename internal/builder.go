package internal

import (
	"context"
	"strings"

	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

// ProductSwatchBuilder computes the swatch HTML of a single product and keeps its cache entry current.
type ProductSwatchBuilder struct {
	catalog  swatches.Catalog
	cache    *SwatchCache
	registry *Registry
	resolver *ValueResolver
	renderer *Renderer
	hooks    *swatches.Hooks
	logger   *zap.Logger
}

// NewProductSwatchBuilder wires a builder. A nil logger disables logging.
func NewProductSwatchBuilder(
	catalog swatches.Catalog,
	cache *SwatchCache,
	registry *Registry,
	resolver *ValueResolver,
	renderer *Renderer,
	hooks *swatches.Hooks,
	logger *zap.Logger,
) *ProductSwatchBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductSwatchBuilder{
		catalog:  catalog,
		cache:    cache,
		registry: registry,
		resolver: resolver,
		renderer: renderer,
		hooks:    hooks,
		logger:   logger,
	}
}

type termRef struct {
	taxonomy string
	slug     string
}

// typeGroup accumulates the terms of one attribute type across variations.
type typeGroup struct {
	key        string
	refs       []termRef
	seen       map[termRef]bool
	taxonomies []string
}

func (g *typeGroup) add(ref termRef) {
	if g.seen[ref] {
		return
	}
	g.seen[ref] = true
	g.refs = append(g.refs, ref)
	for _, t := range g.taxonomies {
		if t == ref.taxonomy {
			return
		}
	}
	g.taxonomies = append(g.taxonomies, ref.taxonomy)
}

// Build returns the swatch HTML of a product, or "" when the product has nothing to show.
func (b *ProductSwatchBuilder) Build(ctx context.Context, id swatches.ProductID) (string, error) {
	product, err := b.catalog.GetProduct(ctx, id)
	if err != nil {
		return "", swatches.NewCatalogError("load product", err).WithProduct(id)
	}
	if !product.IsVariable() {
		return "", nil
	}
	return b.build(ctx, product)
}

// Persist rebuilds a product and writes the result to the cache, deleting the entry when empty.
// Products that are missing or not variable are left untouched.
func (b *ProductSwatchBuilder) Persist(ctx context.Context, id swatches.ProductID) error {
	product, err := b.catalog.GetProduct(ctx, id)
	if err != nil {
		return swatches.NewCatalogError("load product", err).WithProduct(id)
	}
	if !product.IsVariable() {
		return nil
	}
	html, err := b.build(ctx, product)
	if err != nil {
		return err
	}
	if html == "" {
		return b.cache.Delete(ctx, id)
	}
	return b.cache.Write(ctx, id, html)
}

// Delete removes the cached swatches of a product.
func (b *ProductSwatchBuilder) Delete(ctx context.Context, id swatches.ProductID) error {
	return b.cache.Delete(ctx, id)
}

func (b *ProductSwatchBuilder) build(ctx context.Context, product *swatches.Product) (string, error) {
	variations, err := b.catalog.ListVariations(ctx, product.ID)
	if err != nil {
		return "", swatches.NewCatalogError("list variations", err).WithProduct(product.ID)
	}

	taxonomies := make(map[string]swatches.Taxonomy)
	missing := make(map[string]bool)
	images := make(map[string]string)
	srcsets := make(map[string]string)
	onSale := make(map[string]int)
	var groups []*typeGroup
	groupByKey := make(map[string]*typeGroup)

	for _, v := range variations {
		if !v.Purchasable || b.hooks.ApplyStockStatus(v.StockStatus, v) != swatches.StockStatusInStock {
			continue
		}
		for _, attr := range v.Attributes {
			if missing[attr.Taxonomy] {
				continue
			}
			tax, ok := taxonomies[attr.Taxonomy]
			if !ok {
				found, err := b.catalog.GetTaxonomy(ctx, attr.Taxonomy)
				if err != nil {
					return "", swatches.NewCatalogError("load taxonomy", err).WithProduct(product.ID).WithDetail("taxonomy", attr.Taxonomy)
				}
				if found == nil {
					missing[attr.Taxonomy] = true
					continue
				}
				tax = *found
				taxonomies[attr.Taxonomy] = tax
			}

			if b.hooks.ApplyHideAttribute(tax.ID) <= 0 {
				continue
			}
			if _, ok := b.registry.AttributeType(tax.AttributeType); !ok {
				continue
			}

			// The first in-stock variation carrying the slug decides its image, even without a thumbnail.
			if _, seen := images[attr.Slug]; !seen {
				if v.Thumbnail != nil {
					images[attr.Slug] = v.Thumbnail.URL
					srcsets[attr.Slug] = v.Thumbnail.SrcSet
				} else {
					images[attr.Slug] = ""
					srcsets[attr.Slug] = ""
				}
			}

			if v.OnSale {
				onSale[attr.Slug] = 1
			} else if _, ok := onSale[attr.Slug]; !ok {
				onSale[attr.Slug] = 0
			}

			g, ok := groupByKey[tax.AttributeType]
			if !ok {
				g = &typeGroup{key: tax.AttributeType, seen: make(map[termRef]bool)}
				groupByKey[tax.AttributeType] = g
				groups = append(groups, g)
			}
			g.add(termRef{taxonomy: attr.Taxonomy, slug: attr.Slug})
		}
	}

	if len(groups) == 0 {
		return "", nil
	}

	var html strings.Builder
	for _, g := range groups {
		typ, ok := b.registry.AttributeType(b.hooks.ApplyTypeName(g.key))
		if !ok {
			continue
		}
		terms, values, err := b.resolveGroup(ctx, product.ID, g, typ)
		if err != nil {
			return "", err
		}
		html.WriteString(b.renderer.RenderList(ListParams{
			Type:         typ,
			Terms:        terms,
			Taxonomies:   taxonomies,
			Images:       images,
			ImageSrcSets: srcsets,
			Values:       values,
			OnSale:       onSale,
			ProductLink:  product.Link,
			ProductTitle: product.Title,
		}))
	}

	b.logger.Debug("built product swatches",
		zap.Int64("product_id", int64(product.ID)),
		zap.Int("groups", len(groups)),
		zap.Int("bytes", html.Len()),
	)
	return html.String(), nil
}

// resolveGroup loads live terms and values for a group and orders them by the product's term order.
func (b *ProductSwatchBuilder) resolveGroup(
	ctx context.Context,
	productID swatches.ProductID,
	g *typeGroup,
	typ swatches.AttributeType,
) ([]swatches.Term, map[string][]string, error) {
	fields := typ.Fields()
	resolved := make(map[swatches.TermID]swatches.Term)
	values := make(map[string][]string)

	for _, ref := range g.refs {
		term, err := b.catalog.GetTermBySlug(ctx, ref.taxonomy, ref.slug)
		if err != nil {
			return nil, nil, swatches.NewCatalogError("load term", err).WithProduct(productID).WithDetail("slug", ref.slug)
		}
		if term == nil {
			continue
		}
		vals, err := b.resolver.ValuesForFields(ctx, term.ID, typ, fields)
		if err != nil {
			return nil, nil, err
		}
		values[term.Slug] = vals
		resolved[term.ID] = *term
	}

	ordered := make([]swatches.Term, 0, len(resolved))
	for _, taxonomy := range g.taxonomies {
		order, err := b.catalog.ProductTermOrder(ctx, productID, taxonomy)
		if err != nil {
			return nil, nil, swatches.NewCatalogError("load product term order", err).WithProduct(productID).WithDetail("taxonomy", taxonomy)
		}
		for _, id := range order {
			term, ok := resolved[id]
			if !ok || term.Taxonomy != taxonomy {
				continue
			}
			ordered = append(ordered, term)
			delete(resolved, id)
		}
	}
	return ordered, values, nil
}
