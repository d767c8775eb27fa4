package internal

import (
	"context"
	"text/template"

	"github.com/lychee-technology/swatches"
)

// Storefront serves swatch HTML to listing pages.
type Storefront struct {
	catalog  swatches.Catalog
	builder  *ProductSwatchBuilder
	cache    *SwatchCache
	settings *SettingsStore
}

func NewStorefront(catalog swatches.Catalog, builder *ProductSwatchBuilder, cache *SwatchCache, settings *SettingsStore) *Storefront {
	return &Storefront{catalog: catalog, builder: builder, cache: cache, settings: settings}
}

// Placement is the swatch HTML of a product together with where it should be shown.
type Placement struct {
	ProductID swatches.ProductID       `json:"productId"`
	Position  swatches.DisplayPosition `json:"position"`
	HTML      string                   `json:"html"`
}

// SwatchesFor returns the swatches of a product. Variations resolve to their parent.
// With the disable-cache setting on, the HTML is built live instead of read from the cache.
func (s *Storefront) SwatchesFor(ctx context.Context, id swatches.ProductID) (Placement, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return Placement{}, err
	}
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return Placement{}, swatches.NewCatalogError("load product", err).WithProduct(id)
	}
	if product == nil {
		return Placement{}, swatches.NewProductNotFoundError(id)
	}
	if product.Type == swatches.ProductTypeVariation && product.ParentID != 0 {
		id = product.ParentID
	}

	out := Placement{ProductID: id, Position: cfg.Position}
	if cfg.DisableCache {
		out.HTML, err = s.builder.Build(ctx, id)
		return out, err
	}
	out.HTML, _, err = s.cache.Read(ctx, id)
	return out, err
}

// DecorateAddToCart places the swatches before or after the add-to-cart button for the cart
// positions. For the price positions the button is returned unchanged.
func DecorateAddToCart(p Placement, buttonHTML string) string {
	switch p.Position {
	case swatches.PositionBeforeCart:
		return p.HTML + buttonHTML
	case swatches.PositionAfterCart:
		return buttonHTML + p.HTML
	default:
		return buttonHTML
	}
}

// BlockGridItem holds the pre-rendered parts of a product grid block item.
type BlockGridItem struct {
	Permalink string
	Image     string
	Title     string
	Badge     string
	Price     string
	Rating    string
	Button    string
}

var blockGridTemplate = template.Must(template.New("block-grid-item").Funcs(templateFuncs).Parse(
	`<li class="wc-block-grid__product"><a href="{{url .Item.Permalink}}" class="wc-block-grid__product-link">{{.Item.Image}}{{.Item.Title}}</a>{{.Item.Badge}}{{.Item.Price}}{{.Item.Rating}}{{.Swatches}}{{.Item.Button}}</li>`))

// RenderBlockGridItem inserts the swatches into a grid block item. fallback is returned when the
// product has no swatches.
func RenderBlockGridItem(p Placement, item BlockGridItem, fallback string) string {
	if p.HTML == "" {
		return fallback
	}
	return execute(blockGridTemplate, struct {
		Item     BlockGridItem
		Swatches string
	}{item, p.HTML})
}
