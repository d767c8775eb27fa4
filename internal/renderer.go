package internal

import (
	"strings"

	"github.com/lychee-technology/swatches"
)

// ListParams is everything needed to render one attribute-type list.
type ListParams struct {
	Type         swatches.AttributeType
	Terms        []swatches.Term
	Taxonomies   map[string]swatches.Taxonomy
	Images       map[string]string
	ImageSrcSets map[string]string
	Values       map[string][]string
	OnSale       map[string]int
	ProductLink  string
	ProductTitle string
	// ChangedByGallery is reserved for gallery-sync integrations.
	ChangedByGallery bool
}

// Renderer turns resolved terms into swatch list markup.
//
// The storefront grid closes the product link before the list is printed. That belongs to the
// host template loop and is not done here.
type Renderer struct {
	hooks *swatches.Hooks
}

// NewRenderer creates a renderer using the given hooks for class and link overrides.
func NewRenderer(hooks *swatches.Hooks) *Renderer {
	return &Renderer{hooks: hooks}
}

// RenderList renders the items of p.Terms in order and wraps them. Terms without a value are skipped.
func (r *Renderer) RenderList(p ListParams) string {
	if p.Type == nil {
		return ""
	}
	var items strings.Builder
	taxonomy := ""
	for _, term := range p.Terms {
		tax, ok := p.Taxonomies[term.Taxonomy]
		if !ok {
			continue
		}
		taxonomy = term.Taxonomy

		values := p.Values[term.Slug]
		if firstValue(values) == "" {
			continue
		}

		image, srcset := "", ""
		if img := p.Images[term.Slug]; img != "" {
			image = img
			srcset = p.ImageSrcSets[term.Slug]
		}

		class := r.hooks.ApplyItemClass("lw_swatches_"+p.Type.Key()+"_"+term.Slug, tax.ID)
		items.WriteString(RenderListItem(ListItemParams{
			Link:   r.hooks.ApplyItemLink(tax.ID, term, p.ProductLink),
			Class:  class,
			Title:  p.ProductTitle + " " + tax.SingularLabel + " " + term.Name,
			CSS:    p.Type.ItemStyle(values),
			Slug:   term.Slug,
			Image:  image,
			SrcSet: srcset,
			Sale:   p.OnSale[term.Slug],
		}))
	}

	return RenderListWrap(ListWrapParams{
		Items:            items.String(),
		TypeNames:        p.Type.PluralKey(),
		TypeName:         p.Type.Key(),
		Taxonomy:         taxonomy,
		ChangedByGallery: p.ChangedByGallery,
	})
}
