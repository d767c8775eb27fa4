package internal

import (
	"context"
	"strings"
	"testing"

	"github.com/lychee-technology/swatches"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorListParams() ListParams {
	return ListParams{
		Type: ColorAttributeType{},
		Terms: []swatches.Term{
			{ID: 2, Taxonomy: "pa_color", Slug: "blue", Name: "Blue"},
			{ID: 1, Taxonomy: "pa_color", Slug: "red", Name: "Red"},
		},
		Taxonomies: map[string]swatches.Taxonomy{
			"pa_color": {ID: 1, Name: "pa_color", SingularLabel: "Color", AttributeType: "color"},
		},
		Images:       map[string]string{"red": "/img/red.jpg", "blue": ""},
		ImageSrcSets: map[string]string{"red": "/img/red-2x.jpg 2x"},
		Values:       map[string][]string{"red": {"red"}, "blue": {"blue"}},
		OnSale:       map[string]int{"blue": 1},
		ProductLink:  "/product/tee",
		ProductTitle: "Tee",
	}
}

func TestRenderer_RenderList(t *testing.T) {
	html := NewRenderer(nil).RenderList(colorListParams())

	expected := `<ul class="lw_product_swatches lw_product_swatches_colors" data-type="color" data-attribute="pa_color" data-changed-by-gallery="">` +
		`<li><span class="lw_swatches_color_blue" title="Tee Color Blue" style="background-color: blue" data-image="" data-image-srcset="" data-sale="1"></span></li>` +
		`<li><span class="lw_swatches_color_red" title="Tee Color Red" style="background-color: red" data-image="/img/red.jpg" data-image-srcset="/img/red-2x.jpg 2x" data-sale="0"></span></li>` +
		`</ul>`
	assert.Equal(t, expected, html)
}

func TestRenderer_SkipsTermsWithoutValue(t *testing.T) {
	p := colorListParams()
	p.Values["blue"] = []string{""}

	html := NewRenderer(nil).RenderList(p)
	assert.NotContains(t, html, "lw_swatches_color_blue")
	assert.Contains(t, html, "lw_swatches_color_red")
}

func TestRenderer_EmptyWhenNothingRenders(t *testing.T) {
	p := colorListParams()
	p.Values = map[string][]string{}
	assert.Empty(t, NewRenderer(nil).RenderList(p))

	p = colorListParams()
	p.Type = nil
	assert.Empty(t, NewRenderer(nil).RenderList(p))
}

func TestRenderer_SkipsUnknownTaxonomy(t *testing.T) {
	p := colorListParams()
	p.Terms = append(p.Terms, swatches.Term{ID: 9, Taxonomy: "pa_gone", Slug: "red", Name: "Red"})

	html := NewRenderer(nil).RenderList(p)
	assert.Equal(t, 2, strings.Count(html, "<li>"))
	assert.Contains(t, html, `data-attribute="pa_color"`)
}

func TestRenderer_Hooks(t *testing.T) {
	hooks := &swatches.Hooks{
		ItemClass: func(class string, taxonomyID int64) string { return class + " custom" },
		ItemLink: func(_ string, _ int64, term swatches.Term, productLink string) string {
			return productLink + "?attribute_" + term.Taxonomy + "=" + term.Slug
		},
	}
	html := NewRenderer(hooks).RenderList(colorListParams())

	assert.Contains(t, html, `<a href="/product/tee?attribute_pa_color=red" class="lw_swatches_color_red custom"`)
	assert.Contains(t, html, `data-value="blue"`)
	assert.NotContains(t, html, "<span")
}

func TestValueResolver(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetTermMeta(ctx, 1, "color", "white"))
	r := NewValueResolver(NewDefaultRegistry(), store)

	values, err := r.Values(ctx, 1, "color")
	require.NoError(t, err)
	assert.Equal(t, []string{"white"}, values)

	values, err = r.Values(ctx, 1, "select")
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestValueResolver_StorageError(t *testing.T) {
	r := NewValueResolver(NewDefaultRegistry(), failingTermMeta{})

	_, err := r.Values(context.Background(), 5, "color")
	require.Error(t, err)
	assert.True(t, swatches.IsStorageError(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestSwatchCache(t *testing.T) {
	ctx := context.Background()
	cache := NewSwatchCache(NewMemoryStore())

	_, ok, err := cache.Read(ctx, teeID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Write(ctx, teeID, "<ul></ul>"))
	require.NoError(t, cache.Write(ctx, 300, "<ul></ul>"))
	html, ok, err := cache.Read(ctx, teeID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<ul></ul>", html)

	ids, err := cache.ProductIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []swatches.ProductID{teeID, 300}, ids)

	require.NoError(t, cache.Delete(ctx, teeID))
	_, ok, err = cache.Read(ctx, teeID)
	require.NoError(t, err)
	assert.False(t, ok)
}
