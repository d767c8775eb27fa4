package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"red", "red"},
		{"  red  ", "red"},
		{"<script>alert(1)</script>red", "alert(1)red"},
		{"light\n\tblue", "light blue"},
		{"red%20%3C", "red"},
		{"\xff\xfe", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeText(tt.in), "input %q", tt.in)
	}
}

func TestEscURL(t *testing.T) {
	assert.Equal(t, "", escURL("javascript:alert(1)"))
	assert.Equal(t, "", escURL("   "))
	assert.Equal(t, "/product/tee", escURL("/product/tee"))
	assert.Equal(t, "https://shop.test/tee?a=1&amp;b=2", escURL("https://shop.test/tee?a=1&b=2"))
}

func TestRenderListItem(t *testing.T) {
	item := ListItemParams{
		Class: "lw_swatches_color_red",
		Title: "Tee Color Red",
		CSS:   "background-color: red",
		Slug:  "red",
		Image: "/img/red.jpg",
		Sale:  1,
	}

	assert.Equal(t,
		`<li><span class="lw_swatches_color_red" title="Tee Color Red" style="background-color: red" data-image="/img/red.jpg" data-image-srcset="" data-sale="1"></span></li>`,
		RenderListItem(item),
	)

	item.Link = "/product/tee?attribute_pa_color=red"
	assert.Equal(t,
		`<li><a href="/product/tee?attribute_pa_color=red" class="lw_swatches_color_red" title="Tee Color Red" style="background-color: red" data-value="red" data-image="/img/red.jpg" data-image-srcset="" data-sale="1"></a></li>`,
		RenderListItem(item),
	)
}

func TestRenderListItem_EscapesValues(t *testing.T) {
	html := RenderListItem(ListItemParams{
		Class: `x" onclick="evil`,
		Title: `<b>Tee</b> "quoted"`,
	})
	assert.Contains(t, html, `class="x&#34; onclick=&#34;evil"`)
	assert.Contains(t, html, `title="Tee &#34;quoted&#34;"`)
}

func TestRenderListWrap(t *testing.T) {
	assert.Empty(t, RenderListWrap(ListWrapParams{TypeNames: "colors"}))

	html := RenderListWrap(ListWrapParams{
		Items:     "<li></li>",
		TypeNames: "colors",
		TypeName:  "color",
		Taxonomy:  "pa_color",
	})
	assert.Equal(t,
		`<ul class="lw_product_swatches lw_product_swatches_colors" data-type="color" data-attribute="pa_color" data-changed-by-gallery=""><li></li></ul>`,
		html,
	)

	gallery := RenderListWrap(ListWrapParams{Items: "<li></li>", ChangedByGallery: true})
	assert.Contains(t, gallery, `data-changed-by-gallery="1"`)
}

func TestRenderFormField(t *testing.T) {
	p := FormFieldParams{
		FieldID:     "1",
		Label:       "Color",
		Description: "Choose a color.",
		Required:    true,
		Control:     "<select></select>",
	}

	add := RenderFormField(p, false)
	assert.Equal(t,
		`<div class="form-field term-1-wrap" data-lsw-dependency=""><label for="tag-1">Color</label><select></select><p class="description">Choose a color.</p></div>`,
		add,
	)

	edit := RenderFormField(p, true)
	assert.Equal(t,
		`<tr data-lsw-dependency="" class="form-field 1 form-required"><th scope="row"><label for="1">Color</label></th><td><select></select><p class="description">Choose a color.</p></td></tr>`,
		edit,
	)

	p.Description = ""
	assert.NotContains(t, RenderFormField(p, false), "description")
}
