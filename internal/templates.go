package internal

import (
	"bytes"
	"strconv"
	"text/template"
)

// ListItemParams is the data of a single swatch list item.
type ListItemParams struct {
	Link   string
	Class  string
	Title  string
	CSS    string
	Slug   string
	Image  string
	SrcSet string
	Sale   int
}

// ListWrapParams is the data of the list container around the items.
type ListWrapParams struct {
	Items            string
	TypeNames        string
	TypeName         string
	Taxonomy         string
	ChangedByGallery bool
}

var templateFuncs = template.FuncMap{
	"attr": escAttr,
	"url":  escURL,
	"text": func(s string) string { return escAttr(sanitizeText(s)) },
	"flag": func(b bool) string {
		if b {
			return "1"
		}
		return ""
	},
	"int": strconv.Itoa,
}

var (
	linkedItemTemplate = template.Must(template.New("list-item-linked").Funcs(templateFuncs).Parse(
		`<li><a href="{{url .Link}}" class="{{attr .Class}}" title="{{text .Title}}" style="{{attr .CSS}}" data-value="{{attr .Slug}}" data-image="{{attr .Image}}" data-image-srcset="{{attr .SrcSet}}" data-sale="{{int .Sale}}"></a></li>`))

	itemTemplate = template.Must(template.New("list-item").Funcs(templateFuncs).Parse(
		`<li><span class="{{attr .Class}}" title="{{text .Title}}" style="{{attr .CSS}}" data-image="{{attr .Image}}" data-image-srcset="{{attr .SrcSet}}" data-sale="{{int .Sale}}"></span></li>`))

	listTemplate = template.Must(template.New("list").Funcs(templateFuncs).Parse(
		`<ul class="lw_product_swatches lw_product_swatches_{{attr .TypeNames}}" data-type="{{attr .TypeName}}" data-attribute="{{attr .Taxonomy}}" data-changed-by-gallery="{{flag .ChangedByGallery}}">{{.Items}}</ul>`))

	columnTemplate = template.Must(template.New("column").Funcs(templateFuncs).Parse(
		`<div class="lw-swatches lw-swatches-{{attr .TypeName}}" style="{{attr .CSS}}"></div>`))

	addFieldTemplate = template.Must(template.New("add-field").Funcs(templateFuncs).Parse(
		`<div class="form-field term-{{attr .FieldID}}-wrap" data-lsw-dependency="{{attr .Dependency}}"><label for="tag-{{attr .FieldID}}">{{text .Label}}</label>{{.Control}}{{if .Description}}<p class="description">{{text .Description}}</p>{{end}}</div>`))

	editFieldTemplate = template.Must(template.New("edit-field").Funcs(templateFuncs).Parse(
		`<tr data-lsw-dependency="{{attr .Dependency}}" class="form-field {{attr .FieldID}} {{if .Required}}form-required{{end}}"><th scope="row"><label for="{{attr .FieldID}}">{{text .Label}}</label></th><td>{{.Control}}{{if .Description}}<p class="description">{{text .Description}}</p>{{end}}</td></tr>`))
)

// FormFieldParams is the data of one term form row around a rendered control.
type FormFieldParams struct {
	FieldID     string
	Dependency  string
	Label       string
	Description string
	Required    bool
	Control     string
}

func execute(tpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		// Templates are static and only receive strings and ints.
		panic(err)
	}
	return buf.String()
}

// RenderListItem formats one item, linked when p.Link is set.
func RenderListItem(p ListItemParams) string {
	if p.Link != "" {
		return execute(linkedItemTemplate, p)
	}
	return execute(itemTemplate, p)
}

// RenderListWrap wraps rendered items in the list container. Empty items yield "".
func RenderListWrap(p ListWrapParams) string {
	if p.Items == "" {
		return ""
	}
	return execute(listTemplate, p)
}

// RenderColumnChip formats the admin taxonomy column chip.
func RenderColumnChip(typeName, css string) string {
	return execute(columnTemplate, struct{ TypeName, CSS string }{typeName, css})
}

// RenderFormField wraps a control for the add-term form, or for the edit-term table when editing is set.
func RenderFormField(p FormFieldParams, editing bool) string {
	if editing {
		return execute(editFieldTemplate, p)
	}
	return execute(addFieldTemplate, p)
}
