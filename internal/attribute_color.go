package internal

import (
	"context"

	"github.com/lychee-technology/swatches"
)

const (
	colorTypeName  = "color"
	colorTypeNames = "colors"
)

// ColorAttributeType renders a background-color chip per term.
type ColorAttributeType struct{}

var _ swatches.AttributeType = ColorAttributeType{}

func (ColorAttributeType) Key() string       { return colorTypeName }
func (ColorAttributeType) PluralKey() string { return colorTypeNames }
func (ColorAttributeType) Label() string     { return "Color" }

func (ColorAttributeType) Fields() []swatches.FieldDef {
	return []swatches.FieldDef{
		{
			ID:          "1",
			Name:        "color",
			Label:       "Color",
			Description: "Choose a color.",
			Default:     "",
			Size:        "7",
			Required:    true,
			Placeholder: "#000000",
			Dependency:  map[string]string{},
			Type:        "colorselect",
		},
	}
}

// Values returns a single value: the stored color, or "" when it is not an allowed color.
func (t ColorAttributeType) Values(ctx context.Context, meta swatches.TermMetaReader, termID swatches.TermID, fields []swatches.FieldDef) ([]string, error) {
	field, ok := primaryField(fields, "color")
	if !ok {
		return []string{""}, nil
	}
	color, _, err := meta.GetTermMeta(ctx, termID, field.Name)
	if err != nil {
		return nil, err
	}
	if !IsAllowedColor(color) {
		color = ""
	}
	return []string{color}, nil
}

func (ColorAttributeType) ItemStyle(values []string) string {
	return "background-color: " + firstValue(values)
}

func (ColorAttributeType) RenderColumn(values []string) string {
	color := firstValue(values)
	if color == "" {
		return ""
	}
	return RenderColumnChip(colorTypeName, "background-color: "+color)
}

// primaryField finds a field by storage name or id, falling back to the first field.
func primaryField(fields []swatches.FieldDef, name string) (swatches.FieldDef, bool) {
	for _, f := range fields {
		if f.Name == name || f.ID == name {
			return f, true
		}
	}
	if len(fields) > 0 {
		return fields[0], true
	}
	return swatches.FieldDef{}, false
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
