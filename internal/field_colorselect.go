package internal

import (
	"strings"

	"github.com/lychee-technology/swatches"
)

// ColorselectFieldType renders a select of the enumerated colors.
type ColorselectFieldType struct{}

var _ swatches.FieldType = ColorselectFieldType{}

func (ColorselectFieldType) Key() string { return "colorselect" }

func (ColorselectFieldType) Sanitize(raw string) string {
	return sanitizeText(raw)
}

func (ColorselectFieldType) RenderControl(ctl swatches.FieldControl) string {
	var b strings.Builder
	b.WriteString(`<select name="`)
	b.WriteString(escAttr(ctl.Name))
	b.WriteString(`" id="`)
	b.WriteString(escAttr(ctl.ID))
	b.WriteString(`"`)
	if ctl.Required {
		b.WriteString(` required`)
	}
	b.WriteString(`><option value=""></option>`)
	for _, c := range colorOptions {
		b.WriteString(`<option value="`)
		b.WriteString(escAttr(c.Key))
		b.WriteString(`"`)
		if c.Key == ctl.Value {
			b.WriteString(` selected`)
		}
		b.WriteString(`>`)
		b.WriteString(escAttr(c.Label))
		b.WriteString(`</option>`)
	}
	b.WriteString(`</select>`)
	return b.String()
}
