package internal

// ColorOption is one selectable swatch color.
type ColorOption struct {
	Key   string
	Label string
}

// colorOptions is the fixed set of colors a term may carry, in display order.
var colorOptions = []ColorOption{
	{Key: "black", Label: "Black"},
	{Key: "blue", Label: "Blue"},
	{Key: "brown", Label: "Brown"},
	{Key: "green", Label: "Green"},
	{Key: "red", Label: "Red"},
	{Key: "white", Label: "White"},
	{Key: "yellow", Label: "Yellow"},
}

// Colors returns a copy of the allowed color list.
func Colors() []ColorOption {
	out := make([]ColorOption, len(colorOptions))
	copy(out, colorOptions)
	return out
}

// IsAllowedColor reports whether key is one of the enumerated colors.
func IsAllowedColor(key string) bool {
	for _, c := range colorOptions {
		if c.Key == key {
			return true
		}
	}
	return false
}
