package swatches

// Hooks are the override points exposed to integrators. A nil hook keeps the default behavior.
type Hooks struct {
	// StockStatus may rewrite the stock status of a variation before the in-stock gate.
	StockStatus func(status string, variation Variation) string
	// HideAttribute receives the taxonomy id and suppresses the attribute when it returns <= 0.
	// Without a hook the id itself is returned, so a taxonomy with id 0 (one the catalog
	// could not resolve) is always hidden.
	HideAttribute func(taxonomyID int64) int64
	// TypeName may map a registered type key to another key before grouping and rendering.
	TypeName func(typeKey string) string
	// ItemClass may rewrite the CSS class of a swatch item.
	ItemClass func(class string, taxonomyID int64) string
	// ItemLink returns the link of a swatch item; an empty link renders an unlinked item.
	ItemLink func(link string, taxonomyID int64, term Term, productLink string) string
	// SecureTermValue may rewrite a sanitized term field value before it is stored.
	SecureTermValue func(value string, field FieldDef) string
}

func (h *Hooks) ApplyStockStatus(status string, v Variation) string {
	if h == nil || h.StockStatus == nil {
		return status
	}
	return h.StockStatus(status, v)
}

func (h *Hooks) ApplyHideAttribute(taxonomyID int64) int64 {
	if h == nil || h.HideAttribute == nil {
		return taxonomyID
	}
	return h.HideAttribute(taxonomyID)
}

func (h *Hooks) ApplyTypeName(typeKey string) string {
	if h == nil || h.TypeName == nil {
		return typeKey
	}
	return h.TypeName(typeKey)
}

func (h *Hooks) ApplyItemClass(class string, taxonomyID int64) string {
	if h == nil || h.ItemClass == nil {
		return class
	}
	return h.ItemClass(class, taxonomyID)
}

func (h *Hooks) ApplyItemLink(taxonomyID int64, term Term, productLink string) string {
	if h == nil || h.ItemLink == nil {
		return ""
	}
	return h.ItemLink("", taxonomyID, term, productLink)
}

func (h *Hooks) ApplySecureTermValue(value string, field FieldDef) string {
	if h == nil || h.SecureTermValue == nil {
		return value
	}
	return h.SecureTermValue(value, field)
}
