package internal

import (
	"context"

	"github.com/lychee-technology/swatches"
)

// ValueResolver resolves the semantic values of a term for an attribute type.
type ValueResolver struct {
	registry *Registry
	termMeta swatches.TermMetaReader
}

// NewValueResolver creates a resolver over the registry and term metadata.
func NewValueResolver(registry *Registry, termMeta swatches.TermMetaReader) *ValueResolver {
	return &ValueResolver{registry: registry, termMeta: termMeta}
}

// Values resolves the type key through the registry. Unknown types yield nil.
func (r *ValueResolver) Values(ctx context.Context, termID swatches.TermID, typeKey string) ([]string, error) {
	t, ok := r.registry.AttributeType(typeKey)
	if !ok {
		return nil, nil
	}
	return r.ValuesForFields(ctx, termID, t, t.Fields())
}

// ValuesForFields skips the registry lookup when the caller already holds the type and its fields.
func (r *ValueResolver) ValuesForFields(ctx context.Context, termID swatches.TermID, t swatches.AttributeType, fields []swatches.FieldDef) ([]string, error) {
	values, err := t.Values(ctx, r.termMeta, termID, fields)
	if err != nil {
		return nil, swatches.NewStorageError("read term values", err).WithDetail("term_id", termID)
	}
	return values, nil
}
