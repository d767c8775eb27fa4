package internal

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lychee-technology/swatches"
)

// Registry maps type keys to attribute type and field type implementations.
// It is populated at startup and frozen before it is shared with request paths.
type Registry struct {
	mu             sync.RWMutex
	attributeTypes map[string]swatches.AttributeType
	fieldTypes     map[string]swatches.FieldType
	frozen         bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		attributeTypes: make(map[string]swatches.AttributeType),
		fieldTypes:     make(map[string]swatches.FieldType),
	}
}

// NewDefaultRegistry creates a registry holding the built-in color type and colorselect field.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.RegisterFieldType(ColorselectFieldType{})
	_ = r.RegisterAttributeType(ColorAttributeType{})
	return r
}

// RegisterAttributeType adds or replaces an attribute type.
func (r *Registry) RegisterAttributeType(t swatches.AttributeType) error {
	if t == nil || t.Key() == "" {
		return fmt.Errorf("attribute type must have a key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register attribute type %q", t.Key())
	}
	for _, f := range t.Fields() {
		if _, ok := r.fieldTypes[f.Type]; !ok {
			return fmt.Errorf("attribute type %q uses unregistered field type %q", t.Key(), f.Type)
		}
	}
	r.attributeTypes[t.Key()] = t
	return nil
}

// RegisterFieldType adds or replaces a field type.
func (r *Registry) RegisterFieldType(t swatches.FieldType) error {
	if t == nil || t.Key() == "" {
		return fmt.Errorf("field type must have a key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register field type %q", t.Key())
	}
	r.fieldTypes[t.Key()] = t
	return nil
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// AttributeType looks up an attribute type by key.
func (r *Registry) AttributeType(key string) (swatches.AttributeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.attributeTypes[key]
	return t, ok
}

// FieldType looks up a field type by key.
func (r *Registry) FieldType(key string) (swatches.FieldType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.fieldTypes[key]
	return t, ok
}

// AttributeTypeKeys returns the registered attribute type keys in sorted order.
func (r *Registry) AttributeTypeKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.attributeTypes))
	for k := range r.attributeTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
