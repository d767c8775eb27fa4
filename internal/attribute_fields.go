package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

// singleEventScheduler queues one deferred work item.
type singleEventScheduler interface {
	ScheduleSingle(ctx context.Context, item swatches.WorkItem) (bool, error)
}

// AttributeFields handles the per-term fields of attribute taxonomies: saving submitted values,
// rendering the term edit form and the taxonomy admin column.
type AttributeFields struct {
	catalog   swatches.Catalog
	registry  *Registry
	termMeta  swatches.TermMetaStore
	resolver  *ValueResolver
	hooks     *swatches.Hooks
	scheduler singleEventScheduler
	logger    *zap.Logger
}

func NewAttributeFields(
	catalog swatches.Catalog,
	registry *Registry,
	termMeta swatches.TermMetaStore,
	resolver *ValueResolver,
	hooks *swatches.Hooks,
	scheduler singleEventScheduler,
	logger *zap.Logger,
) *AttributeFields {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttributeFields{
		catalog:   catalog,
		registry:  registry,
		termMeta:  termMeta,
		resolver:  resolver,
		hooks:     hooks,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Save stores the submitted values of every field of the taxonomy's attribute type.
// Submission keys are form names (lwps1, ...). A missing or empty required field rejects the
// whole submission; a missing optional field deletes its stored value.
func (a *AttributeFields) Save(ctx context.Context, taxonomy string, termID swatches.TermID, submission map[string]string) error {
	tax, attrType, err := a.lookup(ctx, taxonomy)
	if err != nil {
		return err
	}
	fields := attrType.Fields()

	if err := validateSubmission(fields, submission); err != nil {
		return err
	}

	for _, field := range fields {
		raw, present := submission[field.FormName()]
		if !present {
			if err := a.termMeta.DeleteTermMeta(ctx, termID, field.Name); err != nil {
				return swatches.NewStorageError("delete term value", err).WithField(field.FormName())
			}
			continue
		}
		value := a.sanitize(field, raw)
		value = a.hooks.ApplySecureTermValue(value, field)
		if err := a.termMeta.SetTermMeta(ctx, termID, field.Name, value); err != nil {
			return swatches.NewStorageError("write term value", err).WithField(field.FormName())
		}
	}

	added, err := a.scheduler.ScheduleSingle(ctx, swatches.RegenerateForAttribute(tax.Name, time.Now()))
	if err != nil {
		return err
	}
	a.logger.Info("term swatch fields saved",
		zap.String("taxonomy", tax.Name),
		zap.Int64("term_id", int64(termID)),
		zap.Bool("regeneration_queued", added),
	)
	return nil
}

// RenderColumn renders the admin column content of a term, "" when no value is set.
func (a *AttributeFields) RenderColumn(ctx context.Context, taxonomy string, termID swatches.TermID) (string, error) {
	_, attrType, err := a.lookup(ctx, taxonomy)
	if err != nil {
		return "", err
	}
	values, err := a.resolver.ValuesForFields(ctx, termID, attrType, attrType.Fields())
	if err != nil {
		return "", err
	}
	return attrType.RenderColumn(values), nil
}

// RenderForm renders the input rows of the term form. termID 0 renders the add-term form with
// default values; otherwise stored values are preselected.
func (a *AttributeFields) RenderForm(ctx context.Context, taxonomy string, termID swatches.TermID) (string, error) {
	_, attrType, err := a.lookup(ctx, taxonomy)
	if err != nil {
		return "", err
	}
	editing := termID != 0

	var b strings.Builder
	for _, field := range attrType.Fields() {
		value := field.Default
		if editing {
			stored, _, err := a.termMeta.GetTermMeta(ctx, termID, field.Name)
			if err != nil {
				return "", swatches.NewStorageError("read term value", err).WithField(field.FormName())
			}
			if stored != "" {
				value = stored
			}
		}

		ft, ok := a.registry.FieldType(a.hooks.ApplyTypeName(field.Type))
		if !ok {
			// Rendering stops at the first field without a control.
			break
		}
		control := ft.RenderControl(swatches.FieldControl{
			Field:       field,
			Name:        field.FormName(),
			ID:          field.FormName(),
			Value:       value,
			Required:    field.Required,
			Placeholder: field.Placeholder,
		})
		if control == "" {
			break
		}

		b.WriteString(RenderFormField(FormFieldParams{
			FieldID:     fieldID(field),
			Dependency:  dependencyJSON(field.Dependency),
			Label:       field.Label,
			Description: field.Description,
			Required:    field.Required,
			Control:     control,
		}, editing))
	}
	return b.String(), nil
}

func (a *AttributeFields) lookup(ctx context.Context, taxonomy string) (*swatches.Taxonomy, swatches.AttributeType, error) {
	tax, err := a.catalog.GetTaxonomy(ctx, taxonomy)
	if err != nil {
		return nil, nil, swatches.NewCatalogError("load taxonomy", err).WithDetail("taxonomy", taxonomy)
	}
	if tax == nil {
		return nil, nil, swatches.NewUnknownTaxonomyError(taxonomy)
	}
	attrType, ok := a.registry.AttributeType(tax.AttributeType)
	if !ok {
		return nil, nil, swatches.NewUnknownAttributeTypeError(tax.AttributeType).WithDetail("taxonomy", taxonomy)
	}
	return tax, attrType, nil
}

func (a *AttributeFields) sanitize(field swatches.FieldDef, raw string) string {
	if ft, ok := a.registry.FieldType(a.hooks.ApplyTypeName(field.Type)); ok {
		return ft.Sanitize(raw)
	}
	return sanitizeText(raw)
}

// submissionSchema builds a JSON schema requiring a non-empty string for every required field.
func submissionSchema(fields []swatches.FieldDef) (*jsonschema.Resolved, error) {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		prop := map[string]any{"type": "string"}
		if f.Required {
			prop["minLength"] = 1
			required = append(required, f.FormName())
		}
		properties[f.FormName()] = prop
	}
	schemaMap := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}

	raw, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission schema: %w", err)
	}
	return schema.Resolve(&jsonschema.ResolveOptions{})
}

func validateSubmission(fields []swatches.FieldDef, submission map[string]string) error {
	resolved, err := submissionSchema(fields)
	if err != nil {
		return swatches.NewInternalError("build submission schema", err)
	}
	instance := make(map[string]any, len(submission))
	for k, v := range submission {
		instance[k] = v
	}
	if err := resolved.Validate(instance); err == nil {
		return nil
	}
	return swatches.NewRequiredFieldsError(missingRequired(fields, submission))
}

func missingRequired(fields []swatches.FieldDef, submission map[string]string) []string {
	var missing []string
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if v, ok := submission[f.FormName()]; !ok || v == "" {
			missing = append(missing, f.FormName())
		}
	}
	return missing
}

func fieldID(f swatches.FieldDef) string {
	if f.ID == "" {
		return "0"
	}
	return f.ID
}

func dependencyJSON(dep map[string]string) string {
	if len(dep) == 0 {
		return ""
	}
	raw, err := json.Marshal(dep)
	if err != nil {
		return ""
	}
	return string(raw)
}
