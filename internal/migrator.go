package internal

import (
	"context"

	"github.com/lychee-technology/swatches"
	"go.uber.org/zap"
)

// termFieldSaver stores submitted field values of a term.
type termFieldSaver interface {
	Save(ctx context.Context, taxonomy string, termID swatches.TermID, submission map[string]string) error
}

// MigrationResult counts migrated and skipped terms.
type MigrationResult struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
}

// Migrator imports term colors stored by a legacy swatch plugin.
type Migrator struct {
	catalog  swatches.Catalog
	termMeta swatches.TermMetaReader
	fields   termFieldSaver
	logger   *zap.Logger
}

func NewMigrator(catalog swatches.Catalog, termMeta swatches.TermMetaReader, fields termFieldSaver, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{catalog: catalog, termMeta: termMeta, fields: fields, logger: logger}
}

// MigrateLegacyColors copies the legacy color of every term in color taxonomies into the color field.
// Terms without a usable legacy value are skipped.
func (m *Migrator) MigrateLegacyColors(ctx context.Context) (MigrationResult, error) {
	var res MigrationResult
	taxonomies, err := m.catalog.ListTaxonomies(ctx)
	if err != nil {
		return res, swatches.NewCatalogError("list taxonomies", err)
	}
	colorField := ColorAttributeType{}.Fields()[0]

	for _, tax := range taxonomies {
		if tax.AttributeType != colorTypeName {
			continue
		}
		terms, err := m.catalog.ListTerms(ctx, tax.Name)
		if err != nil {
			return res, swatches.NewCatalogError("list terms", err).WithDetail("taxonomy", tax.Name)
		}
		for _, term := range terms {
			legacy, _, err := m.termMeta.GetTermMeta(ctx, term.ID, swatches.LegacyColorTermMetaKey)
			if err != nil {
				return res, swatches.NewStorageError("read legacy term value", err).WithDetail("term_id", term.ID)
			}
			err = m.fields.Save(ctx, tax.Name, term.ID, map[string]string{colorField.FormName(): legacy})
			if swatches.IsValidationError(err) {
				res.Skipped++
				continue
			}
			if err != nil {
				return res, err
			}
			res.Migrated++
		}
	}
	m.logger.Info("legacy colors migrated", zap.Int("migrated", res.Migrated), zap.Int("skipped", res.Skipped))
	return res, nil
}
