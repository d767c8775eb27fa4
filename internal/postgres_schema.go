package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type schemaExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schemaStatements create the swatch state tables and the catalog read tables.
var schemaStatements = []struct {
	name string
	ddl  string
}{
	{"swatch_options", `CREATE TABLE IF NOT EXISTS swatch_options (
		name       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"swatch_product_meta", `CREATE TABLE IF NOT EXISTS swatch_product_meta (
		product_id BIGINT NOT NULL,
		meta_key   TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (product_id, meta_key)
	)`},
	{"swatch_product_meta_key_idx", `CREATE INDEX IF NOT EXISTS swatch_product_meta_key_idx ON swatch_product_meta (meta_key)`},
	{"swatch_term_meta", `CREATE TABLE IF NOT EXISTS swatch_term_meta (
		term_id    BIGINT NOT NULL,
		meta_key   TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (term_id, meta_key)
	)`},
	{"swatch_work_items", `CREATE TABLE IF NOT EXISTS swatch_work_items (
		id       UUID PRIMARY KEY,
		kind     TEXT NOT NULL,
		taxonomy TEXT NOT NULL DEFAULT '',
		run_at   TIMESTAMPTZ NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0
	)`},
	{"swatch_work_items_unique_idx", `CREATE UNIQUE INDEX IF NOT EXISTS swatch_work_items_unique_idx ON swatch_work_items (kind, taxonomy)`},
	{"catalog_products", `CREATE TABLE IF NOT EXISTS catalog_products (
		id        BIGINT PRIMARY KEY,
		parent_id BIGINT NOT NULL DEFAULT 0,
		type      TEXT NOT NULL,
		title     TEXT NOT NULL DEFAULT '',
		link      TEXT NOT NULL DEFAULT ''
	)`},
	{"catalog_variations", `CREATE TABLE IF NOT EXISTS catalog_variations (
		id             BIGINT PRIMARY KEY,
		parent_id      BIGINT NOT NULL,
		menu_order     INTEGER NOT NULL DEFAULT 0,
		purchasable    BOOLEAN NOT NULL DEFAULT true,
		stock_status   TEXT NOT NULL DEFAULT 'instock',
		on_sale        BOOLEAN NOT NULL DEFAULT false,
		image_url      TEXT,
		image_srcset   TEXT
	)`},
	{"catalog_variations_parent_idx", `CREATE INDEX IF NOT EXISTS catalog_variations_parent_idx ON catalog_variations (parent_id, menu_order, id)`},
	{"catalog_variation_attributes", `CREATE TABLE IF NOT EXISTS catalog_variation_attributes (
		variation_id BIGINT NOT NULL,
		position     INTEGER NOT NULL DEFAULT 0,
		taxonomy     TEXT NOT NULL,
		slug         TEXT NOT NULL,
		PRIMARY KEY (variation_id, taxonomy)
	)`},
	{"catalog_taxonomies", `CREATE TABLE IF NOT EXISTS catalog_taxonomies (
		id             BIGINT PRIMARY KEY,
		name           TEXT UNIQUE NOT NULL,
		label          TEXT NOT NULL DEFAULT '',
		singular_label TEXT NOT NULL DEFAULT '',
		attribute_type TEXT NOT NULL DEFAULT 'select'
	)`},
	{"catalog_terms", `CREATE TABLE IF NOT EXISTS catalog_terms (
		id       BIGINT PRIMARY KEY,
		taxonomy TEXT NOT NULL,
		slug     TEXT NOT NULL,
		name     TEXT NOT NULL DEFAULT '',
		UNIQUE (taxonomy, slug)
	)`},
	{"catalog_product_terms", `CREATE TABLE IF NOT EXISTS catalog_product_terms (
		product_id BIGINT NOT NULL,
		taxonomy   TEXT NOT NULL,
		term_id    BIGINT NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, taxonomy, term_id)
	)`},
	{"catalog_product_terms_taxonomy_idx", `CREATE INDEX IF NOT EXISTS catalog_product_terms_taxonomy_idx ON catalog_product_terms (taxonomy, product_id)`},
}

// EnsureSchema creates every table and index that does not exist yet.
func EnsureSchema(ctx context.Context, db schemaExecer) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt.ddl); err != nil {
			return fmt.Errorf("ensure %s: %w", stmt.name, err)
		}
	}
	return nil
}

// SchemaObjectNames lists the created tables and indexes in creation order.
func SchemaObjectNames() []string {
	names := make([]string, 0, len(schemaStatements))
	for _, stmt := range schemaStatements {
		names = append(names, stmt.name)
	}
	return names
}

// SchemaStatements returns the DDL in creation order, for database/sql bootstraps.
func SchemaStatements() []string {
	out := make([]string, 0, len(schemaStatements))
	for _, stmt := range schemaStatements {
		out = append(out, stmt.ddl)
	}
	return out
}
