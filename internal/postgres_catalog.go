package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/swatches"
)

// PostgresCatalog reads products, variations and attribute taxonomies from the catalog tables.
type PostgresCatalog struct {
	pool pgPool
}

var _ swatches.Catalog = (*PostgresCatalog)(nil)

func NewPostgresCatalog(pool pgPool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) GetProduct(ctx context.Context, id swatches.ProductID) (*swatches.Product, error) {
	var p swatches.Product
	var pid, parent int64
	var typ string
	err := c.pool.QueryRow(ctx,
		`SELECT id, parent_id, type, title, link FROM catalog_products WHERE id = $1`, int64(id),
	).Scan(&pid, &parent, &typ, &p.Title, &p.Link)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	p.ID = swatches.ProductID(pid)
	p.ParentID = swatches.ProductID(parent)
	p.Type = swatches.ProductType(typ)
	return &p, nil
}

func (c *PostgresCatalog) ListVariations(ctx context.Context, productID swatches.ProductID) ([]swatches.Variation, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, purchasable, stock_status, on_sale, image_url, image_srcset
		FROM catalog_variations WHERE parent_id = $1 ORDER BY menu_order, id`,
		int64(productID),
	)
	if err != nil {
		return nil, fmt.Errorf("list variations: %w", err)
	}

	var variations []swatches.Variation
	index := make(map[int64]int)
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		var url, srcset *string
		v := swatches.Variation{ParentID: productID}
		if err := rows.Scan(&id, &v.Purchasable, &v.StockStatus, &v.OnSale, &url, &srcset); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan variation: %w", err)
		}
		v.ID = swatches.ProductID(id)
		if url != nil {
			v.Thumbnail = &swatches.Image{URL: *url}
			if srcset != nil {
				v.Thumbnail.SrcSet = *srcset
			}
		}
		index[id] = len(variations)
		ids = append(ids, id)
		variations = append(variations, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variations: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	attrRows, err := c.pool.Query(ctx,
		`SELECT variation_id, taxonomy, slug FROM catalog_variation_attributes
		WHERE variation_id = ANY($1) ORDER BY variation_id, position, taxonomy`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list variation attributes: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var vid int64
		var a swatches.VariationAttribute
		if err := attrRows.Scan(&vid, &a.Taxonomy, &a.Slug); err != nil {
			return nil, fmt.Errorf("scan variation attribute: %w", err)
		}
		if i, ok := index[vid]; ok {
			variations[i].Attributes = append(variations[i].Attributes, a)
		}
	}
	if err := attrRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variation attributes: %w", err)
	}
	return variations, nil
}

func (c *PostgresCatalog) ProductTermOrder(ctx context.Context, productID swatches.ProductID, taxonomy string) ([]swatches.TermID, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT term_id FROM catalog_product_terms WHERE product_id = $1 AND taxonomy = $2 ORDER BY position, term_id`,
		int64(productID), taxonomy,
	)
	if err != nil {
		return nil, fmt.Errorf("list product terms: %w", err)
	}
	defer rows.Close()
	var ids []swatches.TermID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan term id: %w", err)
		}
		ids = append(ids, swatches.TermID(id))
	}
	return ids, rows.Err()
}

func (c *PostgresCatalog) GetTermBySlug(ctx context.Context, taxonomy, slug string) (*swatches.Term, error) {
	var t swatches.Term
	var id int64
	err := c.pool.QueryRow(ctx,
		`SELECT id, taxonomy, slug, name FROM catalog_terms WHERE taxonomy = $1 AND slug = $2`,
		taxonomy, slug,
	).Scan(&id, &t.Taxonomy, &t.Slug, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get term %s/%s: %w", taxonomy, slug, err)
	}
	t.ID = swatches.TermID(id)
	return &t, nil
}

func (c *PostgresCatalog) ListTerms(ctx context.Context, taxonomy string) ([]swatches.Term, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, taxonomy, slug, name FROM catalog_terms WHERE taxonomy = $1 ORDER BY id`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()
	var terms []swatches.Term
	for rows.Next() {
		var t swatches.Term
		var id int64
		if err := rows.Scan(&id, &t.Taxonomy, &t.Slug, &t.Name); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		t.ID = swatches.TermID(id)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

const taxonomyColumns = `id, name, label, singular_label, attribute_type`

func (c *PostgresCatalog) GetTaxonomy(ctx context.Context, name string) (*swatches.Taxonomy, error) {
	var t swatches.Taxonomy
	err := c.pool.QueryRow(ctx,
		`SELECT `+taxonomyColumns+` FROM catalog_taxonomies WHERE name = $1`, name,
	).Scan(&t.ID, &t.Name, &t.Label, &t.SingularLabel, &t.AttributeType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get taxonomy %s: %w", name, err)
	}
	return &t, nil
}

func (c *PostgresCatalog) ListTaxonomies(ctx context.Context) ([]swatches.Taxonomy, error) {
	rows, err := c.pool.Query(ctx, `SELECT `+taxonomyColumns+` FROM catalog_taxonomies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list taxonomies: %w", err)
	}
	defer rows.Close()
	var out []swatches.Taxonomy
	for rows.Next() {
		var t swatches.Taxonomy
		if err := rows.Scan(&t.ID, &t.Name, &t.Label, &t.SingularLabel, &t.AttributeType); err != nil {
			return nil, fmt.Errorf("scan taxonomy: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *PostgresCatalog) ListProductIDs(ctx context.Context) ([]swatches.ProductID, error) {
	rows, err := c.pool.Query(ctx, `SELECT id FROM catalog_products WHERE type <> 'variation' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProductIDs(rows)
}

func (c *PostgresCatalog) ListProductIDsByTaxonomy(ctx context.Context, taxonomy string) ([]swatches.ProductID, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT DISTINCT product_id FROM catalog_product_terms WHERE taxonomy = $1 ORDER BY product_id`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("list products by taxonomy: %w", err)
	}
	return collectProductIDs(rows)
}

func (c *PostgresCatalog) ResetAttributeType(ctx context.Context, typeKey, replacement string) (int, error) {
	tag, err := c.pool.Exec(ctx,
		`UPDATE catalog_taxonomies SET attribute_type = $2 WHERE attribute_type = $1`, typeKey, replacement)
	if err != nil {
		return 0, fmt.Errorf("reset attribute type %s: %w", typeKey, err)
	}
	return int(tag.RowsAffected()), nil
}
