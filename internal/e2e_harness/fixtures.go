package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seeded catalog ids.
const (
	VariableProductID = 100
	SimpleProductID   = 200
	RedTermID         = 1
	BlueTermID        = 2
)

type seedStmt struct {
	query string
	args  []any
}

// SeedCatalog inserts a color and a size attribute, one variable tee with three variations and
// one simple product.
func SeedCatalog(ctx context.Context, db *sql.DB) error {
	stmts := []seedStmt{
		{`INSERT INTO catalog_taxonomies (id, name, label, singular_label, attribute_type) VALUES ($1,$2,$3,$4,$5)`,
			[]any{1, "pa_color", "Colors", "Color", "color"}},
		{`INSERT INTO catalog_taxonomies (id, name, label, singular_label, attribute_type) VALUES ($1,$2,$3,$4,$5)`,
			[]any{2, "pa_size", "Sizes", "Size", "select"}},
		{`INSERT INTO catalog_terms (id, taxonomy, slug, name) VALUES ($1,$2,$3,$4)`, []any{RedTermID, "pa_color", "red", "Red"}},
		{`INSERT INTO catalog_terms (id, taxonomy, slug, name) VALUES ($1,$2,$3,$4)`, []any{BlueTermID, "pa_color", "blue", "Blue"}},
		{`INSERT INTO catalog_terms (id, taxonomy, slug, name) VALUES ($1,$2,$3,$4)`, []any{3, "pa_size", "s", "S"}},
		{`INSERT INTO catalog_terms (id, taxonomy, slug, name) VALUES ($1,$2,$3,$4)`, []any{4, "pa_size", "m", "M"}},
		{`INSERT INTO swatch_term_meta (term_id, meta_key, meta_value) VALUES ($1,$2,$3)`, []any{RedTermID, "color", "red"}},
		{`INSERT INTO swatch_term_meta (term_id, meta_key, meta_value) VALUES ($1,$2,$3)`, []any{BlueTermID, "color", "blue"}},
		{`INSERT INTO catalog_products (id, parent_id, type, title, link) VALUES ($1,$2,$3,$4,$5)`,
			[]any{VariableProductID, 0, "variable", "Tee", "/product/tee"}},
		{`INSERT INTO catalog_products (id, parent_id, type, title, link) VALUES ($1,$2,$3,$4,$5)`,
			[]any{SimpleProductID, 0, "simple", "Mug", "/product/mug"}},
	}

	variations := []struct {
		id      int
		stock   string
		color   string
		size    string
		imageID int
	}{
		{101, "instock", "red", "s", 1},
		{102, "outofstock", "blue", "m", 0},
		{103, "instock", "blue", "s", 0},
	}
	for i, v := range variations {
		var image any
		if v.imageID > 0 {
			image = fmt.Sprintf("/img/%d.jpg", v.imageID)
		}
		stmts = append(stmts,
			seedStmt{`INSERT INTO catalog_products (id, parent_id, type, title, link) VALUES ($1,$2,$3,$4,$5)`,
				[]any{v.id, VariableProductID, "variation", "Tee", ""}},
			seedStmt{`INSERT INTO catalog_variations (id, parent_id, menu_order, purchasable, stock_status, on_sale, image_url) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				[]any{v.id, VariableProductID, i, true, v.stock, false, image}},
			seedStmt{`INSERT INTO catalog_variation_attributes (variation_id, position, taxonomy, slug) VALUES ($1,$2,$3,$4)`,
				[]any{v.id, 0, "pa_color", v.color}},
			seedStmt{`INSERT INTO catalog_variation_attributes (variation_id, position, taxonomy, slug) VALUES ($1,$2,$3,$4)`,
				[]any{v.id, 1, "pa_size", v.size}},
		)
	}

	order := [][]any{
		{VariableProductID, "pa_color", BlueTermID, 0},
		{VariableProductID, "pa_color", RedTermID, 1},
		{VariableProductID, "pa_size", 3, 0},
		{VariableProductID, "pa_size", 4, 1},
	}
	for _, o := range order {
		stmts = append(stmts, seedStmt{`INSERT INTO catalog_product_terms (product_id, taxonomy, term_id, position) VALUES ($1,$2,$3,$4)`, o})
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}
	return nil
}

// DownloadObject copies an object from the S3 endpoint to a local file.
func DownloadObject(ctx context.Context, endpoint, bucket, key, path string) (int64, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(S3AccessKey, S3SecretKey, "")),
		config.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		return 0, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	n, err := manager.NewDownloader(client).Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("s3 download: %w", err)
	}
	return n, nil
}
