package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/swatches"
	"github.com/lychee-technology/swatches/factory"
	"github.com/lychee-technology/swatches/internal"
)

type options struct {
	store        string
	products     int
	colors       int
	sizes        int
	chunkSize    int
	purge        bool
	seed         int64
	seedProvided bool
}

// catalogData is a generated catalog, loaded into either store.
type catalogData struct {
	taxonomies []swatches.Taxonomy
	terms      []swatches.Term
	products   []swatches.Product
	variations map[swatches.ProductID][]swatches.Variation
	order      map[swatches.ProductID]map[string][]swatches.TermID
	colorMeta  map[swatches.TermID]string
}

func main() {
	log.SetFlags(0)
	opts := parseFlags()
	ctx := context.Background()

	if !opts.seedProvided {
		log.Printf("[info] Using random seed %d", opts.seed)
	}
	data := generateCatalog(opts, rand.New(rand.NewSource(opts.seed)))

	var stores factory.Stores
	switch opts.store {
	case "memory":
		mem := internal.NewMemoryStore()
		loadMemory(ctx, mem, data)
		stores = factory.MemoryStores(mem)
	case "postgres":
		cfg, err := factory.LoadConfig("")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		pool, err := factory.NewPool(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("failed to create connection pool: %v", err)
		}
		defer pool.Close()
		if err := loadPostgres(ctx, pool, data, opts); err != nil {
			log.Fatalf("failed to seed catalog: %v", err)
		}
		stores = factory.PostgresStores(pool)
	default:
		log.Fatalf("unknown store %q", opts.store)
	}

	plugin, err := factory.New(ctx, swatches.DefaultConfig(), stores)
	if err != nil {
		log.Fatalf("failed to assemble services: %v", err)
	}

	started := time.Now()
	ran, err := plugin.Engine.RunAll(ctx)
	if err != nil {
		log.Fatalf("regeneration failed: %v", err)
	}
	if !ran {
		log.Fatalf("regeneration skipped, the run-lock is held")
	}
	elapsed := time.Since(started)

	progress, err := plugin.Engine.Progress(ctx)
	if err != nil {
		log.Fatalf("failed to read progress: %v", err)
	}

	variations := 0
	for _, vs := range data.variations {
		variations += len(vs)
	}
	log.Println("[success] Regeneration benchmark complete:")
	log.Printf("  - store: %s", opts.store)
	log.Printf("  - products: %d (%d variations)", progress.Max, variations)
	log.Printf("  - elapsed: %s", elapsed)
	if elapsed > 0 {
		log.Printf("  - throughput: %.1f products/s", float64(progress.Count)/elapsed.Seconds())
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.store, "store", "memory", "store backend (memory, postgres)")
	flag.IntVar(&opts.products, "products", 10000, "number of variable products to generate")
	flag.IntVar(&opts.colors, "colors", 6, "colors per product")
	flag.IntVar(&opts.sizes, "sizes", 4, "sizes per product")
	flag.IntVar(&opts.chunkSize, "chunk-size", 1000, "number of rows to copy per batch")
	flag.BoolVar(&opts.purge, "purge", false, "delete existing catalog and swatch rows before seeding")
	seed := flag.Int64("seed", 0, "random seed (0 uses current time)")

	flag.Parse()

	if *seed == 0 {
		opts.seed = time.Now().UnixNano()
	} else {
		opts.seed = *seed
		opts.seedProvided = true
	}
	if n := len(internal.Colors()); opts.colors > n {
		opts.colors = n
	}
	if opts.chunkSize < 100 {
		opts.chunkSize = 100
	}
	return opts
}

func generateCatalog(opts options, random *rand.Rand) catalogData {
	data := catalogData{
		taxonomies: []swatches.Taxonomy{
			{ID: 1, Name: "pa_color", Label: "Colors", SingularLabel: "Color", AttributeType: "color"},
			{ID: 2, Name: "pa_size", Label: "Sizes", SingularLabel: "Size", AttributeType: "select"},
		},
		variations: make(map[swatches.ProductID][]swatches.Variation, opts.products),
		order:      make(map[swatches.ProductID]map[string][]swatches.TermID, opts.products),
		colorMeta:  make(map[swatches.TermID]string),
	}

	palette := internal.Colors()
	colorTerms := make([]swatches.Term, 0, len(palette))
	nextTerm := swatches.TermID(1)
	for _, c := range palette {
		t := swatches.Term{ID: nextTerm, Taxonomy: "pa_color", Slug: c.Key, Name: c.Label}
		nextTerm++
		colorTerms = append(colorTerms, t)
		data.colorMeta[t.ID] = c.Key
	}
	sizeTerms := make([]swatches.Term, 0, opts.sizes)
	for i := 0; i < opts.sizes; i++ {
		slug := fmt.Sprintf("size-%d", i+1)
		sizeTerms = append(sizeTerms, swatches.Term{ID: nextTerm, Taxonomy: "pa_size", Slug: slug, Name: slug})
		nextTerm++
	}
	data.terms = append(append(data.terms, colorTerms...), sizeTerms...)

	nextID := swatches.ProductID(1)
	for i := 0; i < opts.products; i++ {
		parent := swatches.Product{ID: nextID, Type: swatches.ProductTypeVariable, Title: fmt.Sprintf("Product %d", i+1), Link: fmt.Sprintf("/product/%d", nextID)}
		nextID++
		data.products = append(data.products, parent)

		colors := random.Perm(len(colorTerms))[:opts.colors]
		colorOrder := make([]swatches.TermID, 0, len(colors))
		sizeOrder := make([]swatches.TermID, 0, len(sizeTerms))
		for _, s := range sizeTerms {
			sizeOrder = append(sizeOrder, s.ID)
		}
		for _, ci := range colors {
			color := colorTerms[ci]
			colorOrder = append(colorOrder, color.ID)
			for _, size := range sizeTerms {
				v := swatches.Variation{
					ID:          nextID,
					ParentID:    parent.ID,
					Purchasable: true,
					StockStatus: "instock",
					OnSale:      random.Intn(10) == 0,
					Attributes: []swatches.VariationAttribute{
						{Taxonomy: "pa_color", Slug: color.Slug},
						{Taxonomy: "pa_size", Slug: size.Slug},
					},
				}
				if random.Intn(4) == 0 {
					v.StockStatus = "outofstock"
				}
				if random.Intn(2) == 0 {
					v.Thumbnail = &swatches.Image{URL: fmt.Sprintf("/img/%d.jpg", nextID)}
				}
				nextID++
				data.variations[parent.ID] = append(data.variations[parent.ID], v)
			}
		}
		data.order[parent.ID] = map[string][]swatches.TermID{"pa_color": colorOrder, "pa_size": sizeOrder}
	}
	return data
}

func loadMemory(ctx context.Context, mem *internal.MemoryStore, data catalogData) {
	for _, t := range data.taxonomies {
		mem.AddTaxonomy(t)
	}
	// The memory store assigns term ids in insertion order, matching the generated ids.
	for _, t := range data.terms {
		mem.AddTerm(t.Taxonomy, t.Slug, t.Name)
	}
	for id, color := range data.colorMeta {
		_ = mem.SetTermMeta(ctx, id, "color", color)
	}
	for _, p := range data.products {
		mem.AddProduct(p, data.variations[p.ID]...)
		for tax, ids := range data.order[p.ID] {
			mem.SetProductTerms(p.ID, tax, ids...)
		}
	}
}

func loadPostgres(ctx context.Context, pool *pgxpool.Pool, data catalogData, opts options) error {
	if err := internal.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	if opts.purge {
		for _, table := range []string{"catalog_product_terms", "catalog_variation_attributes", "catalog_variations", "catalog_products", "catalog_terms", "catalog_taxonomies", "swatch_product_meta", "swatch_term_meta", "swatch_options"} {
			if _, err := pool.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}
		log.Printf("[info] Cleared existing catalog and swatch rows")
	}

	var taxRows, termRows, productRows, variationRows, attrRows, orderRows, metaRows [][]any
	for _, t := range data.taxonomies {
		taxRows = append(taxRows, []any{t.ID, t.Name, t.Label, t.SingularLabel, t.AttributeType})
	}
	for _, t := range data.terms {
		termRows = append(termRows, []any{int64(t.ID), t.Taxonomy, t.Slug, t.Name})
	}
	for id, color := range data.colorMeta {
		metaRows = append(metaRows, []any{int64(id), "color", color})
	}
	for _, p := range data.products {
		productRows = append(productRows, []any{int64(p.ID), int64(0), string(p.Type), p.Title, p.Link})
		for order, v := range data.variations[p.ID] {
			productRows = append(productRows, []any{int64(v.ID), int64(p.ID), string(swatches.ProductTypeVariation), p.Title, ""})
			var url, srcset *string
			if v.Thumbnail != nil {
				url, srcset = &v.Thumbnail.URL, &v.Thumbnail.SrcSet
			}
			variationRows = append(variationRows, []any{int64(v.ID), int64(p.ID), order, v.Purchasable, v.StockStatus, v.OnSale, url, srcset})
			for pos, a := range v.Attributes {
				attrRows = append(attrRows, []any{int64(v.ID), pos, a.Taxonomy, a.Slug})
			}
		}
		for tax, ids := range data.order[p.ID] {
			for pos, id := range ids {
				orderRows = append(orderRows, []any{int64(p.ID), tax, int64(id), pos})
			}
		}
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"catalog_taxonomies", []string{"id", "name", "label", "singular_label", "attribute_type"}, taxRows},
		{"catalog_terms", []string{"id", "taxonomy", "slug", "name"}, termRows},
		{"swatch_term_meta", []string{"term_id", "meta_key", "meta_value"}, metaRows},
		{"catalog_products", []string{"id", "parent_id", "type", "title", "link"}, productRows},
		{"catalog_variations", []string{"id", "parent_id", "menu_order", "purchasable", "stock_status", "on_sale", "image_url", "image_srcset"}, variationRows},
		{"catalog_variation_attributes", []string{"variation_id", "position", "taxonomy", "slug"}, attrRows},
		{"catalog_product_terms", []string{"product_id", "taxonomy", "term_id", "position"}, orderRows},
	}
	for _, c := range copies {
		if err := copyInChunks(ctx, pool, c.table, c.columns, c.rows, opts.chunkSize); err != nil {
			return err
		}
		log.Printf("[info] Copied %d rows into %s", len(c.rows), c.table)
	}
	return nil
}

func copyInChunks(ctx context.Context, pool *pgxpool.Pool, table string, columns []string, rows [][]any, chunkSize int) error {
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows[start:end])); err != nil {
			return fmt.Errorf("copy into %s: %w", table, err)
		}
	}
	return nil
}
