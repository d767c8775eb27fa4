package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lychee-technology/swatches"
)

// Seeded catalog used across the package tests.
//
//	pa_color (color): red, blue, green   pa_size (select): s, m
//	100 Tee (variable)
//	    101 red/s  in stock, thumbnail /img/red.jpg
//	    102 blue/m out of stock
//	    103 blue/s in stock, on sale
//	200 Mug (simple)
const (
	teeID  swatches.ProductID = 100
	mugID  swatches.ProductID = 200
	redVar swatches.ProductID = 101
)

type seededCatalog struct {
	store *MemoryStore
	red   swatches.Term
	blue  swatches.Term
	green swatches.Term
	small swatches.Term
	med   swatches.Term
}

func seedCatalog() *seededCatalog {
	s := NewMemoryStore()
	s.AddTaxonomy(swatches.Taxonomy{ID: 1, Name: "pa_color", Label: "Colors", SingularLabel: "Color", AttributeType: "color"})
	s.AddTaxonomy(swatches.Taxonomy{ID: 2, Name: "pa_size", Label: "Sizes", SingularLabel: "Size", AttributeType: "select"})

	c := &seededCatalog{store: s}
	c.red = s.AddTerm("pa_color", "red", "Red")
	c.blue = s.AddTerm("pa_color", "blue", "Blue")
	c.green = s.AddTerm("pa_color", "green", "Green")
	c.small = s.AddTerm("pa_size", "s", "S")
	c.med = s.AddTerm("pa_size", "m", "M")

	ctx := context.Background()
	_ = s.SetTermMeta(ctx, c.red.ID, "color", "red")
	_ = s.SetTermMeta(ctx, c.blue.ID, "color", "blue")
	_ = s.SetTermMeta(ctx, c.green.ID, "color", "green")

	s.AddProduct(
		swatches.Product{ID: teeID, Type: swatches.ProductTypeVariable, Title: "Tee", Link: "/product/tee"},
		variation(101, swatches.StockStatusInStock, false, &swatches.Image{URL: "/img/red.jpg", SrcSet: "/img/red-2x.jpg 2x"}, "red", "s"),
		variation(102, swatches.StockStatusOutOfStock, false, nil, "blue", "m"),
		variation(103, swatches.StockStatusInStock, true, nil, "blue", "s"),
	)
	s.SetProductTerms(teeID, "pa_color", c.blue.ID, c.red.ID)
	s.SetProductTerms(teeID, "pa_size", c.small.ID, c.med.ID)
	s.AddProduct(swatches.Product{ID: mugID, Type: swatches.ProductTypeSimple, Title: "Mug", Link: "/product/mug"})
	return c
}

func variation(id swatches.ProductID, stock string, onSale bool, thumb *swatches.Image, color, size string) swatches.Variation {
	return swatches.Variation{
		ID:          id,
		Purchasable: true,
		StockStatus: stock,
		OnSale:      onSale,
		Thumbnail:   thumb,
		Attributes: []swatches.VariationAttribute{
			{Taxonomy: "pa_color", Slug: color},
			{Taxonomy: "pa_size", Slug: size},
		},
	}
}

// pipeline is the builder stack over a seeded memory store.
type pipeline struct {
	*seededCatalog
	registry *Registry
	cache    *SwatchCache
	resolver *ValueResolver
	builder  *ProductSwatchBuilder
}

func newPipeline(hooks *swatches.Hooks) *pipeline {
	c := seedCatalog()
	registry := NewDefaultRegistry()
	cache := NewSwatchCache(c.store)
	resolver := NewValueResolver(registry, c.store)
	builder := NewProductSwatchBuilder(c.store, cache, registry, resolver, NewRenderer(hooks), hooks, nil)
	return &pipeline{seededCatalog: c, registry: registry, cache: cache, resolver: resolver, builder: builder}
}

var errBoom = errors.New("boom")

// failingTermMeta fails every read.
type failingTermMeta struct{}

func (failingTermMeta) GetTermMeta(context.Context, swatches.TermID, string) (string, bool, error) {
	return "", false, errBoom
}

// fakePersister records persisted ids and fails for the ids in fail.
type fakePersister struct {
	mu        sync.Mutex
	persisted []swatches.ProductID
	deleted   []swatches.ProductID
	fail      map[swatches.ProductID]bool
	onPersist func(id swatches.ProductID)
}

func (p *fakePersister) Persist(_ context.Context, id swatches.ProductID) error {
	if p.onPersist != nil {
		p.onPersist(id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[id] {
		return errBoom
	}
	p.persisted = append(p.persisted, id)
	return nil
}

func (p *fakePersister) Delete(_ context.Context, id swatches.ProductID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return nil
}

// recordingOptions logs every option write on top of a memory store.
type recordingOptions struct {
	*MemoryStore
	mu    sync.Mutex
	calls []string
}

func (r *recordingOptions) SetOption(ctx context.Context, name, value string) error {
	r.mu.Lock()
	r.calls = append(r.calls, "set "+name+"="+value)
	r.mu.Unlock()
	return r.MemoryStore.SetOption(ctx, name, value)
}

func (r *recordingOptions) DeleteOption(ctx context.Context, name string) error {
	r.mu.Lock()
	r.calls = append(r.calls, "delete "+name)
	r.mu.Unlock()
	return r.MemoryStore.DeleteOption(ctx, name)
}

func (r *recordingOptions) DeleteOwned(ctx context.Context, name, owner string) (bool, error) {
	r.mu.Lock()
	r.calls = append(r.calls, "delete "+name)
	r.mu.Unlock()
	return r.MemoryStore.DeleteOwned(ctx, name, owner)
}

func (r *recordingOptions) indexOf(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, c := range r.calls {
		if c == call {
			idx = i
		}
	}
	return idx
}

// fakeService is a RegenerationService driven by canned results.
type fakeService struct {
	mu         sync.Mutex
	calls      []string
	busy       bool
	err        error
	deleted    int
	progress   swatches.Progress
	deleteErr  error
	deleteSeen bool
}

func (f *fakeService) record(call string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.err != nil {
		return true, f.err
	}
	return !f.busy, nil
}

func (f *fakeService) RunAll(context.Context) (bool, error) { return f.record("all") }

func (f *fakeService) RunForAttribute(_ context.Context, taxonomy string) (bool, error) {
	return f.record("attribute:" + taxonomy)
}

func (f *fakeService) DeleteAll(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteSeen = true
	return f.deleted, f.deleteErr
}

func (f *fakeService) Progress(context.Context) (swatches.Progress, error) { return f.progress, nil }

// fakeSingleScheduler records ScheduleSingle calls.
type fakeSingleScheduler struct {
	items []swatches.WorkItem
	err   error
}

func (f *fakeSingleScheduler) ScheduleSingle(_ context.Context, item swatches.WorkItem) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.items = append(f.items, item)
	return true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
