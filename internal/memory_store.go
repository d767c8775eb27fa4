package internal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lychee-technology/swatches"
)

// MemoryStore keeps catalog, meta, options and the work queue in process memory.
// It backs tests, the benchmark tool and single-process demos.
type MemoryStore struct {
	mu sync.RWMutex

	products     map[swatches.ProductID]swatches.Product
	variations   map[swatches.ProductID][]swatches.Variation
	taxonomies   map[string]swatches.Taxonomy
	terms        map[string][]swatches.Term
	productTerms map[swatches.ProductID]map[string][]swatches.TermID

	productMeta map[swatches.ProductID]map[string]string
	termMeta    map[swatches.TermID]map[string]string
	options     map[string]optionValue
	queue       []swatches.WorkItem

	nextTermID swatches.TermID
	nowFunc    func() time.Time
}

type optionValue struct {
	value     string
	updatedAt time.Time
}

var (
	_ swatches.Catalog          = (*MemoryStore)(nil)
	_ swatches.ProductMetaStore = (*MemoryStore)(nil)
	_ swatches.OptionStore      = (*MemoryStore)(nil)
	_ swatches.TermMetaStore    = (*MemoryStore)(nil)
	_ swatches.WorkQueue        = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     make(map[swatches.ProductID]swatches.Product),
		variations:   make(map[swatches.ProductID][]swatches.Variation),
		taxonomies:   make(map[string]swatches.Taxonomy),
		terms:        make(map[string][]swatches.Term),
		productTerms: make(map[swatches.ProductID]map[string][]swatches.TermID),
		productMeta:  make(map[swatches.ProductID]map[string]string),
		termMeta:     make(map[swatches.TermID]map[string]string),
		options:      make(map[string]optionValue),
		nextTermID:   1,
		nowFunc:      time.Now,
	}
}

// --- seeding -------------------------------------------------------------

// AddTaxonomy registers an attribute taxonomy.
func (s *MemoryStore) AddTaxonomy(t swatches.Taxonomy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = int64(len(s.taxonomies) + 1)
	}
	s.taxonomies[t.Name] = t
}

// AddTerm adds a term to a taxonomy and returns it with an assigned id.
func (s *MemoryStore) AddTerm(taxonomy, slug, name string) swatches.Term {
	s.mu.Lock()
	defer s.mu.Unlock()
	term := swatches.Term{ID: s.nextTermID, Taxonomy: taxonomy, Slug: slug, Name: name}
	s.nextTermID++
	s.terms[taxonomy] = append(s.terms[taxonomy], term)
	return term
}

// RemoveTerm deletes a term from its taxonomy.
func (s *MemoryStore) RemoveTerm(taxonomy, slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.terms[taxonomy]
	for i, t := range list {
		if t.Slug == slug {
			s.terms[taxonomy] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// AddProduct stores a product with its variations.
func (s *MemoryStore) AddProduct(p swatches.Product, variations ...swatches.Variation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	vs := make([]swatches.Variation, 0, len(variations))
	for _, v := range variations {
		v.ParentID = p.ID
		vs = append(vs, v)
		s.products[v.ID] = swatches.Product{ID: v.ID, ParentID: p.ID, Type: swatches.ProductTypeVariation, Title: p.Title}
	}
	s.variations[p.ID] = vs
}

// SetVariations replaces the variations of a product.
func (s *MemoryStore) SetVariations(productID swatches.ProductID, variations ...swatches.Variation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range variations {
		variations[i].ParentID = productID
	}
	s.variations[productID] = variations
}

// SetProductTerms sets the configured term order of a taxonomy on a product.
func (s *MemoryStore) SetProductTerms(productID swatches.ProductID, taxonomy string, ids ...swatches.TermID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.productTerms[productID] == nil {
		s.productTerms[productID] = make(map[string][]swatches.TermID)
	}
	s.productTerms[productID][taxonomy] = append([]swatches.TermID(nil), ids...)
}

// --- catalog -------------------------------------------------------------

func (s *MemoryStore) GetProduct(_ context.Context, id swatches.ProductID) (*swatches.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) ListVariations(_ context.Context, productID swatches.ProductID) ([]swatches.Variation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]swatches.Variation(nil), s.variations[productID]...), nil
}

func (s *MemoryStore) ProductTermOrder(_ context.Context, productID swatches.ProductID, taxonomy string) ([]swatches.TermID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]swatches.TermID(nil), s.productTerms[productID][taxonomy]...), nil
}

func (s *MemoryStore) GetTermBySlug(_ context.Context, taxonomy, slug string) (*swatches.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.terms[taxonomy] {
		if t.Slug == slug {
			term := t
			return &term, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListTerms(_ context.Context, taxonomy string) ([]swatches.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]swatches.Term(nil), s.terms[taxonomy]...), nil
}

func (s *MemoryStore) GetTaxonomy(_ context.Context, name string) (*swatches.Taxonomy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.taxonomies[name]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryStore) ListTaxonomies(_ context.Context) ([]swatches.Taxonomy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]swatches.Taxonomy, 0, len(s.taxonomies))
	for _, t := range s.taxonomies {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListProductIDs returns all top-level products, variations excluded.
func (s *MemoryStore) ListProductIDs(_ context.Context) ([]swatches.ProductID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]swatches.ProductID, 0, len(s.products))
	for id, p := range s.products {
		if p.Type == swatches.ProductTypeVariation {
			continue
		}
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}

func (s *MemoryStore) ListProductIDsByTaxonomy(_ context.Context, taxonomy string) ([]swatches.ProductID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []swatches.ProductID
	for id, byTax := range s.productTerms {
		if len(byTax[taxonomy]) > 0 {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

func (s *MemoryStore) ResetAttributeType(_ context.Context, typeKey, replacement string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for name, t := range s.taxonomies {
		if t.AttributeType == typeKey {
			t.AttributeType = replacement
			s.taxonomies[name] = t
			n++
		}
	}
	return n, nil
}

// --- product meta --------------------------------------------------------

func (s *MemoryStore) GetProductMeta(_ context.Context, id swatches.ProductID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.productMeta[id][key]
	return v, ok, nil
}

func (s *MemoryStore) SetProductMeta(_ context.Context, id swatches.ProductID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.productMeta[id] == nil {
		s.productMeta[id] = make(map[string]string)
	}
	s.productMeta[id][key] = value
	return nil
}

func (s *MemoryStore) DeleteProductMeta(_ context.Context, id swatches.ProductID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.productMeta[id], key)
	return nil
}

func (s *MemoryStore) ListProductIDsWithMeta(_ context.Context, key string) ([]swatches.ProductID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []swatches.ProductID
	for id, meta := range s.productMeta {
		if _, ok := meta[key]; ok {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

// --- options -------------------------------------------------------------

func (s *MemoryStore) GetOption(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.options[name]
	return v.value, ok, nil
}

func (s *MemoryStore) SetOption(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[name] = optionValue{value: value, updatedAt: s.nowFunc()}
	return nil
}

func (s *MemoryStore) DeleteOption(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.options, name)
	return nil
}

func (s *MemoryStore) TryAcquire(_ context.Context, name, owner string, now, staleBefore time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.options[name]; ok && flagSet(cur.value) && cur.updatedAt.After(staleBefore) {
		return false, nil
	}
	s.options[name] = optionValue{value: owner, updatedAt: now}
	return true, nil
}

func (s *MemoryStore) TouchOwned(_ context.Context, name, owner string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.options[name]
	if !ok || cur.value != owner {
		return false, nil
	}
	s.options[name] = optionValue{value: owner, updatedAt: now}
	return true, nil
}

func (s *MemoryStore) DeleteOwned(_ context.Context, name, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.options[name]
	if !ok || cur.value != owner {
		return false, nil
	}
	delete(s.options, name)
	return true, nil
}

func (s *MemoryStore) OptionUpdatedAt(_ context.Context, name string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.options[name]
	return v.updatedAt, ok, nil
}

// --- term meta -----------------------------------------------------------

func (s *MemoryStore) GetTermMeta(_ context.Context, termID swatches.TermID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.termMeta[termID][key]
	return v, ok, nil
}

func (s *MemoryStore) SetTermMeta(_ context.Context, termID swatches.TermID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.termMeta[termID] == nil {
		s.termMeta[termID] = make(map[string]string)
	}
	s.termMeta[termID][key] = value
	return nil
}

func (s *MemoryStore) DeleteTermMeta(_ context.Context, termID swatches.TermID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.termMeta[termID], key)
	return nil
}

func (s *MemoryStore) DeleteTermMetaByKey(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, meta := range s.termMeta {
		if _, ok := meta[key]; ok {
			delete(meta, key)
			n++
		}
	}
	return n, nil
}

// --- work queue ----------------------------------------------------------

func (s *MemoryStore) Enqueue(_ context.Context, item swatches.WorkItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pending := range s.queue {
		if pending.SameWork(item) {
			return false, nil
		}
	}
	s.queue = append(s.queue, item)
	return true, nil
}

func (s *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]swatches.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []swatches.WorkItem
	for _, item := range s.queue {
		if !item.RunAt.After(now) {
			due = append(due, item)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) Complete(_ context.Context, item swatches.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, pending := range s.queue {
		if pending.ID == item.ID {
			s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Reschedule(_ context.Context, item swatches.WorkItem, runAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, pending := range s.queue {
		if pending.ID == item.ID {
			s.queue[i].RunAt = runAt
			s.queue[i].Attempts++
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Pending(_ context.Context) ([]swatches.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]swatches.WorkItem(nil), s.queue...), nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	return nil
}

func sortIDs(ids []swatches.ProductID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
