package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
)

const defaultParentID = "cf8384df-f073-477f-b2fb-e5643eeb974e"

type fakeCategories struct {
	mu    sync.Mutex
	items []models.Category
	seq   int
}

func newFakeCategories(items ...models.Category) *fakeCategories {
	return &fakeCategories{items: items}
}

func (f *fakeCategories) List(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Category(nil), f.items...), nil
}

func (f *fakeCategories) GetByID(_ context.Context, id string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeCategories) GetByNameAndParent(_ context.Context, name string, parentID *string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.Name == name && sameParent(c.ParentID, parentID) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) Create(ctx context.Context, name string, parentID *string) (*models.Category, bool, error) {
	if existing, _ := f.GetByNameAndParent(ctx, name, parentID); existing != nil {
		return existing, false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	c := models.Category{
		ID:        fmt.Sprintf("cat-%d", f.seq),
		Name:      name,
		Slug:      normalizers.Slug(name),
		ParentID:  parentID,
		CreatedAt: time.Now(),
	}
	f.items = append(f.items, c)
	return &c, true, nil
}

type fakeProducts struct {
	mu         sync.Mutex
	products   []models.Product
	variations []models.Variation
	seq        int
	creates    int
}

func (f *fakeProducts) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) FindByBrandModel(_ context.Context, brand, model string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if strings.EqualFold(p.Brand, brand) && strings.EqualFold(p.Model, model) {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) Create(_ context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	product.ID = f.nextID("prod")
	product.CreatedAt = time.Now()
	f.products = append(f.products, *product)
	return nil
}

func (f *fakeProducts) CreateWithVariations(ctx context.Context, product *models.Product, variations []models.Variation) ([]models.Variation, error) {
	if err := f.Create(ctx, product); err != nil {
		return nil, err
	}
	return f.AddVariations(ctx, product.ID, variations)
}

func (f *fakeProducts) GetVariation(_ context.Context, id string) (*models.Variation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.variations {
		if v.ID == id {
			v := v
			return &v, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) ListVariations(_ context.Context, productID string) ([]models.Variation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Variation
	for _, v := range f.variations {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeProducts) AddVariations(_ context.Context, productID string, variations []models.Variation) ([]models.Variation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := []models.Variation{}
	for _, v := range variations {
		duplicate := false
		for _, existing := range f.variations {
			if existing.ProductID == productID && existing.SKU == v.SKU {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		v.ID = f.nextID("var")
		v.ProductID = productID
		v.CreatedAt = time.Now()
		f.variations = append(f.variations, v)
		inserted = append(inserted, v)
	}
	return inserted, nil
}

type fakeWebsites struct {
	sites     []models.Website
	requested [][]string
}

func (f *fakeWebsites) ListAll(_ context.Context) ([]models.Website, error) {
	return f.sites, nil
}

func (f *fakeWebsites) ListByCategories(_ context.Context, categoryIDs []string) ([]models.Website, error) {
	f.requested = append(f.requested, categoryIDs)
	return f.sites, nil
}

func (f *fakeWebsites) GetByDomain(_ context.Context, domain string) (*models.Website, error) {
	for _, s := range f.sites {
		if s.Domain == domain {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

type fakeOffers struct {
	mu     sync.Mutex
	stored []models.Offer
	seq    int
}

func (f *fakeOffers) RecentForVariation(_ context.Context, variationID string, since time.Time) ([]models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Offer
	for _, o := range f.stored {
		if o.VariationID == variationID && !o.CreatedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) InsertBatch(_ context.Context, offers []models.Offer) ([]models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range offers {
		f.seq++
		offers[i].ID = fmt.Sprintf("offer-%d", f.seq)
		offers[i].CreatedAt = time.Now()
	}
	f.stored = append(f.stored, offers...)
	return offers, nil
}

type fakeAliases struct {
	mu    sync.Mutex
	items map[string]models.QueryAlias
}

func (f *fakeAliases) Get(_ context.Context, fp string) (*models.QueryAlias, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.items[fp]; ok {
		return &a, nil
	}
	return nil, nil
}

func (f *fakeAliases) Put(_ context.Context, a *models.QueryAlias) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = map[string]models.QueryAlias{}
	}
	if _, ok := f.items[a.Fingerprint]; !ok {
		f.items[a.Fingerprint] = *a
	}
	return nil
}

type fakeOracle struct {
	mu         sync.Mutex
	fields     models.ExtractedFields
	extractErr error
	discovered []models.DiscoveredVariation
	decisions  []models.CandidateDecision
	selectErr  error
	calls      map[string]int
}

func (f *fakeOracle) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakeOracle) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeOracle) ExtractFields(_ context.Context, _ string) (models.ExtractedFields, error) {
	f.count("extract")
	if f.extractErr != nil {
		return models.ExtractedFields{}, f.extractErr
	}
	fields := f.fields
	fields.Attributes = map[string]string{}
	for k, v := range f.fields.Attributes {
		fields.Attributes[k] = v
	}
	return fields, nil
}

func (f *fakeOracle) MatchCandidates(_ context.Context, _ models.MatchCandidate, _ []models.MatchCandidate) ([]models.CandidateDecision, error) {
	f.count("match")
	return f.decisions, nil
}

func (f *fakeOracle) DiscoverVariations(_ context.Context, _, _ string) ([]models.DiscoveredVariation, error) {
	f.count("discover")
	return f.discovered, nil
}

// SelectBestOffers picks the first listing shown for every source
func (f *fakeOracle) SelectBestOffers(_ context.Context, _, _ string, groups []models.SourceListings) ([]models.SelectedOffer, error) {
	f.count("select")
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	out := make([]models.SelectedOffer, 0, len(groups))
	for _, g := range groups {
		l := g.Listings[0]
		out = append(out, models.SelectedOffer{Source: g.Source, Title: l.Title, URL: l.URL, Price: l.Price, Currency: l.Currency})
	}
	return out, nil
}

type fakeCrawler struct {
	mu      sync.Mutex
	results []models.SourceListings
	err     error
	calls   int
	queries []string
}

func (f *fakeCrawler) SearchListings(_ context.Context, query string, _ []models.Website) ([]models.SourceListings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}
