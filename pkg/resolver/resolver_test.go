package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/pricing"
	"github.com/Ramsey-B/sage/pkg/translator"
)

type harness struct {
	resolver   *Resolver
	categories *fakeCategories
	products   *fakeProducts
	websites   *fakeWebsites
	offers     *fakeOffers
	aliases    *fakeAliases
	oracle     *fakeOracle
	crawler    *fakeCrawler
}

func getTestLogger(t *testing.T) ectologger.Logger {
	zapLogger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func strPtr(s string) *string { return &s }

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := getTestLogger(t)

	h := &harness{
		categories: newFakeCategories(models.Category{ID: defaultParentID, Name: "Other", Slug: "other"}),
		products:   &fakeProducts{},
		websites: &fakeWebsites{sites: []models.Website{
			{ID: "w-1", Domain: "shop.bg", SearchURL: "https://shop.bg/search?q={query}", SearchPattern: models.SearchPatternBrandModel},
			{ID: "w-2", Domain: "store.bg", SearchURL: "https://store.bg/s/{query}"},
		}},
		offers:  &fakeOffers{},
		aliases: &fakeAliases{},
		oracle: &fakeOracle{
			fields: models.ExtractedFields{
				Brand:      "Apple",
				Model:      "iPhone 16",
				Category:   "Smartphones",
				Attributes: map[string]string{"Storage": "128GB"},
			},
			discovered: []models.DiscoveredVariation{
				{Label: "Apple iPhone 16 128GB", Differentiator: "128GB"},
				{Label: "Apple iPhone 16 256GB", Differentiator: "256GB"},
			},
		},
		crawler: &fakeCrawler{results: []models.SourceListings{
			{Source: "shop.bg", Listings: []models.Listing{
				{Title: "Apple iPhone 16 128GB Black", Price: "1499.00", URL: "https://shop.bg/p/iphone-16-128"},
				{Title: "Samsung Galaxy S24 256GB", Price: "1299.00", URL: "https://shop.bg/p/galaxy-s24"},
			}},
			{Source: "store.bg", Listings: []models.Listing{
				{Title: "Apple iPhone 16 (128 GB) Black", Price: "1519,90", URL: "/apple-iphone-16-128gb/"},
			}},
		}},
	}

	cfg := matching.DefaultConfig()
	h.resolver = New(log, DefaultConfig(), Dependencies{
		Categories:      h.categories,
		Products:        h.products,
		Websites:        h.websites,
		Offers:          h.offers,
		Aliases:         h.aliases,
		Oracle:          h.oracle,
		Crawler:         h.crawler,
		Translator:      translator.Passthrough{},
		CategoryMatcher: matching.NewCategoryMatcher(cfg),
		Variations:      matching.NewVariationResolver(log, cfg, h.oracle),
		Selector:        pricing.NewSelector(log, h.oracle, pricing.NewNormalizer(log, 10), "BGN"),
	})
	return h
}

func TestResolver_Lookup_CreatesCatalogEntriesAndOffers(t *testing.T) {
	h := newHarness(t)

	result, err := h.resolver.Lookup(context.Background(), models.LookupRequest{RequestID: "r-1", Query: "Apple iPhone 16 128GB"})
	require.NoError(t, err)
	require.NotNil(t, result.Identity)

	identity := result.Identity
	assert.True(t, identity.Created)
	assert.Equal(t, string(matching.TierAttribute), identity.MatchTier)
	assert.Equal(t, "apple-iphone16-128gb", identity.Variation.SKU)
	assert.Equal(t, "128gb", identity.Variation.VariationKey)
	require.NotNil(t, identity.Category)
	assert.Equal(t, "Smartphones", identity.Category.Name)
	assert.Equal(t, defaultParentID, *identity.Category.ParentID)

	// the whole discovered batch is stored with the product
	assert.Len(t, h.products.variations, 2)

	assert.False(t, result.Cached)
	require.Len(t, result.Offers, 2)
	for _, o := range result.Offers {
		assert.Equal(t, identity.Variation.ID, o.VariationID)
		assert.NotEmpty(t, o.WebsiteID)
		assert.Equal(t, "BGN", o.Currency)
	}
	assert.Equal(t, "https://store.bg/apple-iphone-16-128gb/", result.Offers[1].URL)
	assert.True(t, decimal.RequireFromString("1519.90").Equal(result.Offers[1].Price))

	// websites are looked up by the category and its ancestors
	require.Len(t, h.websites.requested, 1)
	assert.Equal(t, []string{identity.Category.ID, defaultParentID}, h.websites.requested[0])
}

func TestResolver_Lookup_IsIdempotentWithinRecencyWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.resolver.Lookup(ctx, models.LookupRequest{Query: "Apple iPhone 16 128GB"})
	require.NoError(t, err)
	oracleCalls := h.oracle.total()
	require.Equal(t, 1, h.crawler.calls)

	second, err := h.resolver.Lookup(ctx, models.LookupRequest{Query: "apple iphone 16, 128gb"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.crawler.calls, "crawler must not run again")
	assert.Equal(t, oracleCalls, h.oracle.total(), "oracle must not run again")
	assert.True(t, second.Cached)
	assert.Equal(t, TierAlias, second.Identity.MatchTier)
	assert.Equal(t, first.Identity.Variation.ID, second.Identity.Variation.ID)

	firstIDs := []string{first.Offers[0].ID, first.Offers[1].ID}
	secondIDs := []string{second.Offers[0].ID, second.Offers[1].ID}
	assert.ElementsMatch(t, firstIDs, secondIDs)
	assert.Equal(t, 1, h.products.creates)
}

func TestResolver_ResolveIdentity_RejectsBlankQuery(t *testing.T) {
	h := newHarness(t)

	for _, q := range []string{"", "   ", "?!"} {
		_, err := h.resolver.ResolveIdentity(context.Background(), q)
		require.Error(t, err)
		assert.True(t, sageerrors.IsInputError(err))
	}
	assert.Zero(t, h.oracle.total())
}

func TestResolver_ResolveIdentity_MatchesExistingVariationByAttributes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := &models.Product{Name: "Apple iPhone 16", Brand: "Apple", Model: "iPhone 16"}
	variations := buildVariations("Apple", "iPhone 16", []models.DiscoveredVariation{
		{Label: "Apple iPhone 16 128GB", Differentiator: "128GB"},
		{Label: "Apple iPhone 16 256GB", Differentiator: "256GB"},
	})
	inserted, err := h.products.CreateWithVariations(ctx, p, variations)
	require.NoError(t, err)
	h.products.creates = 0

	h.oracle.fields.Attributes = map[string]string{"storage": "128gb", "color": "black"}

	identity, err := h.resolver.ResolveIdentity(ctx, "Apple iPhone 16 128GB черен")
	require.NoError(t, err)

	assert.Equal(t, inserted[0].ID, identity.Variation.ID)
	assert.Equal(t, string(matching.TierAttribute), identity.MatchTier)
	assert.False(t, identity.Created)
	assert.Zero(t, h.oracle.calls["discover"])
	assert.Zero(t, h.products.creates)
}

func TestResolver_ResolveIdentity_DiscoversMissingVariation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := &models.Product{Name: "Apple iPhone 16", Brand: "Apple", Model: "iPhone 16"}
	_, err := h.products.CreateWithVariations(ctx, p, buildVariations("Apple", "iPhone 16", []models.DiscoveredVariation{
		{Label: "Apple iPhone 16 128GB", Differentiator: "128GB"},
	}))
	require.NoError(t, err)

	h.oracle.fields.Attributes = map[string]string{"storage": "512GB"}
	h.oracle.discovered = []models.DiscoveredVariation{
		{Label: "Apple iPhone 16 128GB", Differentiator: "128GB"},
		{Label: "Apple iPhone 16 512GB", Differentiator: "512GB"},
	}

	identity, err := h.resolver.ResolveIdentity(ctx, "Apple iPhone 16 512GB")
	require.NoError(t, err)

	assert.Equal(t, "apple-iphone16-512gb", identity.Variation.SKU)
	assert.True(t, identity.Created)
	assert.Equal(t, 1, h.oracle.calls["match"])
	assert.Len(t, h.products.variations, 2, "the known 128GB variation is not inserted again")
}

func TestResolver_ResolveIdentity_FallsBackToExtractedAttributes(t *testing.T) {
	h := newHarness(t)
	h.oracle.fields.Attributes = map[string]string{"storage": "1TB", "color": "Pink"}

	identity, err := h.resolver.ResolveIdentity(context.Background(), "Apple iPhone 16 1TB Pink")
	require.NoError(t, err)

	assert.Equal(t, TierCreated, identity.MatchTier)
	assert.Equal(t, "apple-iphone16-pink-1tb", identity.Variation.SKU)
	assert.Equal(t, "Apple iPhone 16 Pink 1TB", identity.Variation.Label)
	assert.Len(t, h.products.variations, 3)
}

func TestResolver_ResolveIdentity_OracleFailure(t *testing.T) {
	h := newHarness(t)
	h.oracle.extractErr = errors.New("timeout")

	_, err := h.resolver.ResolveIdentity(context.Background(), "Apple iPhone 16")
	require.Error(t, err)
	assert.True(t, sageerrors.IsCollaboratorError(err))
	assert.Empty(t, h.products.products)
	assert.Empty(t, h.aliases.items)
}

func TestResolver_ResolveCategory(t *testing.T) {
	electronics := models.Category{ID: "c-1", Name: "Electronics", ParentID: nil}
	phones := models.Category{ID: "c-2", Name: "Phones", ParentID: strPtr("c-1")}
	smartphones := models.Category{ID: "c-3", Name: "Smartphones", ParentID: strPtr("c-2")}

	t.Run("name match reuses existing node", func(t *testing.T) {
		h := newHarness(t)
		h.categories.items = append(h.categories.items, electronics, phones, smartphones)

		node, created, err := h.resolver.ResolveCategory(context.Background(), "smartphones")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "c-3", node.ID)
		assert.Equal(t, "Electronics > Phones > Smartphones", node.Path)
		assert.Len(t, h.categories.items, 4)
	})

	t.Run("singular label reuses plural node", func(t *testing.T) {
		h := newHarness(t)
		h.categories.items = append(h.categories.items, electronics, phones, smartphones)

		node, created, err := h.resolver.ResolveCategory(context.Background(), "Phone")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "c-2", node.ID)
		assert.Len(t, h.categories.items, 4)
	})

	t.Run("unmatched path creates chain under default parent", func(t *testing.T) {
		h := newHarness(t)
		h.categories.items = append(h.categories.items, electronics, phones, smartphones)

		node, created, err := h.resolver.ResolveCategory(context.Background(), "Gadgets > Obscure Widget")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Obscure Widget", node.Name)
		assert.Equal(t, "Other > Gadgets > Obscure Widget", node.Path)

		gadgets, err := h.categories.GetByID(context.Background(), *node.ParentID)
		require.NoError(t, err)
		require.NotNil(t, gadgets)
		assert.Equal(t, "Gadgets", gadgets.Name)
		assert.Equal(t, defaultParentID, *gadgets.ParentID)
	})

	t.Run("second resolution reuses created chain", func(t *testing.T) {
		h := newHarness(t)

		first, _, err := h.resolver.ResolveCategory(context.Background(), "Gadgets > Obscure Widget")
		require.NoError(t, err)
		count := len(h.categories.items)

		second, _, err := h.resolver.ResolveCategory(context.Background(), "Gadgets > Obscure Widget")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, h.categories.items, count)
	})

	t.Run("missing default parent falls back to root", func(t *testing.T) {
		h := newHarness(t)
		h.categories.items = nil

		node, created, err := h.resolver.ResolveCategory(context.Background(), "Gadgets")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Other > Gadgets", node.Path)
	})
}

func TestResolver_FindOffers_SelectionFailureStoresNothing(t *testing.T) {
	h := newHarness(t)
	h.oracle.selectErr = sageerrors.NewCollaboratorErrorf(sageerrors.Oracle, "select_offers", "unparseable")

	_, err := h.resolver.Lookup(context.Background(), models.LookupRequest{Query: "Apple iPhone 16 128GB"})
	require.Error(t, err)
	assert.True(t, sageerrors.IsCollaboratorError(err))
	assert.Empty(t, h.offers.stored)
}

func TestResolver_FindOffers_CapacityErrorIsReported(t *testing.T) {
	h := newHarness(t)
	h.crawler.err = sageerrors.NewCapacityError(5, "30s")

	_, err := h.resolver.Lookup(context.Background(), models.LookupRequest{Query: "Apple iPhone 16 128GB"})
	require.Error(t, err)
	assert.Equal(t, sageerrors.KindCapacity, sageerrors.KindOf(err))
	assert.Empty(t, h.offers.stored)
}

func TestResolver_FindOffers_DropsListingsForOtherProducts(t *testing.T) {
	h := newHarness(t)
	h.crawler.results = []models.SourceListings{
		{Source: "shop.bg", Listings: []models.Listing{
			{Title: "Samsung Galaxy S24 256GB", Price: "1299.00", URL: "https://shop.bg/p/galaxy-s24"},
		}},
	}

	result, err := h.resolver.Lookup(context.Background(), models.LookupRequest{Query: "Apple iPhone 16 128GB"})
	require.NoError(t, err)
	assert.Empty(t, result.Offers)
	assert.Zero(t, h.oracle.calls["select"])
	assert.Empty(t, h.offers.stored)
}

func TestResolver_FindOffersForVariation_Unknown(t *testing.T) {
	h := newHarness(t)

	resp, err := h.resolver.FindOffersForVariation(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{name: "label carries model", label: "Apple iPhone 16 128GB", want: "Apple iPhone 16 128GB"},
		{name: "bare differentiator label", label: "128GB", want: "Apple iPhone 16 128GB"},
		{name: "no label", label: "", want: "Apple iPhone 16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &models.Identity{
				Product:   models.Product{Brand: "Apple", Model: "iPhone 16"},
				Variation: models.Variation{Label: tt.label},
			}
			assert.Equal(t, tt.want, searchQuery(identity))
		})
	}
}

func TestFindBySKU(t *testing.T) {
	variations := []models.Variation{{ID: "v-1", SKU: "apple-iphone-16-128gb"}, {ID: "v-2", SKU: "apple-iphone-16-256gb"}}

	found := findBySKU("apple-iphone-16-256gb", variations)
	require.NotNil(t, found)
	assert.Equal(t, "v-2", found.ID)
	found.Label = "changed"
	assert.Equal(t, "changed", variations[1].Label, "returns a pointer into the slice")

	assert.Nil(t, findBySKU("apple-iphone-16-512gb", variations))
	assert.True(t, isIn("v-1", variations))
	assert.False(t, isIn("v-3", variations))
	assert.False(t, isIn("v-1", nil))
}
