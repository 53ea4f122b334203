package pricing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// OfferOracle picks the best listing per source for an item.
type OfferOracle interface {
	SelectBestOffers(ctx context.Context, item, currency string, groups []models.SourceListings) ([]models.SelectedOffer, error)
}

// Selector turns matched listings into at most one offer per source domain.
type Selector struct {
	log           ectologger.Logger
	oracle        OfferOracle
	normalizer    *Normalizer
	localCurrency string
}

func NewSelector(log ectologger.Logger, oracle OfferOracle, normalizer *Normalizer, localCurrency string) *Selector {
	return &Selector{
		log:           log,
		oracle:        oracle,
		normalizer:    normalizer,
		localCurrency: localCurrency,
	}
}

// Select normalizes prices, asks the oracle for one pick per source and
// validates every pick against the listings it was shown. The returned
// offers carry domain, price, currency, URL, availability and metadata;
// variation and website references are left to the caller. Any invalid pick
// fails the whole selection.
func (s *Selector) Select(ctx context.Context, item string, groups []models.SourceListings) ([]models.Offer, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.Selector.Select")
	defer span.End()

	priced := s.normalizer.Normalize(ctx, groups)
	if len(priced) == 0 {
		return []models.Offer{}, nil
	}

	sourceOf := func(p models.PricedListing) string { return p.Source }
	bySource := ectolinq.GroupWhere(priced, sourceOf)
	order := ectolinq.Distinct(ectolinq.Map(priced, sourceOf))

	request := ectolinq.Map(order, func(src string) models.SourceListings {
		return models.SourceListings{Source: src, Listings: ectolinq.Map(bySource[src], func(p models.PricedListing) models.Listing {
			l := p.Listing
			l.Price = p.Amount.StringFixed(2)
			l.Currency = NormalizeCurrency(l.Currency, s.localCurrency)
			return l
		})}
	})

	selected, err := s.oracle.SelectBestOffers(ctx, item, s.localCurrency, request)
	if err != nil {
		return nil, err
	}

	offers := make([]models.Offer, 0, len(selected))
	taken := make(map[string]bool)
	for _, pick := range selected {
		source := normalizers.Domain(pick.Source)
		candidates, ok := bySource[source]
		if !ok {
			return nil, errors.NewCollaboratorErrorf(errors.Oracle, "select_offers", "selected unknown source %q", pick.Source)
		}
		if taken[source] {
			s.log.WithContext(ctx).Warnf("ignoring duplicate selection for %s", source)
			continue
		}

		listing, err := matchPick(pick, source, candidates)
		if err != nil {
			return nil, errors.NewCollaboratorError(errors.Oracle, "select_offers", err)
		}
		taken[source] = true

		offers = append(offers, models.Offer{
			Domain:   source,
			Price:    listing.Amount,
			Currency: NormalizeCurrency(listing.Currency, s.localCurrency),
			URL:      ResolveURL(source, listing.URL),
			InStock:  InStock(listing.Availability),
			Metadata: database.NewJSONB(models.OfferMetadata{
				Item:           listing.Title,
				RawPrice:       listing.Price,
				SourceCurrency: strings.TrimSpace(listing.Currency),
				PriceAdjusted:  listing.Adjusted,
			}),
		})
	}

	s.log.WithContext(ctx).WithFields(map[string]any{
		"item":    item,
		"sources": len(order),
		"offers":  len(offers),
	}).Info("selected offers")
	return offers, nil
}

// matchPick finds the shown listing a pick refers to, by resolved URL first
// and then by title.
func matchPick(pick models.SelectedOffer, source string, candidates []models.PricedListing) (models.PricedListing, error) {
	if strings.TrimSpace(pick.URL) == "" {
		return models.PricedListing{}, fmt.Errorf("selection for %s has no url", source)
	}
	if _, err := ParsePrice(pick.Price); err != nil {
		return models.PricedListing{}, fmt.Errorf("selection for %s: %w", source, err)
	}

	pickURL := ResolveURL(source, pick.URL)
	if i := ectolinq.FindIndexWhere(candidates, func(c models.PricedListing) bool {
		return ResolveURL(source, c.URL) == pickURL
	}); i >= 0 {
		return candidates[i], nil
	}
	title := strings.TrimSpace(pick.Title)
	if i := ectolinq.FindIndexWhere(candidates, func(c models.PricedListing) bool {
		return title != "" && strings.EqualFold(strings.TrimSpace(c.Title), title)
	}); i >= 0 {
		return candidates[i], nil
	}
	return models.PricedListing{}, fmt.Errorf("selection for %s does not match any listing: %s", source, pick.URL)
}

// ResolveURL makes a page URL absolute against https://{domain}.
func ResolveURL(domain, pageURL string) string {
	pageURL = strings.TrimSpace(pageURL)
	base := &url.URL{Scheme: "https", Host: domain, Path: "/"}
	ref, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	if ref.Scheme == "" && ref.Host == "" && normalizers.Domain(strings.SplitN(pageURL, "/", 2)[0]) == domain {
		// host without a scheme, "shop.bg/item"
		return "https://" + pageURL
	}
	return base.ResolveReference(ref).String()
}
