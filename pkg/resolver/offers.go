package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const crawlLockPrefix = "crawl:"

// FindOffers answers "where is this variation sold today?". Offers stored
// within the recency window are returned as they are, with cached set, and
// nothing is crawled. Otherwise the variation's websites are crawled, the
// listings that refer to it kept, one offer per site selected, and the
// selection stored. A failed selection stores nothing.
func (r *Resolver) FindOffers(ctx context.Context, identity *models.Identity) ([]models.Offer, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.FindOffers")
	defer span.End()

	variationID := identity.Variation.ID
	log := r.log.WithContext(ctx).WithFields(map[string]any{
		"variation_id": variationID,
	})

	recent, err := r.recentOffers(ctx, variationID)
	if err != nil {
		return nil, false, err
	}
	if len(recent) > 0 {
		return recent, true, nil
	}

	if r.Locker != nil {
		lock, err := r.Locker.AcquireWait(ctx, crawlLockPrefix+variationID, r.cfg.CrawlLockTTL, r.cfg.CrawlLockWait)
		switch {
		case err == nil:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redis.ErrLockNotHeld) {
					log.WithError(err).Warn("Failed to release crawl lock")
				}
			}()
		case errors.Is(err, redis.ErrLockNotAcquired):
			log.Warn("Crawl lock still held after waiting, crawling anyway")
		case ctx.Err() != nil:
			return nil, false, ctx.Err()
		default:
			log.WithError(err).Warn("Crawl lock unavailable, crawling without it")
		}

		// whoever held the lock may have just stored offers
		recent, err := r.recentOffers(ctx, variationID)
		if err != nil {
			return nil, false, err
		}
		if len(recent) > 0 {
			return recent, true, nil
		}
	}

	offers, err := r.crawlAndSelect(ctx, identity)
	if err != nil {
		return nil, false, err
	}
	if len(offers) == 0 {
		log.Info("No matching offers found")
		return offers, false, nil
	}

	stored, err := r.Offers.InsertBatch(ctx, offers)
	if err != nil {
		return nil, false, err
	}
	if r.Cache != nil {
		if err := r.Cache.Set(ctx, variationID, stored); err != nil {
			log.WithError(err).Warn("Failed to cache offers")
		}
	}

	log.WithField("offers", len(stored)).Info("Stored new offers")
	return stored, false, nil
}

// FindOffersForVariation runs FindOffers for a stored variation. It returns
// nil when the variation does not exist.
func (r *Resolver) FindOffersForVariation(ctx context.Context, variationID string) (*models.OffersResponse, error) {
	identity, err := r.IdentityForVariation(ctx, variationID)
	if err != nil || identity == nil {
		return nil, err
	}

	offers, cached, err := r.FindOffers(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &models.OffersResponse{VariationID: variationID, Offers: offers, Cached: cached}, nil
}

// recentOffers reads the cache first and the offer table second. A cache
// failure is logged and treated as a miss.
func (r *Resolver) recentOffers(ctx context.Context, variationID string) ([]models.Offer, error) {
	if r.Cache != nil {
		offers, ok, err := r.Cache.Get(ctx, variationID)
		if err != nil {
			r.log.WithContext(ctx).WithError(err).Warn("Offer cache read failed")
		} else if ok && len(offers) > 0 {
			return offers, nil
		}
	}

	since := r.now().Add(-r.cfg.RecencyWindow)
	offers, err := r.Offers.RecentForVariation(ctx, variationID, since)
	if err != nil {
		return nil, err
	}
	if len(offers) > 0 && r.Cache != nil {
		if err := r.Cache.Set(ctx, variationID, offers); err != nil {
			r.log.WithContext(ctx).WithError(err).Warn("Failed to cache offers")
		}
	}
	return offers, nil
}

func (r *Resolver) crawlAndSelect(ctx context.Context, identity *models.Identity) ([]models.Offer, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.crawlAndSelect")
	defer span.End()

	chain, err := r.categoryChain(ctx, identity.Product.CategoryID)
	if err != nil {
		return nil, err
	}
	sites, err := r.Websites.ListByCategories(ctx, chain)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		r.log.WithContext(ctx).Warn("No websites to search")
		return []models.Offer{}, nil
	}

	byDomain := make(map[string]models.Website, len(sites))
	for _, s := range sites {
		byDomain[normalizers.Domain(s.Domain)] = s
	}

	groups, err := r.Crawler.SearchListings(ctx, searchQuery(identity), sites)
	if err != nil {
		return nil, err
	}

	matched := make([]models.SourceListings, 0, len(groups))
	for _, g := range groups {
		site, ok := byDomain[normalizers.Domain(g.Source)]
		if !ok {
			r.log.WithContext(ctx).Warnf("Ignoring listings from unrequested source %s", g.Source)
			continue
		}
		reference := matching.ReferencePhrase(site.SearchPattern, identity.Product.Brand, identity.Product.Model, identity.Variation.Label)
		listings := matching.FilterListings(reference, g.Listings)
		r.log.WithContext(ctx).WithFields(map[string]any{
			"domain":    site.Domain,
			"reference": reference,
			"listings":  len(g.Listings),
			"matched":   len(listings),
		}).Debug("Filtered listings")
		if len(listings) > 0 {
			matched = append(matched, models.SourceListings{Source: normalizers.Domain(site.Domain), Listings: listings})
		}
	}
	if len(matched) == 0 {
		return []models.Offer{}, nil
	}

	offers, err := r.Selector.Select(ctx, searchQuery(identity), matched)
	if err != nil {
		return nil, err
	}

	out := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		site, ok := byDomain[normalizers.Domain(o.Domain)]
		if !ok {
			continue
		}
		o.VariationID = identity.Variation.ID
		o.WebsiteID = site.ID
		o.Domain = site.Domain
		out = append(out, o)
	}
	return out, nil
}

// searchQuery is what is typed into each site's search box and what the
// offer selector is told to look for
func searchQuery(identity *models.Identity) string {
	base := strings.TrimSpace(identity.Product.Brand + " " + identity.Product.Model)
	label := strings.TrimSpace(identity.Variation.Label)
	if label == "" {
		return base
	}
	if strings.Contains(strings.ToLower(label), strings.ToLower(identity.Product.Model)) {
		return label
	}
	return base + " " + label
}
