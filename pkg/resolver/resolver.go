// Package resolver sequences normalization, matching and the external
// collaborators to answer two questions about a free-text product name:
// which catalog variation it is, and where that variation is sold today.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/internal/repositories/alias"
	"github.com/Ramsey-B/sage/internal/repositories/category"
	"github.com/Ramsey-B/sage/internal/repositories/offer"
	"github.com/Ramsey-B/sage/internal/repositories/product"
	"github.com/Ramsey-B/sage/internal/repositories/website"
	"github.com/Ramsey-B/sage/pkg/crawler"
	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/matching"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/oracle"
	"github.com/Ramsey-B/sage/pkg/pricing"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/translator"
)

// Config holds the orchestration settings
type Config struct {
	DefaultParentID string        // new category chains hang below this node
	RecencyWindow   time.Duration // offers younger than this are served without crawling (default: 36h)
	CrawlLockTTL    time.Duration // lease on a variation while it is crawled (default: 5m)
	CrawlLockWait   time.Duration // how long to wait for another instance's crawl (default: 2m)
}

func DefaultConfig() Config {
	return Config{
		DefaultParentID: "cf8384df-f073-477f-b2fb-e5643eeb974e",
		RecencyWindow:   36 * time.Hour,
		CrawlLockTTL:    5 * time.Minute,
		CrawlLockWait:   2 * time.Minute,
	}
}

// OfferCache mirrors recent offers per variation
type OfferCache interface {
	Get(ctx context.Context, variationID string) ([]models.Offer, bool, error)
	Set(ctx context.Context, variationID string, offers []models.Offer) error
}

// CrawlLocker serializes crawls of the same variation across instances
type CrawlLocker interface {
	AcquireWait(ctx context.Context, key string, ttl, wait time.Duration) (*redis.Lock, error)
}

// Dependencies are the collaborators a Resolver sequences. Cache and Locker
// are optional and must be left nil when unused.
type Dependencies struct {
	Categories category.CategoryRepository
	Products   product.ProductRepository
	Websites   website.WebsiteRepository
	Offers     offer.OfferRepository
	Aliases    alias.AliasRepository

	Oracle     oracle.Oracle
	Crawler    crawler.Crawler
	Translator translator.Translator

	CategoryMatcher *matching.CategoryMatcher
	Variations      *matching.VariationResolver
	Selector        *pricing.Selector

	Cache  OfferCache
	Locker CrawlLocker
}

// Resolver is the resolution orchestrator. It holds no per-request state and
// is safe for concurrent use.
type Resolver struct {
	log ectologger.Logger
	cfg Config
	Dependencies
	now func() time.Time
}

func New(log ectologger.Logger, cfg Config, deps Dependencies) *Resolver {
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = DefaultConfig().RecencyWindow
	}
	if cfg.CrawlLockTTL <= 0 {
		cfg.CrawlLockTTL = DefaultConfig().CrawlLockTTL
	}
	if cfg.CrawlLockWait <= 0 {
		cfg.CrawlLockWait = DefaultConfig().CrawlLockWait
	}
	return &Resolver{
		log:          log,
		cfg:          cfg,
		Dependencies: deps,
		now:          time.Now,
	}
}

// collaboratorError keeps classified errors as they are and marks anything
// else as a failure of collaborator.
func collaboratorError(collaborator, op string, err error) error {
	switch sageerrors.KindOf(err) {
	case sageerrors.KindCollaborator, sageerrors.KindCapacity, sageerrors.KindInput:
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return sageerrors.NewCollaboratorError(collaborator, op, err)
}
