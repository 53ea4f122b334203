// Package cache mirrors recently persisted offers in Redis so repeat lookups
// inside the recency window skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const keyPrefix = "sage:offers:"

// OfferCache stores the offer set of a variation until the oldest offer in it
// leaves the recency window.
type OfferCache struct {
	client *redis.Client
	window time.Duration
	logger ectologger.Logger
	now    func() time.Time
}

func NewOfferCache(client *redis.Client, window time.Duration, logger ectologger.Logger) *OfferCache {
	return &OfferCache{
		client: client,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

func key(variationID string) string {
	return keyPrefix + variationID
}

// Get returns the cached offers of a variation. ok is false on a miss.
func (c *OfferCache) Get(ctx context.Context, variationID string) ([]models.Offer, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "cache.OfferCache.Get")
	defer span.End()

	var offers []models.Offer
	err := c.client.GetJSON(ctx, key(variationID), &offers)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, redis.ErrNotFound):
		metrics.RecordOfferCache(false)
		return nil, false, nil
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		c.logger.WithContext(ctx).WithError(err).Warnf("Dropping unreadable cached offers for %s", variationID)
		_ = c.client.Delete(ctx, key(variationID))
		metrics.RecordOfferCache(false)
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to read offer cache: %w", err)
	}

	metrics.RecordOfferCache(true)
	return offers, true, nil
}

// Set caches offers. Nothing is stored for an empty set or one whose oldest
// offer is already outside the window.
func (c *OfferCache) Set(ctx context.Context, variationID string, offers []models.Offer) error {
	ctx, span := tracing.StartSpan(ctx, "cache.OfferCache.Set")
	defer span.End()

	if len(offers) == 0 {
		return nil
	}

	oldest := offers[0].CreatedAt
	for _, o := range offers[1:] {
		if o.CreatedAt.Before(oldest) {
			oldest = o.CreatedAt
		}
	}
	ttl := c.window - c.now().Sub(oldest)
	if ttl <= 0 {
		return nil
	}

	if err := c.client.SetJSON(ctx, key(variationID), offers, ttl); err != nil {
		return fmt.Errorf("failed to write offer cache: %w", err)
	}

	c.logger.WithContext(ctx).Debugf("Cached %d offers for %s for %s", len(offers), variationID, ttl)
	return nil
}

// Invalidate drops the cached offers of a variation
func (c *OfferCache) Invalidate(ctx context.Context, variationID string) error {
	return c.client.Delete(ctx, key(variationID))
}
