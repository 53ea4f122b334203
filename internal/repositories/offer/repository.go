package offer

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// OfferRepository defines the interface for offer storage
type OfferRepository interface {
	RecentForVariation(ctx context.Context, variationID string, since time.Time) ([]models.Offer, error)
	InsertBatch(ctx context.Context, offers []models.Offer) ([]models.Offer, error)
}

// Repository implements OfferRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new offer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const (
	tableName    = "offers"
	websiteTable = "websites"
)

var insertColumns = []string{"id", "variation_id", "website_id", "price", "currency", "url", "in_stock", "shipping_cost", "offer_metadata", "created_at"}

// RecentForVariation returns the newest offer per website for a variation,
// considering only offers created at or after since. Older offers stay in
// the table; they are superseded, not overwritten.
func (r *Repository) RecentForVariation(ctx context.Context, variationID string, since time.Time) ([]models.Offer, error) {
	ctx, span := tracing.StartSpan(ctx, "OfferRepository.RecentForVariation")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"DISTINCT ON (o.website_id) o.id",
		"o.variation_id",
		"o.website_id",
		"w.domain",
		"o.price",
		"o.currency",
		"o.url",
		"o.in_stock",
		"o.shipping_cost",
		"o.offer_metadata",
		"o.created_at",
	)
	sb.From(sb.As(tableName, "o"))
	sb.Join(sb.As(websiteTable, "w"), "w.id = o.website_id")
	sb.Where(
		sb.Equal("o.variation_id", variationID),
		sb.GreaterEqualThan("o.created_at", since),
	)
	sb.OrderBy("o.website_id", "o.created_at DESC")

	query, args := sb.Build()

	var items []models.Offer
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get recent offers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get recent offers")
	}

	return items, nil
}

// InsertBatch stores offers in one statement and returns them with IDs and timestamps set
func (r *Repository) InsertBatch(ctx context.Context, offers []models.Offer) ([]models.Offer, error) {
	ctx, span := tracing.StartSpan(ctx, "OfferRepository.InsertBatch")
	defer span.End()

	if len(offers) == 0 {
		return offers, nil
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder(tableName, insertColumns...)
	for i := range offers {
		o := &offers[i]
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		ib.Values(o.ID, o.VariationID, o.WebsiteID, o.Price, o.Currency, o.URL, o.InStock, o.ShippingCost, o.Metadata, o.CreatedAt)
	}

	query, args := ib.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert offers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert offers")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"variation_id": offers[0].VariationID,
		"count":        len(offers),
	}).Info("Stored offers")

	return offers, nil
}
