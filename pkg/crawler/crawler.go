// Package crawler retrieves search listings from retail sites through the
// crawling service, bounded by a shared Gate.
package crawler

import (
	"context"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Crawler searches a set of websites for a query.
type Crawler interface {
	SearchListings(ctx context.Context, query string, sites []models.Website) ([]models.SourceListings, error)
}
