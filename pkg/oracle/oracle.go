// Package oracle delegates open-ended extraction and matching judgments to a
// chat-completion language model. Every answer is treated as untrusted text
// and validated before it reaches the catalog.
package oracle

import (
	"context"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Operation names used in logs, metrics and errors
const (
	OpExtractFields      = "extract_fields"
	OpMatchCandidates    = "match_candidates"
	OpDiscoverVariations = "discover_variations"
	OpSelectOffers       = "select_offers"
)

// Oracle is the judgment delegate consulted when deterministic matching is inconclusive.
type Oracle interface {
	ExtractFields(ctx context.Context, text string) (models.ExtractedFields, error)
	MatchCandidates(ctx context.Context, item models.MatchCandidate, candidates []models.MatchCandidate) ([]models.CandidateDecision, error)
	DiscoverVariations(ctx context.Context, brand, model string) ([]models.DiscoveredVariation, error)
	SelectBestOffers(ctx context.Context, item, currency string, groups []models.SourceListings) ([]models.SelectedOffer, error)
}
