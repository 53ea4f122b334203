package models

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/database"
)

// Product is the canonical catalog record for a real-world item.
type Product struct {
	ID         string                            `json:"id" db:"id"`
	Name       string                            `json:"name" db:"name"`
	Brand      string                            `json:"brand" db:"brand"`
	Model      string                            `json:"model" db:"model"`
	CategoryID *string                           `json:"category_id,omitempty" db:"category_id"`
	Attributes database.JSONB[map[string]string] `json:"attributes" db:"attributes"`
	CreatedAt  time.Time                         `json:"created_at" db:"created_at"`
}

// Variation is one price-distinguishing configuration of a product.
type Variation struct {
	ID           string                            `json:"id" db:"id"`
	ProductID    string                            `json:"product_id" db:"product_id"`
	Label        string                            `json:"label" db:"label"`
	VariationKey string                            `json:"variation_key" db:"variation_key"`
	SKU          string                            `json:"sku" db:"sku"`
	Specs        database.JSONB[map[string]string] `json:"specs" db:"specs"`
	CreatedAt    time.Time                         `json:"created_at" db:"created_at"`
}

// ExtractedFields is the structured reading of a free-text product title.
type ExtractedFields struct {
	Brand      string            `json:"brand"`
	Model      string            `json:"model"`
	Category   string            `json:"category"`
	Attributes map[string]string `json:"attributes"`
}

// DiscoveredVariation is a candidate variation reported for a brand and model.
type DiscoveredVariation struct {
	Label          string `json:"name"`
	Differentiator string `json:"variation"`
}

// MatchCandidate is an existing variation offered to the oracle for comparison.
type MatchCandidate struct {
	ID         string            `json:"id"`
	Brand      string            `json:"brand"`
	Model      string            `json:"model"`
	Attributes map[string]string `json:"attributes"`
}

// CandidateDecision is the oracle's verdict on one MatchCandidate.
type CandidateDecision struct {
	CandidateID string `json:"matched_id"`
	IsMatch     bool   `json:"match"`
}

// Identity is the answer to "what product/variation is this text?"
type Identity struct {
	Product   Product         `json:"product"`
	Variation Variation       `json:"variation"`
	Category  *Category       `json:"category,omitempty"`
	Fields    ExtractedFields `json:"fields"`
	MatchTier string          `json:"match_tier"`
	Created   bool            `json:"created"`
}
