// Package matching decides whether free text refers to a known category,
// variation or listing. Deterministic tiers live here; delegated judgment is
// reached through the Arbiter interface.
package matching

// Config holds the match thresholds.
type Config struct {
	CategoryNameThreshold       float64 // accept a name match at or above this score (default: 85)
	CategoryPathThreshold       float64 // accept a path match strictly above this score (default: 70)
	VariationAttributeThreshold float64 // shared attribute value ratio (default: 0.95)
	VariationSkuThreshold       float64 // SKU partial ratio (default: 98)
}

// DefaultConfig returns the thresholds observed in production.
func DefaultConfig() Config {
	return Config{
		CategoryNameThreshold:       85,
		CategoryPathThreshold:       70,
		VariationAttributeThreshold: 0.95,
		VariationSkuThreshold:       98,
	}
}
