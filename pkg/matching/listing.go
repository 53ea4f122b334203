package matching

import (
	"strings"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
)

// Listing match passes
const (
	PassNone    = ""
	PassExact   = "exact"
	PassStemmed = "stemmed"
)

// ReferencePhrase picks what a listing must mention. Sites that search by
// brand and model, or by model alone, are matched on that; everything else
// on the variation label.
func ReferencePhrase(searchPattern, brand, model, variationLabel string) string {
	switch searchPattern {
	case models.SearchPatternBrandModel:
		return strings.TrimSpace(brand + " " + model)
	case models.SearchPatternModel:
		return strings.TrimSpace(model)
	}
	if strings.TrimSpace(variationLabel) == "" {
		return strings.TrimSpace(brand + " " + model)
	}
	return variationLabel
}

// MatchListing decides whether a listing refers to the reference phrase.
// Every reference token must appear among the listing's title, URL and image
// tokens or the bigrams of that combined token stream, so a bigram may join
// the last title token with the first URL token. When that fails the check
// is repeated on stems. An empty reference never matches.
func MatchListing(reference string, listing models.Listing) (bool, string) {
	refTokens := normalizers.NormalizeText(reference)
	if len(refTokens) == 0 {
		return false, PassNone
	}

	var combined []string
	combined = append(combined, normalizers.NormalizeText(listing.Title)...)
	combined = append(combined, normalizers.NormalizeURL(listing.URL)...)
	combined = append(combined, normalizers.NormalizeURL(listing.ImageURL)...)
	space := normalizers.TokenSet(combined, normalizers.Bigrams(combined))

	if containsAll(space, refTokens) {
		return true, PassExact
	}

	stemmedSpace := make(map[string]struct{}, len(space))
	for token := range space {
		stemmedSpace[normalizers.StemToken(token)] = struct{}{}
	}
	for stem := range normalizers.Stem(refTokens) {
		if _, ok := stemmedSpace[stem]; !ok {
			return false, PassNone
		}
	}
	return true, PassStemmed
}

// FilterListings keeps the listings that match reference, in order.
func FilterListings(reference string, listings []models.Listing) []models.Listing {
	matched := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if ok, _ := MatchListing(reference, l); ok {
			matched = append(matched, l)
		}
	}
	return matched
}

func containsAll(space map[string]struct{}, tokens []string) bool {
	for _, t := range tokens {
		if _, ok := space[t]; !ok {
			return false
		}
	}
	return true
}
