package pricing

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
)

var hundred = decimal.NewFromInt(100)

// Normalizer parses listing prices and rescales clear missing-decimal-point outliers.
type Normalizer struct {
	log    ectologger.Logger
	factor decimal.Decimal
}

// NewNormalizer creates a Normalizer. A price above factor times the typical
// price is treated as an outlier.
func NewNormalizer(log ectologger.Logger, factor float64) *Normalizer {
	if factor <= 1 {
		factor = 10
	}
	return &Normalizer{log: log, factor: decimal.NewFromFloat(factor)}
}

// Normalize parses every listing price and corrects outliers. Listings whose
// price cannot be parsed or is not positive are dropped. Source domains are
// normalized and order is preserved.
func (n *Normalizer) Normalize(ctx context.Context, groups []models.SourceListings) []models.PricedListing {
	priced := make([]models.PricedListing, 0)
	bySource := make(map[string][]decimal.Decimal)
	var sources []string

	for _, group := range groups {
		source := normalizers.Domain(group.Source)
		for _, listing := range group.Listings {
			amount, err := ParsePrice(listing.Price)
			if err != nil || !amount.IsPositive() {
				n.log.WithContext(ctx).Debugf("dropping listing %q from %s: unusable price %q", listing.Title, source, listing.Price)
				continue
			}
			if _, seen := bySource[source]; !seen {
				sources = append(sources, source)
			}
			bySource[source] = append(bySource[source], amount)
			priced = append(priced, models.PricedListing{Listing: listing, Source: source, Amount: amount})
		}
	}

	sourceMedians := make([]decimal.Decimal, 0, len(sources))
	for _, source := range sources {
		sourceMedians = append(sourceMedians, Median(bySource[source]))
	}
	typical := Median(sourceMedians)

	for i := range priced {
		corrected, ok := Correct(priced[i].Amount, typical, n.factor)
		if !ok {
			continue
		}
		n.log.WithContext(ctx).WithFields(map[string]any{
			"source":    priced[i].Source,
			"raw_price": priced[i].Price,
			"typical":   typical.String(),
			"corrected": corrected.String(),
		}).Info("correcting price outlier")
		metrics.RecordPriceCorrection()
		priced[i].Amount = corrected
		priced[i].Adjusted = true
	}
	return priced
}

// Correct reinterprets the last two digits of an integral outlier as cents.
// amount is an outlier when it exceeds factor times typical, and the
// correction only applies when the rescaled value is no longer one.
func Correct(amount, typical, factor decimal.Decimal) (decimal.Decimal, bool) {
	if !typical.IsPositive() || !amount.IsInteger() {
		return amount, false
	}
	if amount.LessThanOrEqual(typical.Mul(factor)) {
		return amount, false
	}
	corrected := amount.Div(hundred)
	if corrected.GreaterThanOrEqual(typical.Mul(factor)) {
		return amount, false
	}
	return corrected, true
}

// Median returns the middle value, or the mean of the two middle values.
// An empty input yields zero.
func Median(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}
