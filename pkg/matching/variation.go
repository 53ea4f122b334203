package matching

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/sku"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Tier names the rule that produced a variation match.
type Tier string

const (
	TierExact     Tier = "exact"
	TierAttribute Tier = "attribute"
	TierSku       Tier = "sku"
	TierOracle    Tier = "oracle"
	TierNone      Tier = "none"
)

// Arbiter judges which candidates describe the same item when the
// deterministic tiers are inconclusive.
type Arbiter interface {
	MatchCandidates(ctx context.Context, item models.MatchCandidate, candidates []models.MatchCandidate) ([]models.CandidateDecision, error)
}

// VariationMatch is the outcome of a tiered resolution.
type VariationMatch struct {
	Variation *models.Variation
	Tier      Tier
	Score     float64
}

// Matched reports whether a variation was selected.
func (m VariationMatch) Matched() bool {
	return m.Variation != nil
}

// VariationResolver picks the variation of a product that matches an
// extracted identity. Tiers run in a fixed order and the first hit wins:
// exact label, attribute overlap, SKU similarity, then the arbiter.
type VariationResolver struct {
	log     ectologger.Logger
	scorer  *Scorer
	cfg     Config
	arbiter Arbiter
}

func NewVariationResolver(log ectologger.Logger, cfg Config, arbiter Arbiter) *VariationResolver {
	return &VariationResolver{
		log:     log,
		scorer:  NewScorer(),
		cfg:     cfg,
		arbiter: arbiter,
	}
}

// Resolve runs every tier. Deterministic tiers never fail; an arbiter error
// is returned as is. An empty candidate list yields TierNone.
func (r *VariationResolver) Resolve(ctx context.Context, fields models.ExtractedFields, candidates []models.Variation) (VariationMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.VariationResolver.Resolve")
	defer span.End()

	if match := r.ResolveDeterministic(ctx, fields, candidates); match.Matched() {
		return match, nil
	}
	if r.arbiter == nil || len(candidates) == 0 {
		return VariationMatch{Tier: TierNone}, nil
	}
	return r.resolveWithArbiter(ctx, fields, candidates)
}

// ResolveDeterministic runs the exact, attribute and SKU tiers only.
func (r *VariationResolver) ResolveDeterministic(ctx context.Context, fields models.ExtractedFields, candidates []models.Variation) VariationMatch {
	if len(candidates) == 0 {
		return VariationMatch{Tier: TierNone}
	}

	if v := ExactMatch(fields.Brand, fields.Model, candidates); v != nil {
		r.log.WithContext(ctx).Debugf("variation %s matched exactly", v.ID)
		return VariationMatch{Variation: v, Tier: TierExact, Score: 1}
	}

	if v, ratio := BestAttributeMatch(fields.Attributes, candidates); v != nil && ratio >= r.cfg.VariationAttributeThreshold {
		r.log.WithContext(ctx).Debugf("variation %s matched on attributes (%.2f)", v.ID, ratio)
		return VariationMatch{Variation: v, Tier: TierAttribute, Score: ratio}
	}

	itemSku := sku.Generate(fields.Brand, fields.Model, fields.Attributes)
	if v, score := r.bestSkuMatch(itemSku, candidates); v != nil && score >= r.cfg.VariationSkuThreshold {
		r.log.WithContext(ctx).Debugf("variation %s matched on sku %s (%.1f)", v.ID, itemSku, score)
		return VariationMatch{Variation: v, Tier: TierSku, Score: score}
	}

	return VariationMatch{Tier: TierNone}
}

func (r *VariationResolver) resolveWithArbiter(ctx context.Context, fields models.ExtractedFields, candidates []models.Variation) (VariationMatch, error) {
	item := models.MatchCandidate{
		ID:         "new",
		Brand:      fields.Brand,
		Model:      fields.Model,
		Attributes: fields.Attributes,
	}
	pool := make([]models.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		attributes := c.Specs.Data
		if len(attributes) == 0 && c.Label != "" {
			attributes = map[string]string{"variation": c.Label}
		}
		pool = append(pool, models.MatchCandidate{
			ID:         c.ID,
			Brand:      fields.Brand,
			Model:      fields.Model,
			Attributes: attributes,
		})
	}

	decisions, err := r.arbiter.MatchCandidates(ctx, item, pool)
	if err != nil {
		return VariationMatch{Tier: TierNone}, err
	}

	for _, d := range decisions {
		if !d.IsMatch {
			continue
		}
		for i := range candidates {
			if candidates[i].ID == d.CandidateID {
				r.log.WithContext(ctx).Debugf("variation %s matched by arbiter", candidates[i].ID)
				return VariationMatch{Variation: &candidates[i], Tier: TierOracle, Score: 1}, nil
			}
		}
		r.log.WithContext(ctx).Warnf("arbiter returned unknown candidate %s", d.CandidateID)
	}
	return VariationMatch{Tier: TierNone}, nil
}

// ExactMatch returns the first candidate whose normalized label equals the
// normalized "brand model" string.
func ExactMatch(brand, model string, candidates []models.Variation) *models.Variation {
	want := strings.Join(normalizers.NormalizeText(brand+" "+model), " ")
	if want == "" {
		return nil
	}
	for i := range candidates {
		if strings.Join(normalizers.NormalizeText(candidates[i].Label), " ") == want {
			return &candidates[i]
		}
	}
	return nil
}

// AttributeRatio is the share of the candidate's distinct spec values that
// also appear among the item's attribute values. Keys are ignored and
// comparison is case-insensitive. Either side empty yields 0 and false.
func AttributeRatio(attributes, specs map[string]string) (ratio float64, shared int, ok bool) {
	itemValues := valueSet(attributes)
	specValues := valueSet(specs)
	if len(itemValues) == 0 || len(specValues) == 0 {
		return 0, 0, false
	}
	for v := range specValues {
		if _, found := itemValues[v]; found {
			shared++
		}
	}
	return float64(shared) / float64(len(specValues)), shared, true
}

// BestAttributeMatch returns the candidate with the highest attribute ratio.
// Ties prefer more shared values, then catalog order.
func BestAttributeMatch(attributes map[string]string, candidates []models.Variation) (*models.Variation, float64) {
	var best *models.Variation
	bestRatio, bestShared := 0.0, 0
	for i := range candidates {
		ratio, shared, ok := AttributeRatio(attributes, candidates[i].Specs.Data)
		if !ok {
			continue
		}
		if best == nil || ratio > bestRatio || (ratio == bestRatio && shared > bestShared) {
			best, bestRatio, bestShared = &candidates[i], ratio, shared
		}
	}
	return best, bestRatio
}

func (r *VariationResolver) bestSkuMatch(itemSku string, candidates []models.Variation) (*models.Variation, float64) {
	if itemSku == "" {
		return nil, 0
	}
	var best *models.Variation
	bestScore := 0.0
	for i := range candidates {
		if candidates[i].SKU == "" {
			continue
		}
		score := r.scorer.PartialRatio(itemSku, candidates[i].SKU)
		if best == nil || score > bestScore {
			best, bestScore = &candidates[i], score
		}
	}
	return best, bestScore
}

func valueSet(m map[string]string) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for _, v := range m {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
