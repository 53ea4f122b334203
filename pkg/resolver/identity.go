package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectolinq"

	sageerrors "github.com/Ramsey-B/sage/pkg/errors"
	"github.com/Ramsey-B/sage/pkg/fingerprint"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/oracle"
	"github.com/Ramsey-B/sage/pkg/sku"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Match tiers reported on an Identity besides the matching tiers
const (
	TierAlias   = "alias"
	TierCreated = "created"
)

// ResolveIdentity answers "what product and variation is this text?".
// A query seen before is answered from its alias without any collaborator
// call. Otherwise the text is translated, its fields extracted, and the
// product and variation matched or created.
func (r *Resolver) ResolveIdentity(ctx context.Context, text string) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.ResolveIdentity")
	defer span.End()

	text = strings.TrimSpace(text)
	fp := fingerprint.Query(text)
	if fp == "" {
		return nil, sageerrors.NewInputError("query", "must contain at least one letter or digit")
	}

	identity, err := r.identityFromAlias(ctx, fp)
	if err != nil {
		return nil, err
	}
	if identity != nil {
		metrics.RecordVariationMatch(TierAlias)
		return identity, nil
	}

	translated, err := r.Translator.ToWorkingLanguage(ctx, text)
	if err != nil {
		return nil, collaboratorError(sageerrors.Translator, "translate", err)
	}

	fields, err := r.Oracle.ExtractFields(ctx, translated)
	if err != nil {
		return nil, collaboratorError(sageerrors.Oracle, oracle.OpExtractFields, err)
	}
	fields.Attributes = lowerKeys(fields.Attributes)

	log := r.log.WithContext(ctx).WithFields(map[string]any{
		"brand": fields.Brand,
		"model": fields.Model,
	})

	existing, err := r.Products.FindByBrandModel(ctx, fields.Brand, fields.Model)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		identity, err = r.resolveExisting(ctx, existing, fields)
	} else {
		identity, err = r.createProduct(ctx, fields)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordVariationMatch(identity.MatchTier)

	if err := r.Aliases.Put(ctx, &models.QueryAlias{Fingerprint: fp, Query: text, VariationID: identity.Variation.ID}); err != nil {
		log.WithError(err).Warn("Failed to remember query alias")
	}

	log.WithFields(map[string]any{
		"product_id":   identity.Product.ID,
		"variation_id": identity.Variation.ID,
		"tier":         identity.MatchTier,
		"created":      identity.Created,
	}).Info("Resolved identity")
	return identity, nil
}

func (r *Resolver) identityFromAlias(ctx context.Context, fp string) (*models.Identity, error) {
	a, err := r.Aliases.Get(ctx, fp)
	if err != nil || a == nil {
		return nil, err
	}

	identity, err := r.IdentityForVariation(ctx, a.VariationID)
	if err != nil || identity == nil {
		return nil, err
	}
	identity.MatchTier = TierAlias
	return identity, nil
}

// IdentityForVariation loads a stored variation with its product and
// category. It returns nil when the variation does not exist.
func (r *Resolver) IdentityForVariation(ctx context.Context, variationID string) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.IdentityForVariation")
	defer span.End()

	v, err := r.Products.GetVariation(ctx, variationID)
	if err != nil || v == nil {
		return nil, err
	}
	p, err := r.Products.GetByID(ctx, v.ProductID)
	if err != nil || p == nil {
		return nil, err
	}
	c, err := r.productCategory(ctx, p)
	if err != nil {
		return nil, err
	}

	return &models.Identity{
		Product:   *p,
		Variation: *v,
		Category:  c,
		Fields: models.ExtractedFields{
			Brand:      p.Brand,
			Model:      p.Model,
			Attributes: v.Specs.Data,
		},
	}, nil
}

func (r *Resolver) productCategory(ctx context.Context, p *models.Product) (*models.Category, error) {
	if p.CategoryID == nil {
		return nil, nil
	}
	return r.Categories.GetByID(ctx, *p.CategoryID)
}

// resolveExisting matches fields against the variations of a known product.
// When every tier misses, discovered variations not stored yet are added and
// the deterministic tiers run again over the full set; a variation built
// from the extracted attributes is the last resort.
func (r *Resolver) resolveExisting(ctx context.Context, p *models.Product, fields models.ExtractedFields) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.resolveExisting")
	defer span.End()

	c, err := r.productCategory(ctx, p)
	if err != nil {
		return nil, err
	}
	identity := &models.Identity{Product: *p, Category: c, Fields: fields}

	stored, err := r.Products.ListVariations(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	match, err := r.Variations.Resolve(ctx, fields, stored)
	if err != nil {
		return nil, collaboratorError(sageerrors.Oracle, oracle.OpMatchCandidates, err)
	}
	if match.Matched() {
		identity.Variation = *match.Variation
		identity.MatchTier = string(match.Tier)
		return identity, nil
	}

	r.log.WithContext(ctx).WithFields(map[string]any{
		"product_id": p.ID,
		"candidates": len(stored),
	}).Info("Product found but no variation matched, discovering variations")

	discovered, err := r.Oracle.DiscoverVariations(ctx, p.Brand, p.Model)
	if err != nil {
		return nil, collaboratorError(sageerrors.Oracle, oracle.OpDiscoverVariations, err)
	}

	known := make(map[string]bool, len(stored))
	for _, v := range stored {
		known[v.SKU] = true
	}
	var fresh []models.Variation
	for _, v := range buildVariations(p.Brand, p.Model, discovered) {
		if !known[v.SKU] {
			fresh = append(fresh, v)
		}
	}

	inserted, err := r.Products.AddVariations(ctx, p.ID, fresh)
	if err != nil {
		return nil, err
	}
	all := append(stored, inserted...)

	if match := r.Variations.ResolveDeterministic(ctx, fields, all); match.Matched() {
		identity.Variation = *match.Variation
		identity.MatchTier = string(match.Tier)
		identity.Created = isIn(match.Variation.ID, inserted)
		return identity, nil
	}

	v, err := r.addFallbackVariation(ctx, p, fields, all)
	if err != nil {
		return nil, err
	}
	identity.Variation = *v
	identity.MatchTier = TierCreated
	identity.Created = true
	return identity, nil
}

// addFallbackVariation stores the variation described by the extracted
// attributes. A concurrent insert of the same SKU is picked up instead.
func (r *Resolver) addFallbackVariation(ctx context.Context, p *models.Product, fields models.ExtractedFields, known []models.Variation) (*models.Variation, error) {
	fallback := variationFromFields(p.Brand, p.Model, fields.Attributes)
	if v := findBySKU(fallback.SKU, known); v != nil {
		return v, nil
	}

	inserted, err := r.Products.AddVariations(ctx, p.ID, []models.Variation{fallback})
	if err != nil {
		return nil, err
	}
	if len(inserted) > 0 {
		return &inserted[0], nil
	}

	stored, err := r.Products.ListVariations(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if v := findBySKU(fallback.SKU, stored); v != nil {
		return v, nil
	}
	return nil, sageerrors.NewCollaboratorErrorf(sageerrors.Repository, "add_variations", "variation %s was neither inserted nor found", fallback.SKU)
}

// createProduct stores a new product with its discovered variation batch in
// one transaction. The batch is matched before it is written; when nothing
// in it fits, the variation built from the extracted attributes joins it.
func (r *Resolver) createProduct(ctx context.Context, fields models.ExtractedFields) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.createProduct")
	defer span.End()

	node, _, err := r.ResolveCategory(ctx, fields.Category)
	if err != nil {
		return nil, err
	}

	discovered, err := r.Oracle.DiscoverVariations(ctx, fields.Brand, fields.Model)
	if err != nil {
		return nil, collaboratorError(sageerrors.Oracle, oracle.OpDiscoverVariations, err)
	}

	batch := buildVariations(fields.Brand, fields.Model, discovered)
	tier := TierCreated
	var chosen string
	if match := r.Variations.ResolveDeterministic(ctx, fields, batch); match.Matched() {
		chosen = match.Variation.SKU
		tier = string(match.Tier)
	} else {
		fallback := variationFromFields(fields.Brand, fields.Model, fields.Attributes)
		batch = append(batch, fallback)
		chosen = fallback.SKU
	}

	categoryID := node.ID
	p := &models.Product{
		Name:       strings.TrimSpace(fields.Brand + " " + fields.Model),
		Brand:      fields.Brand,
		Model:      fields.Model,
		CategoryID: &categoryID,
	}
	p.Attributes.Data = fields.Attributes

	inserted, err := r.Products.CreateWithVariations(ctx, p, batch)
	if err != nil {
		return nil, err
	}
	v := findBySKU(chosen, inserted)
	if v == nil {
		return nil, sageerrors.NewCollaboratorErrorf(sageerrors.Repository, "create_product", "variation %s missing after insert", chosen)
	}

	r.log.WithContext(ctx).WithFields(map[string]any{
		"product_id": p.ID,
		"variations": len(inserted),
		"category":   node.Path,
	}).Info("Created product")

	category := node.Category
	return &models.Identity{
		Product:   *p,
		Variation: *v,
		Category:  &category,
		Fields:    fields,
		MatchTier: tier,
		Created:   true,
	}, nil
}

// buildVariations turns discovered variations into catalog rows, dropping
// blank differentiators and duplicate SKUs. The differentiator becomes the
// only spec so attribute matching can compare values.
func buildVariations(brand, model string, discovered []models.DiscoveredVariation) []models.Variation {
	seen := map[string]bool{}
	out := make([]models.Variation, 0, len(discovered))
	for _, d := range discovered {
		diff := strings.TrimSpace(d.Differentiator)
		if diff == "" {
			continue
		}
		s := sku.Generate(brand, model, map[string]string{"variation": diff})
		if seen[s] {
			continue
		}
		seen[s] = true

		label := strings.TrimSpace(d.Label)
		if label == "" {
			label = strings.Join([]string{brand, model, diff}, " ")
		}
		v := models.Variation{
			Label:        label,
			VariationKey: sku.VariationKey(diff),
			SKU:          s,
		}
		v.Specs.Data = map[string]string{"variation": strings.ToLower(diff)}
		out = append(out, v)
	}
	return out
}

// variationFromFields builds the variation an extraction describes. Without
// attributes it is the bare "brand model" variation.
func variationFromFields(brand, model string, attributes map[string]string) models.Variation {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, attributes[k])
	}
	diff := strings.Join(values, " ")

	v := models.Variation{
		Label:        strings.TrimSpace(strings.Join([]string{brand, model, diff}, " ")),
		VariationKey: sku.VariationKey(diff),
		SKU:          sku.Generate(brand, model, attributes),
	}
	v.Specs.Data = lowerValues(attributes)
	return v
}

func findBySKU(s string, variations []models.Variation) *models.Variation {
	i := ectolinq.FindIndexWhere(variations, func(v models.Variation) bool { return v.SKU == s })
	if i < 0 {
		return nil
	}
	return &variations[i]
}

func isIn(id string, variations []models.Variation) bool {
	return ectolinq.Any(variations, func(v models.Variation) bool { return v.ID == id })
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func lowerValues(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = strings.ToLower(v)
	}
	return out
}
