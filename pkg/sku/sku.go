// Package sku derives canonical, URL-safe keys for catalog variations.
package sku

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/sage/pkg/normalizers"
)

// Generate builds "{brand}-{model}[-{value}...]" where every part is lowercase
// alphanumeric and attribute values follow the sorted order of their keys.
// The result depends only on its inputs.
func Generate(brand, model string, attributes map[string]string) string {
	parts := []string{part(brand), part(model)}

	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ki, kj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if ki == kj {
			return keys[i] < keys[j]
		}
		return ki < kj
	})

	for _, k := range keys {
		if v := part(attributes[k]); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, "-")
}

// VariationKey is the normalized differentiator of a variation ("256 GB" -> "256gb").
func VariationKey(differentiator string) string {
	return part(differentiator)
}

func part(s string) string {
	return normalizers.ApplyChain(s, "strip_accents", "alphanumeric")
}
