package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_Ratio(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "phones", "phones", 100},
		{"both empty", "", "", 100},
		{"one empty", "", "abc", 0},
		{"kitten", "kitten", "sitting", 61.5385},
		{"plural", "phone", "phones", 90.9091},
		{"short plural", "tv", "tvs", 80},
		{"one insertion", "smartphone", "smartphones", 95.2381},
		{"disjoint", "abc", "xyz", 0},
		{"multibyte runes", "телефон", "телефони", 93.3333},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Ratio(tt.a, tt.b), 0.001)
		})
	}
}

func TestScorer_TokenSortRatio_IgnoresOrderAndCase(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 100.0, s.TokenSortRatio("Phones Smart", "smart phones"))
	assert.Equal(t, 100.0, s.TokenSortRatio("Electronics > Phones", "phones electronics"))
}

func TestScorer_TokenSortRatio(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"singular against plural name", "Phone", "phones", 90.9091},
		{"partial path", "Phones > Smartphones", "electronics > phones > smartphones", 75},
		{"unrelated", "Garden furniture", "electronics", 22.2222},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.TokenSortRatio(tt.a, tt.b), 0.001)
		})
	}
}

func TestScorer_PartialRatio(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 100.0, s.PartialRatio("apple-iphone16", "apple-iphone16-128gb"))
	assert.Equal(t, 100.0, s.PartialRatio("apple-iphone16-128gb", "apple-iphone16"))
	assert.Equal(t, 0.0, s.PartialRatio("", "abc"))
	assert.Equal(t, 100.0, s.PartialRatio("", ""))
	assert.InDelta(t, 90.0, s.PartialRatio("apple-iphone16-128gb", "apple-iphone16-256gb"), 0.001)
}

func TestScorer_ExtractOne(t *testing.T) {
	s := NewScorer()

	idx, score, ok := s.ExtractOne("laptops", []string{"phones", "laptops", "laptops"}, s.Ratio)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 100.0, score)

	_, _, ok = s.ExtractOne("laptops", nil, s.Ratio)
	assert.False(t, ok)
}
