package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/sage/pkg/models"
)

func TestReferencePhrase(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		label   string
		want    string
	}{
		{"brand and model", models.SearchPatternBrandModel, "Apple iPhone 16 128GB", "Apple iPhone 16"},
		{"model only", models.SearchPatternModel, "Apple iPhone 16 128GB", "iPhone 16"},
		{"variation label", "", "Apple iPhone 16 128GB", "Apple iPhone 16 128GB"},
		{"empty label", "", " ", "Apple iPhone 16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReferencePhrase(tt.pattern, "Apple", "iPhone 16", tt.label))
		})
	}
}

func TestMatchListing(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		listing   models.Listing
		wantMatch bool
		wantPass  string
	}{
		{
			name:      "split unit joined by bigram",
			reference: "Apple iPhone 16 128GB",
			listing:   models.Listing{Title: "Apple iPhone 16 128 GB Black"},
			wantMatch: true,
			wantPass:  PassExact,
		},
		{
			name:      "punctuated title with trailing slash url",
			reference: "Apple iPhone 16 128GB",
			listing: models.Listing{
				Title: "Apple iPhone 16 (128 GB) — Black",
				URL:   "https://store.bg/apple-iphone-16-128gb/",
			},
			wantMatch: true,
			wantPass:  PassExact,
		},
		{
			name:      "concatenated model in reference",
			reference: "Apple iPhone16",
			listing:   models.Listing{Title: "APPLE iPhone 16"},
			wantMatch: true,
			wantPass:  PassExact,
		},
		{
			name:      "tokens from url",
			reference: "Apple iPhone 16 128GB",
			listing: models.Listing{
				Title: "Смартфон",
				URL:   "https://www.shop.bg/apple-iphone-16-128gb",
			},
			wantMatch: true,
			wantPass:  PassExact,
		},
		{
			name:      "tokens from image url",
			reference: "Galaxy S24",
			listing: models.Listing{
				Title:    "Samsung phone",
				ImageURL: "https://cdn.shop.bg/img/galaxy_s24.jpg",
			},
			wantMatch: true,
			wantPass:  PassExact,
		},
		{
			name:      "plural forms",
			reference: "Wireless Earphones Case",
			listing:   models.Listing{Title: "Wireless earphone cases"},
			wantMatch: true,
			wantPass:  PassStemmed,
		},
		{
			name:      "bigram across title and url",
			reference: "iPhone16 Pro",
			listing:   models.Listing{Title: "Apple iPhone", URL: "/16-pro"},
			wantMatch: true,
			wantPass:  PassExact,
		},
		{
			name:      "title and url both lack a reference token",
			reference: "Apple iPhone 16 Pro",
			listing: models.Listing{
				Title: "Apple iPhone 16 128GB Black",
				URL:   "https://shop.bg/apple-iphone-16-128gb",
			},
			wantMatch: false,
			wantPass:  PassNone,
		},
		{
			name:      "different product",
			reference: "Samsung Galaxy S24",
			listing:   models.Listing{Title: "Apple iPhone 16"},
			wantMatch: false,
			wantPass:  PassNone,
		},
		{
			name:      "empty reference",
			reference: "",
			listing:   models.Listing{Title: "Apple iPhone 16"},
			wantMatch: false,
			wantPass:  PassNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, pass := MatchListing(tt.reference, tt.listing)
			assert.Equal(t, tt.wantMatch, ok)
			assert.Equal(t, tt.wantPass, pass)
		})
	}
}

func TestFilterListings_KeepsOrder(t *testing.T) {
	listings := []models.Listing{
		{Title: "Apple iPhone 16 256GB"},
		{Title: "Samsung Galaxy S24"},
		{Title: "iPhone 16 by Apple"},
	}

	got := FilterListings("Apple iPhone 16", listings)

	assert.Equal(t, []models.Listing{listings[0], listings[2]}, got)
}
