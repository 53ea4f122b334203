package models

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/shopspring/decimal"
)

// OfferMetadata is free-form data kept next to an offer.
type OfferMetadata struct {
	Item           string `json:"item,omitempty"`
	RawPrice       string `json:"raw_price,omitempty"`
	SourceCurrency string `json:"source_currency,omitempty"`
	PriceAdjusted  bool   `json:"price_adjusted,omitempty"`
}

// Offer is a priced, sourced, timestamped claim that a variation is sold at a domain.
type Offer struct {
	ID           string                        `json:"id" db:"id"`
	VariationID  string                        `json:"variation_id" db:"variation_id"`
	WebsiteID    string                        `json:"website_id" db:"website_id"`
	Domain       string                        `json:"domain" db:"domain"`
	Price        decimal.Decimal               `json:"price" db:"price"`
	Currency     string                        `json:"currency" db:"currency"`
	URL          string                        `json:"url" db:"url"`
	InStock      bool                          `json:"in_stock" db:"in_stock"`
	ShippingCost decimal.NullDecimal           `json:"shipping_cost" db:"shipping_cost"`
	Metadata     database.JSONB[OfferMetadata] `json:"metadata" db:"offer_metadata"`
	CreatedAt    time.Time                     `json:"created_at" db:"created_at"`
}

// Listing is one search result scraped from a source.
type Listing struct {
	Title        string `json:"item"`
	Price        string `json:"item_current_price"`
	Currency     string `json:"price_currency,omitempty"`
	URL          string `json:"item_page_url"`
	ImageURL     string `json:"item_image_url,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// SourceListings groups the listings returned by one source domain.
type SourceListings struct {
	Source   string    `json:"domain"`
	Listings []Listing `json:"extracted_data"`
}

// PricedListing is a listing whose raw price was parsed and, if needed, corrected.
type PricedListing struct {
	Listing
	Source   string          `json:"domain"`
	Amount   decimal.Decimal `json:"amount"`
	Adjusted bool            `json:"adjusted"`
}

// SelectedOffer is the oracle's pick for one source.
type SelectedOffer struct {
	Source   string `json:"domain"`
	Title    string `json:"item"`
	URL      string `json:"item_page_url"`
	Price    string `json:"item_current_price"`
	Currency string `json:"price_currency"`
}

// OffersResponse is the API response for offer lookups
type OffersResponse struct {
	VariationID string  `json:"variation_id"`
	Offers      []Offer `json:"offers"`
	Cached      bool    `json:"cached"`
}
