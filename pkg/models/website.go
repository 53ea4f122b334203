package models

// Search patterns describe what a site embeds in its listing titles and URLs.
const (
	SearchPatternBrandModel = "brand_model"
	SearchPatternModel      = "model"
)

// Website is a retail source. The catalog reads it, it never writes it.
type Website struct {
	ID                   string  `json:"id" db:"id"`
	Name                 string  `json:"name" db:"name"`
	Domain               string  `json:"domain" db:"domain"`
	LogoURL              *string `json:"logo_url,omitempty" db:"logo_url"`
	SearchURL            string  `json:"search_url" db:"search_url"`
	SearchPattern        string  `json:"search_pattern" db:"search_pattern"`
	ParticularSearchPath bool    `json:"particular_search_path" db:"particular_search_path"`
	AffiliateLink        *string `json:"affiliate_link,omitempty" db:"affiliate_link"`
	// ListingPath is a JMESPath expression selecting the listings in a crawl
	// response, for sites whose payload is not under extracted_data.
	ListingPath *string `json:"listing_path,omitempty" db:"listing_path"`
}
