package models

import "time"

// LookupRequest asks for the identity and current offers of a free-text product name.
type LookupRequest struct {
	RequestID string `json:"request_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Query     string `json:"query" validate:"required,max=512"`
}

// LookupResult is the outcome of a lookup, also published as a notification.
type LookupResult struct {
	RequestID string    `json:"request_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Query     string    `json:"query"`
	Identity  *Identity `json:"identity,omitempty"`
	Offers    []Offer   `json:"offers"`
	Cached    bool      `json:"cached"`
	Completed time.Time `json:"completed_at"`
}

// IdentityRequest is the request body for identity-only resolution
type IdentityRequest struct {
	Query string `json:"query" validate:"required,max=512"`
}

// QueryAlias remembers which variation a fingerprinted query resolved to.
type QueryAlias struct {
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Query       string    `json:"query" db:"query"`
	VariationID string    `json:"variation_id" db:"variation_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
