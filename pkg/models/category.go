package models

import "time"

// Category is a node of the shared category tree. Roots have no parent.
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	ParentID  *string   `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CategoryNode is a category together with its root-to-leaf path ("a > b > c").
type CategoryNode struct {
	Category
	Path string `json:"path"`
}

// ResolveCategoryRequest is the request body for resolving a free-text category label
type ResolveCategoryRequest struct {
	Label string `json:"label" validate:"required"`
}

// ResolveCategoryResponse is the API response for category resolution
type ResolveCategoryResponse struct {
	Category CategoryNode `json:"category"`
	Created  bool         `json:"created"`
}

// CategoryListResponse is the API response for listing categories
type CategoryListResponse struct {
	Items      []CategoryNode `json:"items"`
	TotalCount int            `json:"total_count"`
}
