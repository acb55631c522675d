package types

import (
	"strings"
	"time"
)

// Index is a text in the library. It hangs off the category tree through its
// Categories path; nothing else links it to Category records.
type Index struct {
	IndexID        string    `json:"index_id"` // UUID v7, generated on creation.
	Title          string    `json:"title"`    // Unique primary English title.
	Categories     Path      `json:"categories"`
	Order          []int     `json:"order,omitempty"`
	Hidden         bool      `json:"hidden"`
	Dependence     string    `json:"dependence,omitempty"`
	BaseTextTitles []string  `json:"base_text_titles,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the title and the attachment path.
func (i *Index) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return ErrInvalidTitle
	}
	return i.Categories.Validate()
}

// ClearDependence detaches the index from the texts it comments on.
func (i *Index) ClearDependence() {
	i.Dependence = ""
	i.BaseTextTitles = nil
}
