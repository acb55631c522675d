package types

import "time"

// Category is a node of the topical hierarchy. It is addressed by Path and
// identified by CategoryID; the two are independent so that a node keeps its
// identity while the tree is reorganized around it.
type Category struct {
	CategoryID  string    `json:"category_id"`  // UUID v7, generated on creation.
	Path        Path      `json:"path"`         // Root-to-node segment names.
	LastPath    string    `json:"last_path"`    // Display key; equals Path.Last().
	SharedTitle string    `json:"shared_title"` // Name of the backing Term.
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the path and that LastPath matches the terminal segment.
func (c *Category) Validate() error {
	if err := c.Path.Validate(); err != nil {
		return err
	}
	if c.LastPath != c.Path.Last() {
		return ErrInvalidName
	}
	return nil
}

// SetPath replaces the path and keeps LastPath in step with it.
func (c *Category) SetPath(p Path) {
	c.Path = p.Clone()
	c.LastPath = c.Path.Last()
}
