package types

import "errors"

// Filter selects entities in Table.Fetch. Keys are the Filter* constants;
// an empty or nil filter matches every entity.
type Filter map[string]any

// Filter keys understood by the SQLite tables.
const (
	FilterPath             = "path"              // categories: exact path
	FilterPathPrefix       = "path_prefix"       // categories: path starts with
	FilterCategories       = "categories"        // indexes: exact categories path
	FilterCategoriesPrefix = "categories_prefix" // indexes: categories starts with
	FilterTitle            = "title"             // indexes
	FilterName             = "name"              // terms
	FilterScope            = "scope"             // terms
	FilterScheme           = "scheme"            // terms
	FilterPlan             = "plan"              // journal
	FilterKey              = "key"               // journal
	FilterLimit            = "limit"
	FilterOffset           = "offset"
)

// Table provides uniform CRUD operations for a single entity type.
// Get and Fetch return any; callers type-assert to the concrete entity struct.
type Table interface {
	// Get retrieves the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Get(id string) (any, error)

	// Set creates or updates an entity. When id is empty a new UUID v7 is
	// generated. Returns the actual ID used (generated or provided).
	Set(id string, data any) (string, error)

	// Delete removes the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Delete(id string) error

	// Fetch returns all entities matching the filter. An empty filter
	// returns every entity in the table.
	Fetch(filter Filter) ([]any, error)
}

// Table operation errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrInvalidFilter = errors.New("invalid filter value type")
)

// Entity and catalog errors.
var (
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidPath       = errors.New("invalid category path")
	ErrInvalidTitle      = errors.New("invalid title")
	ErrInvalidLanguage   = errors.New("invalid language")
	ErrDuplicatePath     = errors.New("a category with this path already exists")
	ErrDuplicateName     = errors.New("name already in use")
	ErrDuplicatePrimary  = errors.New("language already has a primary title")
	ErrMissingPrimary    = errors.New("language has titles but no primary title")
	ErrTitleNotFound     = errors.New("title not found")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidIndex      = errors.New("invalid index")
	ErrParentNotFound    = errors.New("parent category not found")
	ErrTermNotFound      = errors.New("term not found")
	ErrTermNamesRequired = errors.New("term names required for new category")
	ErrCyclicMove        = errors.New("cannot move a category into its own subtree")
	ErrCategoryNotEmpty  = errors.New("category still has children or indexes")
)
