// Package reorg performs structural edits on the category tree: moving
// indexes and subtrees, creating, renaming and deleting categories.
//
// A category is addressed by its path and an index hangs off the tree by its
// categories path, so every structural edit is a prefix rewrite over both
// tables. The Reorganizer works against any types.TableSource; handing it the
// view of a Library.Transaction makes a multi-record edit atomic.
package reorg

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// TermScope selects how category terms are keyed.
type TermScope string

const (
	// TermScopeGlobal keys terms by name alone: two categories with the same
	// terminal segment share one term.
	TermScopeGlobal TermScope = "global"
	// TermScopeParent keys terms by (parent path, name).
	TermScopeParent TermScope = "parent"
)

// ParseTermScope converts a config value into a TermScope. The empty string
// selects TermScopeGlobal.
func ParseTermScope(s string) (TermScope, error) {
	switch TermScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", TermScopeGlobal:
		return TermScopeGlobal, nil
	case TermScopeParent:
		return TermScopeParent, nil
	default:
		return "", fmt.Errorf("unknown term scope %q", s)
	}
}

// Reorganizer applies structural edits to a catalog.
type Reorganizer struct {
	src          types.TableSource
	log          logrus.FieldLogger
	termScope    TermScope
	strictDelete bool
}

// Option configures a Reorganizer.
type Option func(*Reorganizer)

// WithLogger sets the logger that receives one entry per structural write.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reorganizer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTermScope sets how category terms are looked up and created.
func WithTermScope(s TermScope) Option {
	return func(r *Reorganizer) { r.termScope = s }
}

// WithStrictDelete makes DeleteCategory refuse categories that still have
// descendants or attached indexes.
func WithStrictDelete(strict bool) Option {
	return func(r *Reorganizer) { r.strictDelete = strict }
}

// New returns a Reorganizer over src.
func New(src types.TableSource, opts ...Option) *Reorganizer {
	r := &Reorganizer{
		src:       src,
		log:       logrus.StandardLogger(),
		termScope: TermScopeGlobal,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind returns a copy of r with the same options working against src.
func (r *Reorganizer) Bind(src types.TableSource) *Reorganizer {
	cp := *r
	cp.src = src
	return &cp
}

// MoveReport counts the records rewritten by a structural edit.
type MoveReport struct {
	Categories int `json:"categories"`
	Indexes    int `json:"indexes"`
}

// Add accumulates o into m.
func (m *MoveReport) Add(o MoveReport) {
	m.Categories += o.Categories
	m.Indexes += o.Indexes
}

func (r *Reorganizer) table(name string) (types.Table, error) {
	tbl, err := r.src.GetTable(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return tbl, nil
}

// Category returns the category stored at path.
// Returns ErrNotFound if there is none.
func (r *Reorganizer) Category(path types.Path) (*types.Category, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	tbl, err := r.table(types.TableCategories)
	if err != nil {
		return nil, err
	}
	rows, err := tbl.Fetch(types.Filter{types.FilterPath: path})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("category %q: %w", path.String(), types.ErrNotFound)
	}
	return rows[0].(*types.Category), nil
}

// Index returns the index with the given title.
// Returns ErrNotFound if there is none.
func (r *Reorganizer) Index(title string) (*types.Index, error) {
	tbl, err := r.table(types.TableIndexes)
	if err != nil {
		return nil, err
	}
	rows, err := tbl.Fetch(types.Filter{types.FilterTitle: title})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("index %q: %w", title, types.ErrNotFound)
	}
	return rows[0].(*types.Index), nil
}

// Term returns the term named name within scope; a nil or empty scope is the
// global scope. Returns ErrTermNotFound if there is none.
func (r *Reorganizer) Term(name string, scope types.Path) (*types.Term, error) {
	tbl, err := r.table(types.TableTerms)
	if err != nil {
		return nil, err
	}
	rows, err := tbl.Fetch(types.Filter{
		types.FilterName:  name,
		types.FilterScope: scope.Clone(),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("term %q: %w", name, types.ErrTermNotFound)
	}
	return rows[0].(*types.Term), nil
}

// termScopeFor returns the scope under which the term of the category at
// path is keyed.
func (r *Reorganizer) termScopeFor(path types.Path) types.Path {
	if r.termScope == TermScopeParent {
		return path.Parent()
	}
	return types.Path{}
}

// termFor returns the term backing the category at path, if any.
func (r *Reorganizer) termFor(path types.Path) (*types.Term, error) {
	return r.Term(path.Last(), r.termScopeFor(path))
}

func checkCategory(c *types.Category) error {
	if c == nil || c.CategoryID == "" {
		return types.ErrInvalidCategory
	}
	return nil
}

func checkIndex(i *types.Index) error {
	if i == nil || i.IndexID == "" {
		return types.ErrInvalidIndex
	}
	return nil
}
