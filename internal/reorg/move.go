package reorg

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/librarian/internal/toc"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// MoveIndexInto attaches idx to category by copying the category's path into
// idx.Categories. Moving an index to where it already is rewrites the same
// value.
func (r *Reorganizer) MoveIndexInto(idx *types.Index, category *types.Category) error {
	if err := checkIndex(idx); err != nil {
		return err
	}
	if err := checkCategory(category); err != nil {
		return err
	}

	tbl, err := r.table(types.TableIndexes)
	if err != nil {
		return err
	}

	from := idx.Categories.Clone()
	idx.Categories = category.Path.Clone()
	if _, err := tbl.Set(idx.IndexID, idx); err != nil {
		return fmt.Errorf("moving index %q: %w", idx.Title, err)
	}

	r.log.WithFields(logrus.Fields{
		"op":    "move_index",
		"title": idx.Title,
		"from":  from.String(),
		"to":    idx.Categories.String(),
	}).Info("moved index")
	return nil
}

// MoveCategoryInto re-parents category under parent, or to the top level
// when parent is nil. Every category and index at or below the category's
// path has the old parent path replaced by the new one; the remainder of
// each path is kept. The category value is updated in place.
//
// Outside a transaction a failure part way through leaves the subtree
// partially moved. Running the same move again after it completed matches
// nothing and changes nothing.
func (r *Reorganizer) MoveCategoryInto(category, parent *types.Category) (MoveReport, error) {
	if err := checkCategory(category); err != nil {
		return MoveReport{}, err
	}
	newParent := types.Path{}
	if parent != nil {
		if err := checkCategory(parent); err != nil {
			return MoveReport{}, err
		}
		newParent = parent.Path.Clone()
	}

	oldPath := category.Path.Clone()
	if newParent.HasPrefix(oldPath) {
		return MoveReport{}, fmt.Errorf("moving %q into %q: %w", oldPath.String(), newParent.String(), types.ErrCyclicMove)
	}

	rep, err := r.rewrite("move_category", oldPath, oldPath.Parent(), newParent)
	if err != nil {
		return rep, err
	}
	moved, _ := oldPath.ReplacePrefix(oldPath.Parent(), newParent)
	category.SetPath(moved)
	return rep, nil
}

// MoveChildrenInto moves every direct child of category under parent, or to
// the top level when parent is nil. Children are taken from the tree as it
// stands before the first move.
func (r *Reorganizer) MoveChildrenInto(category, parent *types.Category) (MoveReport, error) {
	var total MoveReport
	if err := checkCategory(category); err != nil {
		return total, err
	}

	tree, err := toc.Build(r.src)
	if err != nil {
		return total, err
	}
	children, err := tree.Children(category.Path)
	if err != nil {
		return total, err
	}

	for _, child := range children {
		if child.Category == nil {
			continue
		}
		rep, err := r.MoveCategoryInto(child.Category, parent)
		total.Add(rep)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RewritePrefix replaces oldPrefix with newPrefix on every category path and
// index categories path that starts with oldPrefix. It is the bulk rewrite
// that follows a rename of an interior segment.
func (r *Reorganizer) RewritePrefix(oldPrefix, newPrefix types.Path) (MoveReport, error) {
	if err := oldPrefix.Validate(); err != nil {
		return MoveReport{}, err
	}
	if err := newPrefix.Validate(); err != nil {
		return MoveReport{}, err
	}
	if oldPrefix.Equal(newPrefix) {
		return MoveReport{}, nil
	}
	return r.rewrite("rewrite_prefix", oldPrefix, oldPrefix, newPrefix)
}

// rewrite selects every category and index under match and replaces the
// leading from segments of each path with to.
func (r *Reorganizer) rewrite(op string, match, from, to types.Path) (MoveReport, error) {
	var rep MoveReport

	cats, err := r.table(types.TableCategories)
	if err != nil {
		return rep, err
	}
	idxs, err := r.table(types.TableIndexes)
	if err != nil {
		return rep, err
	}

	terms, err := r.table(types.TableTerms)
	if err != nil {
		return rep, err
	}

	rows, err := cats.Fetch(types.Filter{types.FilterPathPrefix: match})
	if err != nil {
		return rep, fmt.Errorf("finding categories under %q: %w", match.String(), err)
	}
	orderForRewrite(rows, len(to) > len(from))

	for _, row := range rows {
		cat := row.(*types.Category)
		oldPath := cat.Path.Clone()
		newPath, _ := oldPath.ReplacePrefix(from, to)
		cat.SetPath(newPath)
		if _, err := cats.Set(cat.CategoryID, cat); err != nil {
			return rep, fmt.Errorf("moving category %q: %w", oldPath.String(), err)
		}
		rep.Categories++
		r.log.WithFields(logrus.Fields{
			"op":   op,
			"from": oldPath.String(),
			"to":   newPath.String(),
		}).Info("moved category")

		if err := r.rescopeTerm(terms, oldPath, newPath); err != nil {
			return rep, err
		}
	}

	rows, err = idxs.Fetch(types.Filter{types.FilterCategoriesPrefix: match})
	if err != nil {
		return rep, fmt.Errorf("finding indexes under %q: %w", match.String(), err)
	}
	for _, row := range rows {
		idx := row.(*types.Index)
		oldPath := idx.Categories.Clone()
		idx.Categories, _ = oldPath.ReplacePrefix(from, to)
		if _, err := idxs.Set(idx.IndexID, idx); err != nil {
			return rep, fmt.Errorf("moving index %q: %w", idx.Title, err)
		}
		rep.Indexes++
		r.log.WithFields(logrus.Fields{
			"op":    op,
			"title": idx.Title,
			"from":  oldPath.String(),
			"to":    idx.Categories.String(),
		}).Info("moved index")
	}

	return rep, nil
}

// rescopeTerm keeps a parent-scoped term keyed by the parent of the category
// it backs after that category moved from oldPath to newPath. A category
// whose own name changed is backed by another term and is left alone.
func (r *Reorganizer) rescopeTerm(terms types.Table, oldPath, newPath types.Path) error {
	if r.termScope != TermScopeParent || oldPath.Last() != newPath.Last() {
		return nil
	}
	term, err := r.termFor(oldPath)
	if errors.Is(err, types.ErrTermNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	term.Scope = newPath.Parent()
	if _, err := terms.Set(term.TermID, term); err != nil {
		return fmt.Errorf("rescoping term %q: %w", term.Name, err)
	}
	r.log.WithFields(logrus.Fields{
		"op":   "rescope_term",
		"term": term.Name,
		"from": oldPath.Parent().String(),
		"to":   term.Scope.String(),
	}).Debug("moved term")
	return nil
}

// orderForRewrite sorts categories so that no rewritten path lands on a path
// still waiting to be rewritten: deepest first when paths grow, shallowest
// first otherwise.
func orderForRewrite(rows []any, growing bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a := rows[i].(*types.Category).Path.Len()
		b := rows[j].(*types.Category).Path.Len()
		if growing {
			return a > b
		}
		return a < b
	})
}
