package reorg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// CreateCategory creates the category at path. The category's shared title
// is the terminal segment; when no term exists under that name one is
// created from en and he, and both are then required. An existing term is
// reused and en and he are ignored.
//
// The parent category must exist and path must be free. These preconditions
// are checked before the first write, so nothing is created when one fails.
// A later failure storing the category can leave a newly created term behind
// unless the call runs inside a transaction.
func (r *Reorganizer) CreateCategory(path types.Path, en, he string) (*types.Category, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	if _, err := r.Category(path); err == nil {
		return nil, fmt.Errorf("creating %q: %w", path.String(), types.ErrDuplicatePath)
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if path.Len() > 1 {
		if _, err := r.Category(path.Parent()); err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return nil, fmt.Errorf("creating %q: %w", path.String(), types.ErrParentNotFound)
			}
			return nil, err
		}
	}

	name := path.Last()
	term, err := r.termFor(path)
	switch {
	case errors.Is(err, types.ErrTermNotFound):
		if strings.TrimSpace(en) == "" || strings.TrimSpace(he) == "" {
			return nil, fmt.Errorf("creating %q: %w", path.String(), types.ErrTermNamesRequired)
		}
		if term, err = r.CreateTerm(name, r.termScopeFor(path), en, he); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	cats, err := r.table(types.TableCategories)
	if err != nil {
		return nil, err
	}
	cat := &types.Category{SharedTitle: term.Name}
	cat.SetPath(path)
	if _, err := cats.Set("", cat); err != nil {
		return nil, fmt.Errorf("creating %q: %w", path.String(), err)
	}

	r.log.WithFields(logrus.Fields{
		"op":   "create_category",
		"path": path.String(),
		"term": term.Name,
	}).Info("created category")
	return cat, nil
}

// RenameCategory changes the terminal segment of the category's own path,
// its LastPath and its shared title to newName. A term named newName must
// already exist. Paths of descendants and attached indexes are left alone;
// RenameSegment rewrites them too.
func (r *Reorganizer) RenameCategory(category *types.Category, newName string) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	if strings.TrimSpace(newName) == "" {
		return types.ErrInvalidName
	}

	oldPath := category.Path.Clone()
	newPath := oldPath.Parent().Child(newName)
	if _, err := r.termFor(newPath); err != nil {
		return fmt.Errorf("renaming %q: %w", oldPath.String(), err)
	}

	cats, err := r.table(types.TableCategories)
	if err != nil {
		return err
	}

	renamed := *category
	renamed.SetPath(newPath)
	renamed.SharedTitle = newName
	if _, err := cats.Set(renamed.CategoryID, &renamed); err != nil {
		return fmt.Errorf("renaming %q: %w", oldPath.String(), err)
	}
	*category = renamed

	r.log.WithFields(logrus.Fields{
		"op":   "rename_category",
		"from": oldPath.String(),
		"to":   newPath.String(),
	}).Info("renamed category")
	return nil
}

// RenameSegment renames the category like RenameCategory and then rewrites
// the paths of everything below it, so the subtree follows its root.
func (r *Reorganizer) RenameSegment(category *types.Category, newName string) (MoveReport, error) {
	if err := checkCategory(category); err != nil {
		return MoveReport{}, err
	}
	oldPath := category.Path.Clone()
	if err := r.RenameCategory(category, newName); err != nil {
		return MoveReport{}, err
	}
	rep, err := r.RewritePrefix(oldPath, category.Path)
	if err != nil {
		return rep, err
	}
	rep.Categories++
	return rep, nil
}

// DeleteCategory removes the category record. Nothing below it is touched:
// descendant categories and attached indexes stay in the store and point at
// a path that no longer exists. With strict delete enabled the call fails
// with ErrCategoryNotEmpty instead.
func (r *Reorganizer) DeleteCategory(category *types.Category) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	descendants, indexes, err := r.attached(category.Path)
	if err != nil {
		return err
	}
	if r.strictDelete && descendants+indexes > 0 {
		return fmt.Errorf("deleting %q: %w", category.Path.String(), types.ErrCategoryNotEmpty)
	}

	cats, err := r.table(types.TableCategories)
	if err != nil {
		return err
	}
	if err := cats.Delete(category.CategoryID); err != nil {
		return fmt.Errorf("deleting %q: %w", category.Path.String(), err)
	}

	entry := r.log.WithFields(logrus.Fields{
		"op":   "delete_category",
		"path": category.Path.String(),
	})
	if descendants+indexes > 0 {
		entry.WithFields(logrus.Fields{
			"categories": descendants,
			"indexes":    indexes,
		}).Warn("deleted category left orphans")
		return nil
	}
	entry.Info("deleted category")
	return nil
}

// attached counts the categories strictly below path and the indexes at or
// below it.
func (r *Reorganizer) attached(path types.Path) (int, int, error) {
	cats, err := r.table(types.TableCategories)
	if err != nil {
		return 0, 0, err
	}
	idxs, err := r.table(types.TableIndexes)
	if err != nil {
		return 0, 0, err
	}

	rows, err := cats.Fetch(types.Filter{types.FilterPathPrefix: path})
	if err != nil {
		return 0, 0, err
	}
	descendants := 0
	for _, row := range rows {
		if !row.(*types.Category).Path.Equal(path) {
			descendants++
		}
	}

	rows, err = idxs.Fetch(types.Filter{types.FilterCategoriesPrefix: path})
	if err != nil {
		return 0, 0, err
	}
	return descendants, len(rows), nil
}
