package reorg

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// AddIndex creates an index titled title attached to category.
func (r *Reorganizer) AddIndex(title string, category *types.Category) (*types.Index, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	idxs, err := r.table(types.TableIndexes)
	if err != nil {
		return nil, err
	}

	idx := &types.Index{Title: title, Categories: category.Path.Clone()}
	if _, err := idxs.Set("", idx); err != nil {
		return nil, fmt.Errorf("adding index %q: %w", title, err)
	}

	r.log.WithFields(logrus.Fields{
		"op":    "add_index",
		"title": title,
		"to":    idx.Categories.String(),
	}).Info("added index")
	return idx, nil
}

// SetIndexOrder sets the position of idx among its siblings.
func (r *Reorganizer) SetIndexOrder(idx *types.Index, order []int) error {
	return r.updateIndex(idx, "set_order", func(i *types.Index) {
		i.Order = append([]int(nil), order...)
	}, logrus.Fields{"order": order})
}

// HideIndex hides idx from the table of contents.
func (r *Reorganizer) HideIndex(idx *types.Index) error {
	return r.updateIndex(idx, "hide_index", func(i *types.Index) {
		i.Hidden = true
	}, nil)
}

// ClearDependence detaches idx from the texts it comments on.
func (r *Reorganizer) ClearDependence(idx *types.Index) error {
	return r.updateIndex(idx, "clear_dependence", (*types.Index).ClearDependence, nil)
}

func (r *Reorganizer) updateIndex(idx *types.Index, op string, apply func(*types.Index), fields logrus.Fields) error {
	if err := checkIndex(idx); err != nil {
		return err
	}
	idxs, err := r.table(types.TableIndexes)
	if err != nil {
		return err
	}

	apply(idx)
	if _, err := idxs.Set(idx.IndexID, idx); err != nil {
		return fmt.Errorf("%s %q: %w", op, idx.Title, err)
	}

	r.log.WithFields(logrus.Fields{"op": op, "title": idx.Title}).WithFields(fields).Info("updated index")
	return nil
}
