// Package toc builds the table of contents: the category tree with its
// indexes, assembled from the flat category and index tables.
//
// The tree is a derived view. Structural edits never maintain it; callers
// rebuild it after a batch of edits.
package toc

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Node is a category in the tree. The root node has an empty path and no
// category.
type Node struct {
	Name     string          `json:"name"`
	Path     types.Path      `json:"path"`
	Category *types.Category `json:"-"`
	Children []*Node         `json:"children,omitempty"`
	Indexes  []*Entry        `json:"indexes,omitempty"`
}

// Entry is an index listed under a node.
type Entry struct {
	Title  string `json:"title"`
	Order  []int  `json:"order,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// Tree is the assembled table of contents.
type Tree struct {
	Root *Node

	nodes            map[string]*Node
	orphanIndexes    []*types.Index
	orphanCategories []*types.Category
}

func key(p types.Path) string {
	return strings.Join(p, "\x00")
}

// Build loads every category and index from src and assembles the tree.
// Categories whose parent is not in the tree and indexes whose categories
// path names no category are kept aside and listed by Report.
func Build(src types.TableSource) (*Tree, error) {
	cats, err := fetchAll(src, types.TableCategories)
	if err != nil {
		return nil, err
	}
	idxs, err := fetchAll(src, types.TableIndexes)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		Root:  &Node{Path: types.Path{}},
		nodes: make(map[string]*Node),
	}
	t.nodes[key(t.Root.Path)] = t.Root

	// Shallow paths first so that every parent is placed before its children.
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].(*types.Category).Path.Len() < cats[j].(*types.Category).Path.Len()
	})
	for _, row := range cats {
		cat := row.(*types.Category)
		parent, ok := t.nodes[key(cat.Path.Parent())]
		if !ok {
			t.orphanCategories = append(t.orphanCategories, cat)
			continue
		}
		n := &Node{Name: cat.LastPath, Path: cat.Path.Clone(), Category: cat}
		parent.Children = append(parent.Children, n)
		t.nodes[key(cat.Path)] = n
	}

	for _, row := range idxs {
		idx := row.(*types.Index)
		n, ok := t.nodes[key(idx.Categories)]
		if !ok || n == t.Root {
			t.orphanIndexes = append(t.orphanIndexes, idx)
			continue
		}
		n.Indexes = append(n.Indexes, &Entry{Title: idx.Title, Order: idx.Order, Hidden: idx.Hidden})
	}

	t.Walk(func(n *Node, _ int) bool {
		sortNode(n)
		return true
	})
	return t, nil
}

func fetchAll(src types.TableSource, name string) ([]any, error) {
	tbl, err := src.GetTable(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	rows, err := tbl.Fetch(nil)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	return rows, nil
}

// sortNode orders children by name and indexes by their first order value,
// then title. Indexes without an order go last.
func sortNode(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Name < n.Children[j].Name
	})
	sort.SliceStable(n.Indexes, func(i, j int) bool {
		a, b := firstOrder(n.Indexes[i]), firstOrder(n.Indexes[j])
		if a != b {
			return a < b
		}
		return n.Indexes[i].Title < n.Indexes[j].Title
	})
}

func firstOrder(e *Entry) int {
	if len(e.Order) == 0 {
		return math.MaxInt
	}
	return e.Order[0]
}

// Find returns the node at path. The empty path is the root.
func (t *Tree) Find(path types.Path) (*Node, bool) {
	n, ok := t.nodes[key(path)]
	return n, ok
}

// Children returns the child nodes of the category at path.
// Returns ErrNotFound if path is not in the tree.
func (t *Tree) Children(path types.Path) ([]*Node, error) {
	n, ok := t.Find(path)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", path.String(), types.ErrNotFound)
	}
	return n.Children, nil
}

// Walk visits the tree depth first, parents before children. Returning
// false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
}

// Report lists the structural problems of a tree.
type Report struct {
	OrphanIndexes    []string     `json:"orphan_indexes"`
	OrphanCategories []types.Path `json:"orphan_categories"`
	EmptyCategories  []types.Path `json:"empty_categories"`
}

// Clean reports whether the tree has no orphans and no empty categories.
func (r Report) Clean() bool {
	return len(r.OrphanIndexes) == 0 && len(r.OrphanCategories) == 0 && len(r.EmptyCategories) == 0
}

// Report returns the orphan indexes, the categories not reachable from the
// root and the categories with no visible index anywhere below them.
func (t *Tree) Report() Report {
	rep := Report{
		OrphanIndexes:    []string{},
		OrphanCategories: []types.Path{},
		EmptyCategories:  []types.Path{},
	}
	for _, idx := range t.orphanIndexes {
		rep.OrphanIndexes = append(rep.OrphanIndexes, idx.Title)
	}
	sort.Strings(rep.OrphanIndexes)
	for _, cat := range t.orphanCategories {
		rep.OrphanCategories = append(rep.OrphanCategories, cat.Path.Clone())
	}

	var visible func(n *Node) bool
	visible = func(n *Node) bool {
		has := false
		for _, e := range n.Indexes {
			if !e.Hidden {
				has = true
			}
		}
		for _, c := range n.Children {
			if visible(c) {
				has = true
			}
		}
		if !has && n != t.Root {
			rep.EmptyCategories = append(rep.EmptyCategories, n.Path.Clone())
		}
		return has
	}
	visible(t.Root)

	sort.Slice(rep.EmptyCategories, func(i, j int) bool {
		return rep.EmptyCategories[i].String() < rep.EmptyCategories[j].String()
	})
	return rep
}
