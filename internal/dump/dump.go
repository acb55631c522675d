// Package dump moves whole catalogs in and out of a library as a single
// JSON document. Entity IDs are preserved, so exporting a library and
// importing the result into an empty one reproduces it.
package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Document is the interchange form of a catalog.
type Document struct {
	Terms      []*types.Term     `json:"terms"`
	Categories []*types.Category `json:"categories"`
	Indexes    []*types.Index    `json:"indexes"`
}

// Stats counts the entities written by Import.
type Stats struct {
	Terms      int `json:"terms"`
	Categories int `json:"categories"`
	Indexes    int `json:"indexes"`
}

// Export reads every term, category and index from src. Terms are ordered
// by name then scope, categories parents first, indexes by title.
func Export(src types.TableSource) (*Document, error) {
	doc := &Document{
		Terms:      []*types.Term{},
		Categories: []*types.Category{},
		Indexes:    []*types.Index{},
	}

	rows, err := fetch(src, types.TableTerms)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		doc.Terms = append(doc.Terms, row.(*types.Term))
	}

	if rows, err = fetch(src, types.TableCategories); err != nil {
		return nil, err
	}
	for _, row := range rows {
		doc.Categories = append(doc.Categories, row.(*types.Category))
	}

	if rows, err = fetch(src, types.TableIndexes); err != nil {
		return nil, err
	}
	for _, row := range rows {
		doc.Indexes = append(doc.Indexes, row.(*types.Index))
	}
	return doc, nil
}

// Import writes the entities of doc into src: terms first, then categories
// shallowest first, then indexes. An entity whose ID is already stored is
// replaced. The first rejected entity stops the import; run it inside a
// transaction to make it all or nothing.
func Import(src types.TableSource, doc *Document) (Stats, error) {
	var st Stats

	terms, err := src.GetTable(types.TableTerms)
	if err != nil {
		return st, err
	}
	for _, t := range doc.Terms {
		if _, err := terms.Set(t.TermID, t); err != nil {
			return st, fmt.Errorf("importing term %q: %w", t.Name, err)
		}
		st.Terms++
	}

	cats, err := src.GetTable(types.TableCategories)
	if err != nil {
		return st, err
	}
	ordered := append([]*types.Category(nil), doc.Categories...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Path.Len() < ordered[j].Path.Len()
	})
	for _, c := range ordered {
		if _, err := cats.Set(c.CategoryID, c); err != nil {
			return st, fmt.Errorf("importing category %q: %w", c.Path.String(), err)
		}
		st.Categories++
	}

	idxs, err := src.GetTable(types.TableIndexes)
	if err != nil {
		return st, err
	}
	for _, idx := range doc.Indexes {
		if _, err := idxs.Set(idx.IndexID, idx); err != nil {
			return st, fmt.Errorf("importing index %q: %w", idx.Title, err)
		}
		st.Indexes++
	}
	return st, nil
}

// Read decodes a document from r.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return &doc, nil
}

// Write encodes doc to w as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return nil
}

func fetch(src types.TableSource, name string) ([]any, error) {
	tbl, err := src.GetTable(name)
	if err != nil {
		return nil, err
	}
	rows, err := tbl.Fetch(nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return rows, nil
}
