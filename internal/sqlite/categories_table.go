package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const categoryColumns = "category_id, path, last_path, shared_title, created_at, updated_at"

func (t *table) getCategory(id string) (any, error) {
	row := t.q().QueryRow("SELECT "+categoryColumns+" FROM categories WHERE category_id = ?", id)
	cat, err := hydrateCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %s: %w", id, err)
	}
	return cat, nil
}

// setCategory creates or updates a category. The path must be unique across
// the tree; LastPath always follows the terminal segment.
func (t *table) setCategory(id string, data any) (string, error) {
	cat, ok := data.(*types.Category)
	if !ok {
		return "", types.ErrInvalidData
	}
	cat.LastPath = cat.Path.Last()
	if err := cat.Validate(); err != nil {
		return "", err
	}

	pathJSON, err := encodeJSON(cat.Path)
	if err != nil {
		return "", fmt.Errorf("encoding path: %w", err)
	}

	if id == "" {
		id = generateUUID()
	}

	dup, err := exists(t.q(),
		"SELECT 1 FROM categories WHERE path = ? AND category_id != ?", pathJSON, id)
	if err != nil {
		return "", fmt.Errorf("checking category path uniqueness: %w", err)
	}
	if dup {
		return "", types.ErrDuplicatePath
	}

	found, err := exists(t.q(), "SELECT 1 FROM categories WHERE category_id = ?", id)
	if err != nil {
		return "", fmt.Errorf("checking category existence: %w", err)
	}

	ts := now()
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = ts
	}
	cat.UpdatedAt = ts

	if found {
		_, err = t.q().Exec(
			"UPDATE categories SET path = ?, last_path = ?, shared_title = ?, updated_at = ? WHERE category_id = ?",
			pathJSON, cat.LastPath, cat.SharedTitle, formatTime(cat.UpdatedAt), id,
		)
	} else {
		_, err = t.q().Exec(
			"INSERT INTO categories ("+categoryColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			id, pathJSON, cat.LastPath, cat.SharedTitle, formatTime(cat.CreatedAt), formatTime(cat.UpdatedAt),
		)
	}
	if err != nil {
		return "", fmt.Errorf("persisting category: %w", err)
	}

	cat.CategoryID = id
	if err := t.written(); err != nil {
		return "", err
	}
	return id, nil
}

// fetchCategories supports path, path_prefix, limit and offset. Results come
// back shallowest first, then by path text, so parents precede children.
func (t *table) fetchCategories(filter types.Filter) ([]any, error) {
	var qb query
	if p, ok, err := filterPath(filter, types.FilterPath); err != nil {
		return nil, err
	} else if ok {
		qb.pathExact("path", p)
	}
	if p, ok, err := filterPath(filter, types.FilterPathPrefix); err != nil {
		return nil, err
	} else if ok {
		qb.pathPrefix("path", p)
	}

	sqlText, err := qb.build(
		"SELECT "+categoryColumns+" FROM categories",
		"json_array_length(path), path",
		filter,
	)
	if err != nil {
		return nil, err
	}

	rows, err := t.q().Query(sqlText, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		cat, err := hydrateCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		results = append(results, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	if results == nil {
		results = []any{}
	}
	return results, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateCategory(s scanner) (*types.Category, error) {
	var (
		cat                  types.Category
		pathJSON             string
		createdAt, updatedAt string
	)
	if err := s.Scan(&cat.CategoryID, &pathJSON, &cat.LastPath, &cat.SharedTitle, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p, err := decodePath(pathJSON)
	if err != nil {
		return nil, err
	}
	cat.Path = p
	if cat.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if cat.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &cat, nil
}
