package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const indexColumns = "index_id, title, categories, sort_order, hidden, dependence, base_text_titles, created_at, updated_at"

func (t *table) getIndex(id string) (any, error) {
	row := t.q().QueryRow("SELECT "+indexColumns+" FROM indexes WHERE index_id = ?", id)
	idx, err := hydrateIndex(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting index %s: %w", id, err)
	}
	return idx, nil
}

// setIndex creates or updates an index. Titles are unique.
func (t *table) setIndex(id string, data any) (string, error) {
	idx, ok := data.(*types.Index)
	if !ok {
		return "", types.ErrInvalidData
	}
	if err := idx.Validate(); err != nil {
		return "", err
	}

	catsJSON, err := encodeJSON(idx.Categories)
	if err != nil {
		return "", fmt.Errorf("encoding categories: %w", err)
	}
	orderJSON, err := encodeJSON(idx.Order)
	if err != nil {
		return "", fmt.Errorf("encoding order: %w", err)
	}
	baseJSON, err := encodeJSON(idx.BaseTextTitles)
	if err != nil {
		return "", fmt.Errorf("encoding base text titles: %w", err)
	}

	if id == "" {
		id = generateUUID()
	}

	dup, err := exists(t.q(),
		"SELECT 1 FROM indexes WHERE title = ? AND index_id != ?", idx.Title, id)
	if err != nil {
		return "", fmt.Errorf("checking index title uniqueness: %w", err)
	}
	if dup {
		return "", types.ErrDuplicateName
	}

	found, err := exists(t.q(), "SELECT 1 FROM indexes WHERE index_id = ?", id)
	if err != nil {
		return "", fmt.Errorf("checking index existence: %w", err)
	}

	ts := now()
	if idx.CreatedAt.IsZero() {
		idx.CreatedAt = ts
	}
	idx.UpdatedAt = ts

	hidden := 0
	if idx.Hidden {
		hidden = 1
	}

	if found {
		_, err = t.q().Exec(
			`UPDATE indexes SET title = ?, categories = ?, sort_order = ?, hidden = ?,
			 dependence = ?, base_text_titles = ?, updated_at = ? WHERE index_id = ?`,
			idx.Title, catsJSON, orderJSON, hidden, idx.Dependence, baseJSON, formatTime(idx.UpdatedAt), id,
		)
	} else {
		_, err = t.q().Exec(
			"INSERT INTO indexes ("+indexColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			id, idx.Title, catsJSON, orderJSON, hidden, idx.Dependence, baseJSON,
			formatTime(idx.CreatedAt), formatTime(idx.UpdatedAt),
		)
	}
	if err != nil {
		return "", fmt.Errorf("persisting index: %w", err)
	}

	idx.IndexID = id
	if err := t.written(); err != nil {
		return "", err
	}
	return id, nil
}

// fetchIndexes supports title, categories, categories_prefix, limit and
// offset. Results are ordered by title.
func (t *table) fetchIndexes(filter types.Filter) ([]any, error) {
	var qb query
	if title, ok, err := filterString(filter, types.FilterTitle); err != nil {
		return nil, err
	} else if ok {
		qb.where("title = ?", title)
	}
	if p, ok, err := filterPath(filter, types.FilterCategories); err != nil {
		return nil, err
	} else if ok {
		qb.pathExact("categories", p)
	}
	if p, ok, err := filterPath(filter, types.FilterCategoriesPrefix); err != nil {
		return nil, err
	} else if ok {
		qb.pathPrefix("categories", p)
	}

	sqlText, err := qb.build("SELECT "+indexColumns+" FROM indexes", "title", filter)
	if err != nil {
		return nil, err
	}

	rows, err := t.q().Query(sqlText, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching indexes: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		idx, err := hydrateIndex(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		results = append(results, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexes: %w", err)
	}
	return results, nil
}

func hydrateIndex(s scanner) (*types.Index, error) {
	var (
		idx                           types.Index
		catsJSON, orderJSON, baseJSON string
		hidden                        int
		createdAt, updatedAt          string
	)
	if err := s.Scan(&idx.IndexID, &idx.Title, &catsJSON, &orderJSON, &hidden,
		&idx.Dependence, &baseJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	cats, err := decodePath(catsJSON)
	if err != nil {
		return nil, err
	}
	idx.Categories = cats
	idx.Hidden = hidden != 0
	if err := json.Unmarshal([]byte(orderJSON), &idx.Order); err != nil {
		return nil, fmt.Errorf("decoding order: %w", err)
	}
	if len(idx.Order) == 0 {
		idx.Order = nil
	}
	if err := json.Unmarshal([]byte(baseJSON), &idx.BaseTextTitles); err != nil {
		return nil, fmt.Errorf("decoding base text titles: %w", err)
	}
	if len(idx.BaseTextTitles) == 0 {
		idx.BaseTextTitles = nil
	}
	if idx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if idx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &idx, nil
}
