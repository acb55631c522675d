package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const termColumns = "term_id, name, scheme, scope, titles, created_at"

func (t *table) getTerm(id string) (any, error) {
	row := t.q().QueryRow("SELECT "+termColumns+" FROM terms WHERE term_id = ?", id)
	term, err := hydrateTerm(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting term %s: %w", id, err)
	}
	return term, nil
}

// setTerm creates or updates a term. Names are unique within a scope.
func (t *table) setTerm(id string, data any) (string, error) {
	term, ok := data.(*types.Term)
	if !ok {
		return "", types.ErrInvalidData
	}
	if err := term.Validate(); err != nil {
		return "", err
	}

	scopeJSON, err := encodeJSON(term.Scope)
	if err != nil {
		return "", fmt.Errorf("encoding scope: %w", err)
	}
	titlesJSON, err := encodeJSON(term.Titles)
	if err != nil {
		return "", fmt.Errorf("encoding titles: %w", err)
	}

	if id == "" {
		id = generateUUID()
	}

	dup, err := exists(t.q(),
		"SELECT 1 FROM terms WHERE scope = ? AND name = ? AND term_id != ?", scopeJSON, term.Name, id)
	if err != nil {
		return "", fmt.Errorf("checking term name uniqueness: %w", err)
	}
	if dup {
		return "", types.ErrDuplicateName
	}

	found, err := exists(t.q(), "SELECT 1 FROM terms WHERE term_id = ?", id)
	if err != nil {
		return "", fmt.Errorf("checking term existence: %w", err)
	}

	if term.CreatedAt.IsZero() {
		term.CreatedAt = now()
	}

	if found {
		_, err = t.q().Exec(
			"UPDATE terms SET name = ?, scheme = ?, scope = ?, titles = ? WHERE term_id = ?",
			term.Name, term.Scheme, scopeJSON, titlesJSON, id,
		)
	} else {
		_, err = t.q().Exec(
			"INSERT INTO terms ("+termColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			id, term.Name, term.Scheme, scopeJSON, titlesJSON, formatTime(term.CreatedAt),
		)
	}
	if err != nil {
		return "", fmt.Errorf("persisting term: %w", err)
	}

	term.TermID = id
	if err := t.written(); err != nil {
		return "", err
	}
	return id, nil
}

// fetchTerms supports name, scope, scheme, limit and offset.
func (t *table) fetchTerms(filter types.Filter) ([]any, error) {
	var qb query
	if name, ok, err := filterString(filter, types.FilterName); err != nil {
		return nil, err
	} else if ok {
		qb.where("name = ?", name)
	}
	if scheme, ok, err := filterString(filter, types.FilterScheme); err != nil {
		return nil, err
	} else if ok {
		qb.where("scheme = ?", scheme)
	}
	if scope, ok, err := filterPath(filter, types.FilterScope); err != nil {
		return nil, err
	} else if ok {
		qb.pathExact("scope", scope)
	}

	sqlText, err := qb.build("SELECT "+termColumns+" FROM terms", "name, scope", filter)
	if err != nil {
		return nil, err
	}

	rows, err := t.q().Query(sqlText, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching terms: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		term, err := hydrateTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		results = append(results, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating terms: %w", err)
	}
	return results, nil
}

func hydrateTerm(s scanner) (*types.Term, error) {
	var (
		term                           types.Term
		scopeJSON, titlesJSON, created string
	)
	if err := s.Scan(&term.TermID, &term.Name, &term.Scheme, &scopeJSON, &titlesJSON, &created); err != nil {
		return nil, err
	}
	scope, err := decodePath(scopeJSON)
	if err != nil {
		return nil, err
	}
	term.Scope = scope
	if err := json.Unmarshal([]byte(titlesJSON), &term.Titles); err != nil {
		return nil, fmt.Errorf("decoding titles: %w", err)
	}
	if term.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &term, nil
}
