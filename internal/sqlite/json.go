package sqlite

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// JSON record structures that mirror the JSONL file format. Keys match the
// SQLite column names so the loader can insert records generically; array
// columns are carried as raw JSON.

// categoryJSON represents a category in categories.jsonl.
type categoryJSON struct {
	CategoryID  string          `json:"category_id"`
	Path        json.RawMessage `json:"path"`
	LastPath    string          `json:"last_path"`
	SharedTitle string          `json:"shared_title"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// termJSON represents a term in terms.jsonl.
type termJSON struct {
	TermID    string          `json:"term_id"`
	Name      string          `json:"name"`
	Scheme    string          `json:"scheme"`
	Scope     json.RawMessage `json:"scope"`
	Titles    json.RawMessage `json:"titles"`
	CreatedAt string          `json:"created_at"`
}

// indexJSON represents an index in indexes.jsonl.
type indexJSON struct {
	IndexID        string          `json:"index_id"`
	Title          string          `json:"title"`
	Categories     json.RawMessage `json:"categories"`
	SortOrder      json.RawMessage `json:"sort_order"`
	Hidden         bool            `json:"hidden"`
	Dependence     string          `json:"dependence"`
	BaseTextTitles json.RawMessage `json:"base_text_titles"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// journalJSON represents an applied step in journal.jsonl.
type journalJSON struct {
	EntryID   string `json:"entry_id"`
	Plan      string `json:"plan"`
	Step      int    `json:"step"`
	Op        string `json:"op"`
	Key       string `json:"key"`
	AppliedAt string `json:"applied_at"`
}

// persistTable rewrites the JSONL file of a table from the database. Rows are
// written in primary-key order so unchanged data produces identical files.
// The caller must hold b.mu.
func (b *Backend) persistTable(name string) error {
	var (
		mapping = jsonlMappingFor(name)
		records []json.RawMessage
		err     error
	)
	if mapping == nil {
		return fmt.Errorf("persisting %s: no JSONL mapping", name)
	}

	switch name {
	case "categories":
		records, err = b.categoryRecords()
	case "terms":
		records, err = b.termRecords()
	case "indexes":
		records, err = b.indexRecords()
	case "journal":
		records, err = b.journalRecords()
	}
	if err != nil {
		return fmt.Errorf("persisting %s: %w", mapping.file, err)
	}
	return writeJSONL(filepath.Join(b.config.DataDir, mapping.file), records)
}

func (b *Backend) categoryRecords() ([]json.RawMessage, error) {
	rows, err := b.db.Query("SELECT " + categoryColumns + " FROM categories ORDER BY category_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var (
			rec  categoryJSON
			path string
		)
		if err := rows.Scan(&rec.CategoryID, &path, &rec.LastPath, &rec.SharedTitle, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Path = json.RawMessage(path)
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, line)
	}
	return records, rows.Err()
}

func (b *Backend) termRecords() ([]json.RawMessage, error) {
	rows, err := b.db.Query("SELECT " + termColumns + " FROM terms ORDER BY term_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var (
			rec           termJSON
			scope, titles string
		)
		if err := rows.Scan(&rec.TermID, &rec.Name, &rec.Scheme, &scope, &titles, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Scope = json.RawMessage(scope)
		rec.Titles = json.RawMessage(titles)
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, line)
	}
	return records, rows.Err()
}

func (b *Backend) indexRecords() ([]json.RawMessage, error) {
	rows, err := b.db.Query("SELECT " + indexColumns + " FROM indexes ORDER BY index_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var (
			rec                   indexJSON
			cats, order, baseText string
			hidden                int
		)
		if err := rows.Scan(&rec.IndexID, &rec.Title, &cats, &order, &hidden,
			&rec.Dependence, &baseText, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Categories = json.RawMessage(cats)
		rec.SortOrder = json.RawMessage(order)
		rec.BaseTextTitles = json.RawMessage(baseText)
		rec.Hidden = hidden != 0
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, line)
	}
	return records, rows.Err()
}

func (b *Backend) journalRecords() ([]json.RawMessage, error) {
	rows, err := b.db.Query("SELECT " + journalColumns + " FROM journal ORDER BY entry_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec journalJSON
		if err := rows.Scan(&rec.EntryID, &rec.Plan, &rec.Step, &rec.Op, &rec.Key, &rec.AppliedAt); err != nil {
			return nil, err
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, line)
	}
	return records, rows.Err()
}
