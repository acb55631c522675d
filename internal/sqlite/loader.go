package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlMapping ties a JSONL file to its SQLite table and column list.
type jsonlMapping struct {
	file    string
	table   string
	columns []string
}

// jsonlTableMapping lists every persisted table. Terms load before the
// categories that name them.
var jsonlTableMapping = []jsonlMapping{
	{"terms.jsonl", "terms", []string{"term_id", "name", "scheme", "scope", "titles", "created_at"}},
	{"categories.jsonl", "categories", []string{"category_id", "path", "last_path", "shared_title", "created_at", "updated_at"}},
	{"indexes.jsonl", "indexes", []string{"index_id", "title", "categories", "sort_order", "hidden", "dependence", "base_text_titles", "created_at", "updated_at"}},
	{"journal.jsonl", "journal", []string{"entry_id", "plan", "step", "op", "key", "applied_at"}},
}

func jsonlMappingFor(table string) *jsonlMapping {
	for i := range jsonlTableMapping {
		if jsonlTableMapping[i].table == table {
			return &jsonlTableMapping[i]
		}
	}
	return nil
}

// columnDefaults fills columns a record omits; NOT NULL columns would
// otherwise reject hand-edited or older records.
var columnDefaults = map[string]any{
	"scope":            "[]",
	"titles":           "[]",
	"sort_order":       "[]",
	"base_text_titles": "[]",
	"hidden":           0,
	"dependence":       "",
	"scheme":           "",
	"shared_title":     "",
}

// loadAllJSONL reads each JSONL file from dataDir and inserts its records into
// the matching SQLite table. Loading is transactional: either every file
// loads or the database stays empty. Malformed lines and records that violate
// a constraint are skipped; unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mapping := range jsonlTableMapping {
		path := filepath.Join(dataDir, mapping.file)
		records, err := readJSONL(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", mapping.file, err)
		}

		if len(records) == 0 {
			continue
		}

		if err := insertRecords(tx, mapping.table, mapping.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}

	return nil
}

// insertRecords inserts parsed JSONL records into a SQLite table. Only the
// listed columns are extracted; JSON arrays and objects are re-serialized
// into their text columns.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			val, ok := obj[col]
			if !ok || val == nil {
				args[i] = columnDefaults[col]
				continue
			}
			switch v := val.(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					args[i] = columnDefaults[col]
					continue
				}
				args[i] = string(b)
			case bool:
				if v {
					args[i] = 1
				} else {
					args[i] = 0
				}
			case float64:
				args[i] = int64(v)
			default:
				args[i] = val
			}
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}

	return nil
}
