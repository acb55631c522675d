// Package sqlite implements the SQLite backend for the librarian catalog.
// SQLite is the query engine; the JSONL files in the data directory are the
// source of truth and are reloaded into a fresh database on every Attach.
package sqlite

// Schema DDL for all tables. Paths, scopes, titles and orders are stored as
// JSON arrays so positional segments can be matched with json_extract.
const (
	createCategories = `CREATE TABLE categories (
    category_id TEXT PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    last_path TEXT NOT NULL,
    shared_title TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createTerms = `CREATE TABLE terms (
    term_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    scheme TEXT NOT NULL DEFAULT '',
    scope TEXT NOT NULL DEFAULT '[]',
    titles TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    UNIQUE (scope, name)
);`

	createIndexes = `CREATE TABLE indexes (
    index_id TEXT PRIMARY KEY,
    title TEXT NOT NULL UNIQUE,
    categories TEXT NOT NULL,
    sort_order TEXT NOT NULL DEFAULT '[]',
    hidden INTEGER NOT NULL DEFAULT 0,
    dependence TEXT NOT NULL DEFAULT '',
    base_text_titles TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createJournal = `CREATE TABLE journal (
    entry_id TEXT PRIMARY KEY,
    plan TEXT NOT NULL,
    step INTEGER NOT NULL,
    op TEXT NOT NULL,
    key TEXT NOT NULL UNIQUE,
    applied_at TEXT NOT NULL
);`
)

// Index DDL for common queries.
const (
	idxCategoriesHead = `CREATE INDEX idx_categories_head ON categories(json_extract(path, '$[0]'));`
	idxIndexesHead    = `CREATE INDEX idx_indexes_head ON indexes(json_extract(categories, '$[0]'));`
	idxTermsName      = `CREATE INDEX idx_terms_name ON terms(name);`
	idxJournalPlan    = `CREATE INDEX idx_journal_plan ON journal(plan, step);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createCategories,
	createTerms,
	createIndexes,
	createJournal,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxCategoriesHead,
	idxIndexesHead,
	idxTermsName,
	idxJournalPlan,
}
