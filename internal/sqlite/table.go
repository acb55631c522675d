package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

var _ types.Table = (*table)(nil)

// table implements types.Table for a single entity type. Outside a
// transaction it takes the backend lock per call and persists JSONL after
// each write; inside one (tx != nil) the lock is already held by
// Backend.Transaction and persistence waits for the commit.
type table struct {
	name    string
	backend *Backend
	tx      *txState
}

// txState is shared by the tables of one Transaction view.
type txState struct {
	tx    *sql.Tx
	dirty map[string]bool
}

// dbtx is the query surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (t *table) q() dbtx {
	if t.tx != nil {
		return t.tx.tx
	}
	return t.backend.db
}

// acquire takes the backend lock unless the table belongs to a transaction,
// and fails once the backend is detached.
func (t *table) acquire(write bool) (func(), error) {
	if t.tx != nil {
		return func() {}, nil
	}
	b := t.backend
	if write {
		b.mu.Lock()
		if !b.attached {
			b.mu.Unlock()
			return nil, types.ErrLibraryDetached
		}
		return b.mu.Unlock, nil
	}
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, types.ErrLibraryDetached
	}
	return b.mu.RUnlock, nil
}

// written records that the table changed.
func (t *table) written() error {
	if t.tx != nil {
		t.tx.dirty[t.name] = true
		return nil
	}
	return t.backend.afterWriteLocked(t.name)
}

// Get retrieves an entity by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *table) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	release, err := t.acquire(false)
	if err != nil {
		return nil, err
	}
	defer release()

	switch t.name {
	case types.TableCategories:
		return t.getCategory(id)
	case types.TableTerms:
		return t.getTerm(id)
	case types.TableIndexes:
		return t.getIndex(id)
	case types.TableJournal:
		return t.getJournalEntry(id)
	default:
		return nil, types.ErrTableNotFound
	}
}

// Set creates or updates an entity. If id is empty, generates a UUID v7.
// Returns the entity ID and any error.
func (t *table) Set(id string, data any) (string, error) {
	release, err := t.acquire(true)
	if err != nil {
		return "", err
	}
	defer release()

	switch t.name {
	case types.TableCategories:
		return t.setCategory(id, data)
	case types.TableTerms:
		return t.setTerm(id, data)
	case types.TableIndexes:
		return t.setIndex(id, data)
	case types.TableJournal:
		return t.setJournalEntry(id, data)
	default:
		return "", types.ErrTableNotFound
	}
}

// Delete removes an entity by ID. Deletes never cascade: removing a
// category leaves its descendants and attached indexes in place.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *table) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	release, err := t.acquire(true)
	if err != nil {
		return err
	}
	defer release()

	var idColumn string
	switch t.name {
	case types.TableCategories:
		idColumn = "category_id"
	case types.TableTerms:
		idColumn = "term_id"
	case types.TableIndexes:
		idColumn = "index_id"
	case types.TableJournal:
		idColumn = "entry_id"
	default:
		return types.ErrTableNotFound
	}

	res, err := t.q().Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.name, idColumn), id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", t.name, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return t.written()
}

// Fetch returns entities matching the filter. Empty filter matches all.
func (t *table) Fetch(filter types.Filter) ([]any, error) {
	release, err := t.acquire(false)
	if err != nil {
		return nil, err
	}
	defer release()

	switch t.name {
	case types.TableCategories:
		return t.fetchCategories(filter)
	case types.TableTerms:
		return t.fetchTerms(filter)
	case types.TableIndexes:
		return t.fetchIndexes(filter)
	case types.TableJournal:
		return t.fetchJournal(filter)
	default:
		return nil, types.ErrTableNotFound
	}
}

// query accumulates WHERE conditions for Fetch.
type query struct {
	conditions []string
	args       []any
}

func (qb *query) where(cond string, args ...any) {
	qb.conditions = append(qb.conditions, cond)
	qb.args = append(qb.args, args...)
}

// pathPrefix adds one equality per segment of prefix against the JSON array
// in column: a conjunction over positional segments.
func (qb *query) pathPrefix(column string, prefix types.Path) {
	for i, seg := range prefix {
		qb.where(fmt.Sprintf("json_extract(%s, '$[%d]') = ?", column, i), seg)
	}
}

// pathExact matches column against p segment by segment plus length.
func (qb *query) pathExact(column string, p types.Path) {
	qb.pathPrefix(column, p)
	qb.where(fmt.Sprintf("json_array_length(%s) = ?", column), len(p))
}

// build renders the SELECT with conditions, ordering and paging.
func (qb *query) build(base, orderBy string, filter types.Filter) (string, error) {
	sqlText := base
	if len(qb.conditions) > 0 {
		sqlText += " WHERE " + strings.Join(qb.conditions, " AND ")
	}
	sqlText += " ORDER BY " + orderBy

	limit, err := filterInt(filter, types.FilterLimit)
	if err != nil {
		return "", err
	}
	offset, err := filterInt(filter, types.FilterOffset)
	if err != nil {
		return "", err
	}
	if limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", limit)
	} else if offset > 0 {
		sqlText += " LIMIT -1"
	}
	if offset > 0 {
		sqlText += fmt.Sprintf(" OFFSET %d", offset)
	}
	return sqlText, nil
}

// filterString returns the string value of key, if present.
func filterString(filter types.Filter, key string) (string, bool, error) {
	v, ok := filter[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, types.ErrInvalidFilter
	}
	return s, true, nil
}

// filterPath returns the path value of key, if present. It accepts
// types.Path, []string, []any of strings (decoded JSON) and a bare string
// as a one-segment path.
func filterPath(filter types.Filter, key string) (types.Path, bool, error) {
	v, ok := filter[key]
	if !ok {
		return nil, false, nil
	}
	switch p := v.(type) {
	case types.Path:
		return p, true, nil
	case []string:
		return types.Path(p), true, nil
	case string:
		return types.Path{p}, true, nil
	case []any:
		out := make(types.Path, 0, len(p))
		for _, seg := range p {
			s, ok := seg.(string)
			if !ok {
				return nil, false, types.ErrInvalidFilter
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, false, types.ErrInvalidFilter
	}
}

// filterInt returns a non-negative integer filter value; JSON numbers
// arrive as float64.
func filterInt(filter types.Filter, key string) (int, error) {
	v, ok := filter[key]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, types.ErrInvalidFilter
	}
}

// encodeJSON marshals v for a JSON text column. Nil slices are stored as [].
func encodeJSON(v any) (string, error) {
	switch x := v.(type) {
	case types.Path:
		v = x.Clone()
	case []int:
		if x == nil {
			v = []int{}
		}
	case []string:
		if x == nil {
			v = []string{}
		}
	case []types.Title:
		if x == nil {
			v = []types.Title{}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodePath parses a JSON path column.
func decodePath(s string) (types.Path, error) {
	var p types.Path
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("decoding path %q: %w", s, err)
	}
	if p == nil {
		p = types.Path{}
	}
	return p, nil
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// now returns the current time at the precision stored in the database.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// exists reports whether a row matches the query.
func exists(q dbtx, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
