package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const journalColumns = "entry_id, plan, step, op, key, applied_at"

func (t *table) getJournalEntry(id string) (any, error) {
	row := t.q().QueryRow("SELECT "+journalColumns+" FROM journal WHERE entry_id = ?", id)
	e, err := hydrateJournalEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting journal entry %s: %w", id, err)
	}
	return e, nil
}

// setJournalEntry records an applied step. Keys are unique, so recording the
// same step twice fails with ErrDuplicateName.
func (t *table) setJournalEntry(id string, data any) (string, error) {
	e, ok := data.(*types.JournalEntry)
	if !ok {
		return "", types.ErrInvalidData
	}
	if strings.TrimSpace(e.Key) == "" || strings.TrimSpace(e.Op) == "" {
		return "", types.ErrInvalidName
	}

	if id == "" {
		id = generateUUID()
	}

	dup, err := exists(t.q(), "SELECT 1 FROM journal WHERE key = ? AND entry_id != ?", e.Key, id)
	if err != nil {
		return "", fmt.Errorf("checking journal key uniqueness: %w", err)
	}
	if dup {
		return "", types.ErrDuplicateName
	}

	found, err := exists(t.q(), "SELECT 1 FROM journal WHERE entry_id = ?", id)
	if err != nil {
		return "", fmt.Errorf("checking journal entry existence: %w", err)
	}

	if e.AppliedAt.IsZero() {
		e.AppliedAt = now()
	}

	if found {
		_, err = t.q().Exec(
			"UPDATE journal SET plan = ?, step = ?, op = ?, key = ?, applied_at = ? WHERE entry_id = ?",
			e.Plan, e.Step, e.Op, e.Key, formatTime(e.AppliedAt), id,
		)
	} else {
		_, err = t.q().Exec(
			"INSERT INTO journal ("+journalColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			id, e.Plan, e.Step, e.Op, e.Key, formatTime(e.AppliedAt),
		)
	}
	if err != nil {
		return "", fmt.Errorf("persisting journal entry: %w", err)
	}

	e.EntryID = id
	if err := t.written(); err != nil {
		return "", err
	}
	return id, nil
}

// fetchJournal supports plan, key, limit and offset, in application order.
func (t *table) fetchJournal(filter types.Filter) ([]any, error) {
	var qb query
	if plan, ok, err := filterString(filter, types.FilterPlan); err != nil {
		return nil, err
	} else if ok {
		qb.where("plan = ?", plan)
	}
	if key, ok, err := filterString(filter, types.FilterKey); err != nil {
		return nil, err
	} else if ok {
		qb.where("key = ?", key)
	}

	sqlText, err := qb.build("SELECT "+journalColumns+" FROM journal", "applied_at, plan, step", filter)
	if err != nil {
		return nil, err
	}

	rows, err := t.q().Query(sqlText, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching journal: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		e, err := hydrateJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return results, nil
}

func hydrateJournalEntry(s scanner) (*types.JournalEntry, error) {
	var (
		e       types.JournalEntry
		applied string
	)
	if err := s.Scan(&e.EntryID, &e.Plan, &e.Step, &e.Op, &e.Key, &applied); err != nil {
		return nil, err
	}
	var err error
	if e.AppliedAt, err = parseTime(applied); err != nil {
		return nil, fmt.Errorf("parsing applied_at: %w", err)
	}
	return &e, nil
}
