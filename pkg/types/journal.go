package types

import "time"

// JournalEntry records one applied migration step. The journal is the
// apply-log that makes re-running a plan skip the steps already done.
type JournalEntry struct {
	EntryID   string    `json:"entry_id"`
	Plan      string    `json:"plan"`
	Step      int       `json:"step"`
	Op        string    `json:"op"`
	Key       string    `json:"key"` // Unique; derived from plan, step and step content.
	AppliedAt time.Time `json:"applied_at"`
}
