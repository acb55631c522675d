// Package types defines the Library and Table interfaces, the catalog entity
// types (Category, Term, Index, JournalEntry), the Path value type, and the
// standard errors shared by the store, the reorganizer and the CLI.
package types
