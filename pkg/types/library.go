package types

import "errors"

// TableSource resolves tables by name. Both an attached Library and the view
// handed to a Transaction callback satisfy it, so catalog operations can run
// with or without an enclosing transaction.
type TableSource interface {
	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if the name is not a standard table.
	GetTable(name string) (Table, error)
}

// Library defines the interface for backend-agnostic catalog storage.
// Callers attach to a backend, access tables by name, and detach when done.
type Library interface {
	TableSource

	// Attach connects the Library to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations on tables return ErrLibraryDetached.
	Detach() error

	// Transaction runs fn against tables bound to a single transaction.
	// If fn returns an error every write made through the view is rolled
	// back and the error is returned unchanged.
	Transaction(fn func(TableSource) error) error

	// DataDir returns the directory holding the JSONL files.
	DataDir() string
}

// Library lifecycle errors.
var (
	ErrLibraryDetached = errors.New("library is detached")
	ErrAlreadyAttached = errors.New("library is already attached")
	ErrTableNotFound   = errors.New("table not found")
)
