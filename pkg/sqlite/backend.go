// Package sqlite exposes the SQLite catalog store to code outside this
// module while keeping its implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// NewBackend creates a new SQLite catalog store.
// The store is not attached; call Attach with a Config to open it.
//
// Example:
//
//	lib := sqlite.NewBackend()
//	err := lib.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".librarian-db",
//	})
//	defer lib.Detach()
func NewBackend() types.Library {
	return sqlite.NewBackend()
}
