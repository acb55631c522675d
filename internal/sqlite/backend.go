package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// dbFileName is the SQLite file created inside DataDir. It is rebuilt from
// the JSONL files on every Attach.
const dbFileName = "librarian.db"

var _ types.Library = (*Backend)(nil)

// Backend implements the Library interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*table

	// Sync strategy state
	syncStrategy  string         // effective sync strategy: immediate, on_close, batch
	batchSize     int            // number of writes before batch flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // queue of writes pending JSONL persist
	pendingCount  int            // writes since the last flush
	batchTimer    *time.Timer    // timer for interval-based batch flush
	batchMu       sync.Mutex     // protects pendingWrites and batchTimer
}

// pendingWrite represents a deferred JSONL write operation.
// Used by on_close and batch sync strategies.
type pendingWrite struct {
	tableName string       // entity table name (categories, terms, etc.)
	persist   func() error // function to execute the JSONL write
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[string]*table),
	}
}

// GetTable returns a Table interface for the specified table name.
// Returns ErrTableNotFound if the table name is not recognized.
// Returns ErrLibraryDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrLibraryDetached
	}

	t, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// DataDir returns the directory the backend was attached to.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, initializes the SQLite schema,
// loads the JSONL files and creates table accessors.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(config.DataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}

	if err := initJSONLFiles(config.DataDir); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, config.DataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config

	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.batchSize = config.SQLiteConfig.GetBatchSize()
	b.batchInterval = time.Duration(config.SQLiteConfig.GetBatchInterval()) * time.Second
	b.pendingWrites = nil
	b.pendingCount = 0

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}

	b.attached = true

	for _, name := range types.StandardTableNames {
		b.tables[name] = &table{name: name, backend: b}
	}

	return nil
}

// Detach releases all resources held by the backend.
// Closes the SQLite connection. After Detach, all operations return
// ErrLibraryDetached. Detach is idempotent.
// For on_close and batch sync strategies, flushes all pending writes before closing.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]*table)

	return nil
}

// Transaction runs fn against a view whose tables share one SQL transaction.
// JSONL files are rewritten only after a successful commit, so a failing fn
// leaves both the database and the files as they were. fn must only use the
// view it is given: the backend lock is held for the whole call.
func (b *Backend) Transaction(fn func(types.TableSource) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrLibraryDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	state := &txState{tx: tx, dirty: make(map[string]bool)}
	if err := fn(&txView{backend: b, state: state}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	dirty := make([]string, 0, len(state.dirty))
	for name := range state.dirty {
		dirty = append(dirty, name)
	}
	sort.Strings(dirty)
	for _, name := range dirty {
		if err := b.afterWriteLocked(name); err != nil {
			return err
		}
	}
	return nil
}

// txView is the TableSource handed to Transaction callbacks.
type txView struct {
	backend *Backend
	state   *txState
}

func (v *txView) GetTable(name string) (types.Table, error) {
	for _, n := range types.StandardTableNames {
		if n == name {
			return &table{name: name, backend: v.backend, tx: v.state}, nil
		}
	}
	return nil, types.ErrTableNotFound
}

func createSchema(db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// initJSONLFiles creates an empty JSONL file for every table that lacks one.
func initJSONLFiles(dataDir string) error {
	for _, mapping := range jsonlTableMapping {
		path := filepath.Join(dataDir, mapping.file)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", mapping.file, err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", mapping.file, err)
		}
	}
	return nil
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// afterWriteLocked persists or queues the JSONL rewrite for a table according
// to the sync strategy. The caller must hold b.mu.
func (b *Backend) afterWriteLocked(tableName string) error {
	persist := func() error { return b.persistTable(tableName) }
	if b.shouldPersistImmediately() {
		return persist()
	}
	b.queueWrite(tableName, persist)
	return nil
}

// shouldPersistImmediately returns true if JSONL writes should happen immediately.
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// queueWrite adds a write operation to the pending queue. A table is queued
// once since a flush rewrites the whole file; every write still counts
// toward the batch size.
// The caller must hold b.mu (read or write lock).
func (b *Backend) queueWrite(tableName string, persist func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pendingCount++
	queued := false
	for _, pw := range b.pendingWrites {
		if pw.tableName == tableName {
			queued = true
			break
		}
	}
	if !queued {
		b.pendingWrites = append(b.pendingWrites, pendingWrite{
			tableName: tableName,
			persist:   persist,
		})
	}

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && b.pendingCount >= b.batchSize {
		_ = b.flushPendingWritesBatchLocked()
	}
}

// flushPendingWritesLocked flushes all pending writes to JSONL files.
// The caller must hold b.mu write lock.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes all pending writes.
// The caller must hold b.batchMu lock.
func (b *Backend) flushPendingWritesBatchLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}

	for _, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			// Leave the queue intact; the next Attach reconciles from JSONL.
			return fmt.Errorf("flush %s: %w", pw.tableName, err)
		}
	}

	b.pendingWrites = nil
	b.pendingCount = 0
	return nil
}

// startBatchTimer starts the batch interval timer for periodic flushes.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		_ = b.flushPendingWritesLocked()

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
