package types

import "errors"

// Config holds backend selection and parameters for Library.Attach.
type Config struct {
	Backend      string       `json:"backend" yaml:"backend"`
	DataDir      string       `json:"data_dir" yaml:"data_dir"`
	SQLiteConfig SQLiteConfig `json:"sqlite" yaml:"sqlite"`
}

// SQLiteConfig holds the JSONL sync parameters of the SQLite backend.
// Zero values select the defaults returned by the getters.
type SQLiteConfig struct {
	SyncStrategy  string `json:"sync_strategy" yaml:"sync_strategy"`
	BatchSize     int    `json:"batch_size" yaml:"batch_size"`
	BatchInterval int    `json:"batch_interval" yaml:"batch_interval"` // seconds
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Sync strategies control when JSONL files are rewritten after a change.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
	SyncBatch     = "batch"
)

// Defaults for the batch sync strategy.
const (
	DefaultBatchSize     = 100
	DefaultBatchInterval = 5
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrSyncStrategyUnknown  = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid     = errors.New("batch size must be positive")
	ErrBatchIntervalInvalid = errors.New("batch interval must be positive")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

var knownSyncStrategies = map[string]bool{
	"":            true,
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return c.SQLiteConfig.Validate()
}

// Validate checks the sync parameters. Negative batch values are rejected;
// zero means "use the default".
func (s SQLiteConfig) Validate() error {
	if !knownSyncStrategies[s.SyncStrategy] {
		return ErrSyncStrategyUnknown
	}
	if s.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	if s.BatchInterval < 0 {
		return ErrBatchIntervalInvalid
	}
	return nil
}

// GetSyncStrategy returns the configured strategy, defaulting to immediate.
func (s SQLiteConfig) GetSyncStrategy() string {
	if s.SyncStrategy == "" {
		return SyncImmediate
	}
	return s.SyncStrategy
}

// GetBatchSize returns the batch size, defaulting to DefaultBatchSize.
func (s SQLiteConfig) GetBatchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

// GetBatchInterval returns the batch interval in seconds, defaulting to
// DefaultBatchInterval.
func (s SQLiteConfig) GetBatchInterval() int {
	if s.BatchInterval <= 0 {
		return DefaultBatchInterval
	}
	return s.BatchInterval
}
