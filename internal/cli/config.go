package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/librarian/internal/paths"
	"github.com/mesh-intelligence/librarian/internal/reorg"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "LIBRARIAN"

	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyLogLevel      = "log_level"
	cfgKeyLogFormat     = "log_format"
	cfgKeyTermScope     = "term_scope"
	cfgKeyStrictDelete  = "strict_delete"
	cfgKeySyncStrategy  = "sqlite.sync_strategy"
	cfgKeyBatchSize     = "sqlite.batch_size"
	cfgKeyBatchInterval = "sqlite.batch_interval"

	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// envKeys are the settings that LIBRARIAN_* variables override. data_dir is
// left to paths.ResolveDataDir, which ranks the config file above the
// environment.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
	cfgKeyTermScope,
	cfgKeyStrictDelete,
	cfgKeySyncStrategy,
	cfgKeyBatchSize,
	cfgKeyBatchInterval,
}

// loadConfig reads config.yaml from configDir with LIBRARIAN_* environment
// overrides. A .env file in configDir is loaded into the environment first;
// variables already set win over it. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := loadEnvFile(paths.EnvFile(configDir)); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, defaultLogFormat)
	v.SetDefault(cfgKeyTermScope, string(reorg.TermScopeGlobal))
	v.SetDefault(cfgKeyStrictDelete, false)
	v.SetDefault(cfgKeySyncStrategy, types.SyncImmediate)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyBatchInterval, types.DefaultBatchInterval)
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// configureLogger applies level and format to log and sends its output to w.
func configureLogger(log *logrus.Logger, w io.Writer, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return usageErr(fmt.Errorf("log level: %w", err))
	}
	log.SetLevel(lvl)
	log.SetOutput(w)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return usageErr(fmt.Errorf("unknown log format %q", format))
	}
	return nil
}

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend      string        `yaml:"backend"`
	DataDir      string        `yaml:"data_dir,omitempty"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	TermScope    string        `yaml:"term_scope"`
	StrictDelete bool          `yaml:"strict_delete"`
	SQLite       sqliteSection `yaml:"sqlite"`
}

type sqliteSection struct {
	SyncStrategy  string `yaml:"sync_strategy"`
	BatchSize     int    `yaml:"batch_size"`
	BatchInterval int    `yaml:"batch_interval"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Backend:   types.BackendSQLite,
		DataDir:   dataDir,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		TermScope: string(reorg.TermScopeGlobal),
		SQLite: sqliteSection{
			SyncStrategy:  types.SyncImmediate,
			BatchSize:     types.DefaultBatchSize,
			BatchInterval: types.DefaultBatchInterval,
		},
	}
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left alone.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// libraryConfig builds the store configuration from flags and config.
func (a *app) libraryConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.config.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend: a.config.GetString(cfgKeyBackend),
		DataDir: dataDir,
		SQLiteConfig: types.SQLiteConfig{
			SyncStrategy:  a.config.GetString(cfgKeySyncStrategy),
			BatchSize:     a.config.GetInt(cfgKeyBatchSize),
			BatchInterval: a.config.GetInt(cfgKeyBatchInterval),
		},
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, usageErr(fmt.Errorf("config: %w", err))
	}
	return cfg, nil
}

// reorgOptions returns the reorganizer options selected by the config.
func (a *app) reorgOptions() ([]reorg.Option, error) {
	scope, err := reorg.ParseTermScope(a.config.GetString(cfgKeyTermScope))
	if err != nil {
		return nil, usageErr(err)
	}
	return []reorg.Option{
		reorg.WithLogger(a.log),
		reorg.WithTermScope(scope),
		reorg.WithStrictDelete(a.config.GetBool(cfgKeyStrictDelete)),
	}, nil
}
