// Package paths resolves configuration and data directory locations.
//
// Each directory follows a precedence chain: an explicit flag, then the
// environment, then a directory in the working tree, then the platform
// default.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names. A catalog checked into a repository keeps
// its config in .librarian and its JSONL files in .librarian-db.
const (
	DefaultConfigDirName = ".librarian"
	DefaultDataDirName   = ".librarian-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "LIBRARIAN_CONFIG_DIR"
	EnvDataDir   = "LIBRARIAN_DATA_DIR"
)

// Files inside the config directory.
const (
	ConfigFileName = "config.yaml"
	EnvFileName    = ".env"
	appName        = "librarian"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/librarian (fallback ~/.config/librarian)
// macOS:   ~/Library/Application Support/librarian
// Windows: %APPDATA%/librarian
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/librarian (fallback ~/.local/share/librarian)
// macOS:   ~/Library/Application Support/librarian
// Windows: %APPDATA%/librarian
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > LIBRARIAN_CONFIG_DIR > ./.librarian (when it
// exists) > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	local := filepath.Join(cwd, DefaultConfigDirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config file value > LIBRARIAN_DATA_DIR > ./.librarian-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// EnvFile returns the .env path inside configDir.
func EnvFile(configDir string) string {
	return filepath.Join(configDir, EnvFileName)
}
