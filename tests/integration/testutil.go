// Package integration runs the built librarian binary against scratch
// directories and checks what it leaves on disk.
package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// librarianBin is the path to the built librarian binary.
	librarianBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory to the directory
// holding go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated config and data directory pair.
type TestEnv struct {
	t       *testing.T
	Config  string
	DataDir string
}

// NewTestEnv creates a TestEnv whose config.yaml selects syncStrategy.
func NewTestEnv(t *testing.T, syncStrategy string) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build librarian: %v", buildErr)
	}
	if librarianBin == "" {
		t.Fatal("librarian binary not built")
	}

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	configDir := filepath.Join(tempDir, "config")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	config := "backend: sqlite\ndata_dir: " + dataDir + "\nsqlite:\n  sync_strategy: " + syncStrategy + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &TestEnv{t: t, Config: configDir, DataDir: dataDir}
}

// CmdResult holds the result of one librarian invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes librarian with the env's config directory.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	cmd := exec.Command(librarianBin, append([]string{"--config-dir", e.Config}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.t.Fatalf("failed to run librarian: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRun executes librarian and fails the test on a non-zero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("librarian %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// WritePlan writes a plan document into the env and returns its path.
func (e *TestEnv) WritePlan(name, body string) string {
	e.t.Helper()
	path := filepath.Join(e.Config, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		e.t.Fatalf("failed to write plan: %v", err)
	}
	return path
}

// CategoryRecord is one line of categories.jsonl.
type CategoryRecord struct {
	CategoryID  string   `json:"category_id"`
	Path        []string `json:"path"`
	SharedTitle string   `json:"shared_title"`
}

// IndexRecord is one line of indexes.jsonl.
type IndexRecord struct {
	IndexID    string   `json:"index_id"`
	Title      string   `json:"title"`
	Categories []string `json:"categories"`
	Order      []int    `json:"sort_order"`
	Hidden     bool     `json:"hidden"`
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, data string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", data, err)
	}
	return result
}

// ReadJSONLFile reads a JSONL file (one JSON object per line).
func ReadJSONLFile[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open JSONL file %s: %v", path, err)
	}
	defer f.Close()

	var results []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			t.Fatalf("failed to parse JSONL line in %s: %v", path, err)
		}
		results = append(results, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to scan JSONL file %s: %v", path, err)
	}
	return results
}
