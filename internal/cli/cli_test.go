package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// env is one isolated pair of config and data directories.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	return env{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// run executes the CLI with the env's directories and returns stdout, stderr
// and the command error.
func (e env) run(t *testing.T, argv ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, argv...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (e env) mustRun(t *testing.T, argv ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, argv...)
	require.NoError(t, err, "librarian %s\nstderr: %s", strings.Join(argv, " "), stderr)
	return out
}

// seedTree builds Talmud/Bavli and Tanaitic/Minor Tractates with one index.
func (e env) seedTree(t *testing.T) {
	t.Helper()
	e.mustRun(t, "category", "create", "Talmud", "--en", "Talmud", "--he", "תלמוד")
	e.mustRun(t, "category", "create", "Talmud/Bavli", "--en", "Bavli", "--he", "בבלי")
	e.mustRun(t, "category", "create", "Tanaitic", "--en", "Tanaitic", "--he", "תנאית")
	e.mustRun(t, "category", "create", "Tanaitic/Minor Tractates", "--en", "Minor Tractates", "--he", "מסכתות קטנות")
	e.mustRun(t, "index", "add", "Kinnim", "Tanaitic/Minor Tractates")
}

func TestVersion(t *testing.T) {
	out := newEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "librarian v")
	assert.Contains(t, out, modulePath)
}

func TestInit_WritesConfigAndData(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "Librarian initialized successfully")

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "term_scope: global")

	for _, name := range types.StandardTableNames {
		_, err := os.Stat(filepath.Join(e.dataDir, name+".jsonl"))
		assert.NoError(t, err, name)
	}

	// A second init leaves the existing config alone.
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("backend: sqlite\nlog_level: warn\n"), 0o644))
	e.mustRun(t, "init")
	data, err = os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "backend: sqlite\nlog_level: warn\n", string(data))
}

func TestCategoryMove_RewritesIndexes(t *testing.T) {
	e := newEnv(t)
	e.seedTree(t)

	out := e.mustRun(t, "category", "move", "Tanaitic/Minor Tractates", "--into", "Talmud/Bavli")
	assert.Contains(t, out, "1 categories, 1 indexes")

	out = e.mustRun(t, "list", "indexes", "title=Kinnim")
	var idxs []types.Index
	require.NoError(t, json.Unmarshal([]byte(out), &idxs))
	require.Len(t, idxs, 1)
	assert.Equal(t, types.Path{"Talmud", "Bavli", "Minor Tractates"}, idxs[0].Categories)

	out = e.mustRun(t, "category", "list", "Talmud")
	assert.Equal(t, "Talmud\nTalmud / Bavli\nTalmud / Bavli / Minor Tractates\n", out)

	out = e.mustRun(t, "toc", "show", "Talmud")
	assert.Equal(t, "Talmud/\n  Bavli/\n    Minor Tractates/\n      Kinnim\n", out)
}

func TestRename_NeedsTerm(t *testing.T) {
	e := newEnv(t)
	e.seedTree(t)

	_, _, err := e.run(t, "category", "rename-segment", "Tanaitic", "Tannaitic")
	require.ErrorIs(t, err, types.ErrTermNotFound)
	assert.Equal(t, exitUserError, exitCode(err))

	e.mustRun(t, "term", "add", "Tannaitic", "--en", "Tannaitic", "--he", "תנאית")
	out := e.mustRun(t, "--json", "category", "rename-segment", "Tanaitic", "Tannaitic")
	var rep struct {
		Categories int `json:"categories"`
		Indexes    int `json:"indexes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 2, rep.Categories)
	assert.Equal(t, 1, rep.Indexes)

	out = e.mustRun(t, "index", "list", "Tannaitic", "--recursive")
	assert.Equal(t, "Kinnim\tTannaitic / Minor Tractates\n", out)
}

func TestDelete_OrphansAndCheck(t *testing.T) {
	e := newEnv(t)
	e.seedTree(t)

	_, _, err := e.run(t, "category", "delete", "Tanaitic/Minor Tractates", "--strict")
	require.ErrorIs(t, err, types.ErrCategoryNotEmpty)

	_, stderr, err := e.run(t, "category", "delete", "Tanaitic/Minor Tractates")
	require.NoError(t, err)
	assert.Contains(t, stderr, "deleted category left orphans")

	out, _, err := e.run(t, "toc", "check")
	require.ErrorIs(t, err, errTOCProblems)
	assert.Equal(t, exitUserError, exitCode(err))
	assert.Contains(t, out, "orphan index: Kinnim")
	assert.Contains(t, out, "empty category: Tanaitic")
}

func TestIndexCommands(t *testing.T) {
	e := newEnv(t)
	e.seedTree(t)

	e.mustRun(t, "index", "add", "Avot DeRabbi Natan", "Tanaitic/Minor Tractates")
	e.mustRun(t, "index", "order", "Kinnim", "2")
	e.mustRun(t, "index", "order", "Avot DeRabbi Natan", "1")
	e.mustRun(t, "index", "hide", "Kinnim")

	out := e.mustRun(t, "toc", "show")
	assert.NotContains(t, out, "Kinnim")
	out = e.mustRun(t, "toc", "show", "--hidden", "Tanaitic")
	assert.Equal(t, "Tanaitic/\n  Minor Tractates/\n    Avot DeRabbi Natan\n    Kinnim\n", out)

	e.mustRun(t, "index", "move", "Kinnim", "Talmud/Bavli")
	out = e.mustRun(t, "index", "list", "Talmud/Bavli")
	assert.Equal(t, "Kinnim\tTalmud / Bavli\n", out)

	_, _, err := e.run(t, "index", "order", "Kinnim", "first")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestTermCommands(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "term", "add", "Bavli", "--en", "Bavli", "--he", "בבלי")
	e.mustRun(t, "term", "primary", "Bavli", "en", "Babylonian Talmud")

	out := e.mustRun(t, "term", "show", "Bavli")
	assert.Contains(t, out, "* [en] Babylonian Talmud")
	assert.NotContains(t, out, "[en] Bavli")

	_, _, err := e.run(t, "term", "add", "Yerushalmi")
	assert.ErrorIs(t, err, types.ErrInvalidTitle)
}

func TestApply_ResumesFromJournal(t *testing.T) {
	e := newEnv(t)
	e.seedTree(t)

	planFile := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(planFile, []byte(`
name: minor-tractates
steps:
  - op: move_category
    category: [Tanaitic, Minor Tractates]
    into: [Talmud, Bavli]
  - op: delete_category
    category: [Tanaitic]
  - op: rebuild
`), 0o644))

	out := e.mustRun(t, "apply", planFile)
	assert.Contains(t, out, "3 applied, 0 already done")
	assert.Contains(t, out, "no problems found")
	_, err := os.Stat(filepath.Join(e.dataDir, "toc.json"))
	require.NoError(t, err)

	out = e.mustRun(t, "apply", planFile)
	assert.Contains(t, out, "0 applied, 3 already done")

	out = e.mustRun(t, "journal", "list", "--plan", "minor-tractates")
	assert.Equal(t, 3, strings.Count(out, "minor-tractates #"))
}

func TestApply_InvalidPlan(t *testing.T) {
	e := newEnv(t)
	planFile := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(planFile, []byte("name: broken\nsteps: [{op: teleport}]\n"), 0o644))

	_, _, err := e.run(t, "apply", planFile)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExportImport(t *testing.T) {
	src := newEnv(t)
	src.seedTree(t)
	file := filepath.Join(t.TempDir(), "catalog.json")
	src.mustRun(t, "export", "-o", file)

	dst := newEnv(t)
	out := dst.mustRun(t, "import", file)
	assert.Equal(t, "imported 4 terms, 4 categories, 1 indexes\n", out)

	assert.Equal(t, src.mustRun(t, "toc", "show"), dst.mustRun(t, "toc", "show"))

	// Importing again conflicts on nothing: every entity keeps its ID.
	dst.mustRun(t, "import", file)
	assert.Equal(t, src.mustRun(t, "category", "list"), dst.mustRun(t, "category", "list"))
}

func TestGet(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "--json", "category", "create", "Talmud", "--en", "Talmud", "--he", "תלמוד")
	var cat types.Category
	require.NoError(t, json.Unmarshal([]byte(out), &cat))

	out = e.mustRun(t, "get", "categories", cat.CategoryID)
	assert.Contains(t, out, `"last_path": "Talmud"`)

	_, _, err := e.run(t, "get", "categories", "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, _, err = e.run(t, "get", "shelves", "x")
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestEnvFile_SetsTermScope(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, ".env"), []byte("LIBRARIAN_TERM_SCOPE=parent\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LIBRARIAN_TERM_SCOPE") })

	e.mustRun(t, "category", "create", "Talmud", "--en", "Talmud", "--he", "תלמוד")
	e.mustRun(t, "category", "create", "Talmud/Bavli", "--en", "Bavli", "--he", "בבלי")

	e.mustRun(t, "term", "show", "Bavli", "--scope", "Talmud")
	_, _, err := e.run(t, "term", "show", "Bavli")
	assert.ErrorIs(t, err, types.ErrTermNotFound)
}

func TestLogFormatJSON(t *testing.T) {
	e := newEnv(t)
	_, stderr, err := e.run(t, "--log-format", "json", "category", "create", "Talmud", "--en", "Talmud", "--he", "תלמוד")
	require.NoError(t, err)

	var ops []string
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry), sc.Text())
		ops = append(ops, fmt.Sprint(entry["op"]))
	}
	assert.Equal(t, []string{"create_term", "create_category"}, ops)

	_, _, err = e.run(t, "--log-format", "xml", "category", "list")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"usage", usageErr(errors.New("accepts 1 arg(s)")), exitUserError},
		{"wrapped not found", fmt.Errorf("category: %w", types.ErrNotFound), exitUserError},
		{"cyclic move", types.ErrCyclicMove, exitUserError},
		{"system", errors.New("disk full"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestArgs_UsageErrors(t *testing.T) {
	_, _, err := newEnv(t).run(t, "category", "create")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	_, _, err = newEnv(t).run(t, "category", "list", "--no-such-flag")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}
