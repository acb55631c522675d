package integration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brokenPlan = `
name: bavli-minor-tractates
steps:
  - op: move_category
    category: [Tanaitic, Minor Tractates]
    into: [Talmud, Bavli]
  - op: move_index
    index: Ghost
    into: [Talmud, Bavli, Minor Tractates]
`

const fixedPlan = `
name: bavli-minor-tractates
steps:
  - op: move_category
    category: [Tanaitic, Minor Tractates]
    into: [Talmud, Bavli]
  - op: set_order
    index: Kinnim
    order: [3]
`

// TestReorganizationSession drives one reorganization across several
// processes: a plan fails halfway, is fixed and resumed, and the catalog
// files on disk carry every committed change.
func TestReorganizationSession(t *testing.T) {
	for _, strategy := range []string{"immediate", "on_close", "batch"} {
		t.Run(strategy, func(t *testing.T) {
			env := NewTestEnv(t, strategy)
			env.MustRun("init")
			env.MustRun("category", "create", "Talmud", "--en", "Talmud", "--he", "תלמוד")
			env.MustRun("category", "create", "Talmud/Bavli", "--en", "Bavli", "--he", "בבלי")
			env.MustRun("category", "create", "Tanaitic", "--en", "Tanaitic", "--he", "תנאית")
			env.MustRun("category", "create", "Tanaitic/Minor Tractates", "--en", "Minor Tractates", "--he", "מסכתות קטנות")
			env.MustRun("index", "add", "Kinnim", "Tanaitic/Minor Tractates")

			result := env.Run("apply", env.WritePlan("plan.yaml", brokenPlan))
			assert.Equal(t, 1, result.ExitCode, "stderr: %s", result.Stderr)

			// The first step committed before the second failed.
			cats := ReadJSONLFile[CategoryRecord](t, filepath.Join(env.DataDir, "categories.jsonl"))
			paths := make([][]string, 0, len(cats))
			for _, c := range cats {
				paths = append(paths, c.Path)
			}
			assert.Contains(t, paths, []string{"Talmud", "Bavli", "Minor Tractates"})
			assert.NotContains(t, paths, []string{"Tanaitic", "Minor Tractates"})

			idxs := ReadJSONLFile[IndexRecord](t, filepath.Join(env.DataDir, "indexes.jsonl"))
			require.Len(t, idxs, 1)
			assert.Equal(t, []string{"Talmud", "Bavli", "Minor Tractates"}, idxs[0].Categories)
			assert.Empty(t, idxs[0].Order)

			result = env.MustRun("apply", env.WritePlan("plan.yaml", fixedPlan))
			assert.Contains(t, result.Stdout, "1 applied, 1 already done")

			idxs = ReadJSONLFile[IndexRecord](t, filepath.Join(env.DataDir, "indexes.jsonl"))
			require.Len(t, idxs, 1)
			assert.Equal(t, []int{3}, idxs[0].Order)

			result = env.Run("toc", "check")
			assert.Equal(t, 1, result.ExitCode)
			assert.Contains(t, result.Stdout, "empty category: Tanaitic")

			env.MustRun("category", "delete", "Tanaitic")
			result = env.MustRun("toc", "check")
			assert.Contains(t, result.Stdout, "no problems found")
		})
	}
}

// TestJSONOutput checks that --json output from one process can be fed to
// the next.
func TestJSONOutput(t *testing.T) {
	env := NewTestEnv(t, "immediate")
	env.MustRun("init")

	result := env.MustRun("--json", "category", "create", "Talmud", "--en", "Talmud", "--he", "תלמוד")
	created := ParseJSON[CategoryRecord](t, result.Stdout)
	require.NotEmpty(t, created.CategoryID)

	result = env.MustRun("get", "categories", created.CategoryID)
	got := ParseJSON[CategoryRecord](t, result.Stdout)
	assert.Equal(t, []string{"Talmud"}, got.Path)
	assert.Equal(t, "Talmud", got.SharedTitle)

	result = env.Run("get", "categories", "not-a-real-id")
	assert.Equal(t, 1, result.ExitCode)
}
