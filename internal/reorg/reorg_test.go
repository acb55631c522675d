package reorg

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/internal/toc"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func newLibrary(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func newReorganizer(t *testing.T, src types.TableSource, opts ...Option) (*Reorganizer, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	return New(src, append([]Option{WithLogger(logger)}, opts...)...), hook
}

// seedCategories stores categories directly, without terms.
func seedCategories(t *testing.T, src types.TableSource, paths ...types.Path) {
	t.Helper()
	tbl, err := src.GetTable(types.TableCategories)
	require.NoError(t, err)
	for _, p := range paths {
		c := &types.Category{SharedTitle: p.Last()}
		c.SetPath(p)
		_, err := tbl.Set("", c)
		require.NoError(t, err)
	}
}

func seedIndex(t *testing.T, src types.TableSource, title string, at types.Path) *types.Index {
	t.Helper()
	tbl, err := src.GetTable(types.TableIndexes)
	require.NoError(t, err)
	idx := &types.Index{Title: title, Categories: at}
	_, err = tbl.Set("", idx)
	require.NoError(t, err)
	return idx
}

func seedTerm(t *testing.T, r *Reorganizer, name string) {
	t.Helper()
	_, err := r.CreateTerm(name, nil, name, name+" (he)")
	require.NoError(t, err)
}

func allPaths(t *testing.T, src types.TableSource) []string {
	t.Helper()
	tbl, err := src.GetTable(types.TableCategories)
	require.NoError(t, err)
	rows, err := tbl.Fetch(nil)
	require.NoError(t, err)
	var out []string
	for _, row := range rows {
		out = append(out, row.(*types.Category).Path.String())
	}
	return out
}

func indexPath(t *testing.T, r *Reorganizer, title string) types.Path {
	t.Helper()
	idx, err := r.Index(title)
	require.NoError(t, err)
	return idx.Categories
}

func mustCategory(t *testing.T, r *Reorganizer, segs ...string) *types.Category {
	t.Helper()
	c, err := r.Category(types.NewPath(segs...))
	require.NoError(t, err)
	return c
}

func TestMoveCategoryInto_ReplacesParentPrefix(t *testing.T) {
	lib := newLibrary(t)
	r, hook := newReorganizer(t, lib)

	seedCategories(t, lib,
		types.Path{"Tanaitic"},
		types.Path{"Tanaitic", "Minor Tractates"},
		types.Path{"Tanaitic", "Minor Tractates", "Kinnim"},
		types.Path{"Talmud"},
		types.Path{"Talmud", "Bavli"},
	)
	seedIndex(t, lib, "Avot DeRabbi Natan", types.Path{"Tanaitic", "Minor Tractates"})
	seedIndex(t, lib, "Kinnim Commentary", types.Path{"Tanaitic", "Minor Tractates", "Kinnim"})
	seedIndex(t, lib, "Tosefta Peah", types.Path{"Tanaitic"})

	cat := mustCategory(t, r, "Tanaitic", "Minor Tractates")
	rep, err := r.MoveCategoryInto(cat, mustCategory(t, r, "Talmud", "Bavli"))
	require.NoError(t, err)

	assert.Equal(t, MoveReport{Categories: 2, Indexes: 2}, rep)
	assert.Equal(t, types.Path{"Talmud", "Bavli", "Minor Tractates"}, cat.Path)
	assert.Equal(t, []string{
		"Talmud",
		"Tanaitic",
		"Talmud / Bavli",
		"Talmud / Bavli / Minor Tractates",
		"Talmud / Bavli / Minor Tractates / Kinnim",
	}, allPaths(t, lib))
	assert.Equal(t, types.Path{"Talmud", "Bavli", "Minor Tractates"}, indexPath(t, r, "Avot DeRabbi Natan"))
	assert.Equal(t, types.Path{"Talmud", "Bavli", "Minor Tractates", "Kinnim"}, indexPath(t, r, "Kinnim Commentary"))
	assert.Equal(t, types.Path{"Tanaitic"}, indexPath(t, r, "Tosefta Peah"), "siblings are untouched")

	entries := hook.AllEntries()
	require.Len(t, entries, 4, "one log entry per rewritten record")
	moved := map[string]any{}
	for _, e := range entries {
		assert.Equal(t, logrus.InfoLevel, e.Level)
		assert.Equal(t, "move_category", e.Data["op"])
		moved[e.Data["from"].(string)] = e.Data["to"]
	}
	assert.Equal(t, "Talmud / Bavli / Minor Tractates", moved["Tanaitic / Minor Tractates"])
}

func TestMoveCategoryInto_Root(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)

	seedCategories(t, lib,
		types.Path{"Tanaitic"},
		types.Path{"Tanaitic", "Tosefta"},
		types.Path{"Tanaitic", "Tosefta", "Seder Zeraim"},
	)
	seedIndex(t, lib, "Tosefta Berakhot", types.Path{"Tanaitic", "Tosefta", "Seder Zeraim"})

	cat := mustCategory(t, r, "Tanaitic", "Tosefta")
	rep, err := r.MoveCategoryInto(cat, nil)
	require.NoError(t, err)

	assert.Equal(t, MoveReport{Categories: 2, Indexes: 1}, rep)
	assert.Equal(t, types.Path{"Tosefta"}, cat.Path)
	assert.Equal(t, "Tosefta", cat.LastPath)
	assert.Equal(t, []string{"Tanaitic", "Tosefta", "Tosefta / Seder Zeraim"}, allPaths(t, lib))
	assert.Equal(t, types.Path{"Tosefta", "Seder Zeraim"}, indexPath(t, r, "Tosefta Berakhot"))
}

func TestMoveCategoryInto_RerunMatchesNothing(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)
	seedCategories(t, lib, types.Path{"A"}, types.Path{"A", "B"}, types.Path{"C"})

	stale := mustCategory(t, r, "A", "B")
	snapshot := *stale
	snapshot.Path = stale.Path.Clone()

	_, err := r.MoveCategoryInto(stale, mustCategory(t, r, "C"))
	require.NoError(t, err)

	rep, err := r.MoveCategoryInto(&snapshot, mustCategory(t, r, "C"))
	require.NoError(t, err)
	assert.Equal(t, MoveReport{}, rep)
	assert.Equal(t, []string{"A", "C", "C / B"}, allPaths(t, lib))
}

func TestMoveCategoryInto_Errors(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)
	seedCategories(t, lib, types.Path{"A"}, types.Path{"A", "B"}, types.Path{"A", "B", "C"})

	a := mustCategory(t, r, "A")
	c := mustCategory(t, r, "A", "B", "C")

	tests := []struct {
		name   string
		cat    *types.Category
		parent *types.Category
		want   error
	}{
		{"nil category", nil, a, types.ErrInvalidCategory},
		{"unsaved category", &types.Category{Path: types.Path{"X"}}, a, types.ErrInvalidCategory},
		{"unsaved parent", a, &types.Category{Path: types.Path{"X"}}, types.ErrInvalidCategory},
		{"into itself", a, a, types.ErrCyclicMove},
		{"into a descendant", a, c, types.ErrCyclicMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.MoveCategoryInto(tt.cat, tt.parent)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, []string{"A", "A / B", "A / B / C"}, allPaths(t, lib), "failed moves write nothing")
}

func TestMoveIndexInto(t *testing.T) {
	lib := newLibrary(t)
	r, hook := newReorganizer(t, lib)
	seedCategories(t, lib, types.Path{"Mishnah"}, types.Path{"Tosefta"})
	seedIndex(t, lib, "Peah", types.Path{"Mishnah"})

	idx, err := r.Index("Peah")
	require.NoError(t, err)
	dest := mustCategory(t, r, "Tosefta")

	require.NoError(t, r.MoveIndexInto(idx, dest))
	require.NoError(t, r.MoveIndexInto(idx, dest), "moving twice is harmless")
	assert.Equal(t, types.Path{"Tosefta"}, indexPath(t, r, "Peah"))

	dest.Path[0] = "mutated"
	assert.Equal(t, types.Path{"Tosefta"}, idx.Categories, "the index holds a copy of the path")

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Mishnah", entries[0].Data["from"])
	assert.Equal(t, "Tosefta", entries[1].Data["from"])

	assert.ErrorIs(t, r.MoveIndexInto(nil, dest), types.ErrInvalidIndex)
	assert.ErrorIs(t, r.MoveIndexInto(idx, nil), types.ErrInvalidCategory)
}

func TestCreateCategory(t *testing.T) {
	tests := []struct {
		name      string
		existing  []types.Path
		terms     []string
		path      types.Path
		en, he    string
		wantErr   error
		wantTerms int
	}{
		{
			name:      "creates term and category",
			existing:  []types.Path{{"Tanaitic"}},
			path:      types.Path{"Tanaitic", "Tosefta"},
			en:        "Tosefta",
			he:        "תוספתא",
			wantTerms: 1,
		},
		{
			name:      "reuses an existing term",
			terms:     []string{"Tosefta"},
			path:      types.Path{"Tosefta"},
			wantTerms: 1,
		},
		{
			name:     "needs both names for a new term",
			existing: []types.Path{{"Tanaitic"}},
			path:     types.Path{"Tanaitic", "Tosefta"},
			en:       "Tosefta",
			wantErr:  types.ErrTermNamesRequired,
		},
		{
			name:    "parent must exist",
			path:    types.Path{"Tanaitic", "Tosefta"},
			en:      "Tosefta",
			he:      "תוספתא",
			wantErr: types.ErrParentNotFound,
		},
		{
			name:      "path must be new",
			existing:  []types.Path{{"Tosefta"}},
			terms:     []string{"Tosefta"},
			path:      types.Path{"Tosefta"},
			wantErr:   types.ErrDuplicatePath,
			wantTerms: 1,
		},
		{
			name:    "path must be valid",
			path:    types.Path{},
			wantErr: types.ErrInvalidPath,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newLibrary(t)
			r, _ := newReorganizer(t, lib)
			seedCategories(t, lib, tt.existing...)
			for _, name := range tt.terms {
				seedTerm(t, r, name)
			}
			before := len(allPaths(t, lib))

			cat, err := r.CreateCategory(tt.path, tt.en, tt.he)

			terms, ferr := lib.GetTable(types.TableTerms)
			require.NoError(t, ferr)
			rows, ferr := terms.Fetch(nil)
			require.NoError(t, ferr)
			assert.Len(t, rows, tt.wantTerms)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, allPaths(t, lib), before, "nothing is created")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, cat.Path)
			assert.Equal(t, tt.path.Last(), cat.LastPath)
			assert.Equal(t, tt.path.Last(), cat.SharedTitle)
			assert.Len(t, allPaths(t, lib), before+1)
		})
	}
}

func TestCreateCategory_TermTitles(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)

	_, err := r.CreateCategory(types.Path{"Tosefta"}, "Tosefta", "תוספתא")
	require.NoError(t, err)

	term, err := r.Term("Tosefta", nil)
	require.NoError(t, err)
	assert.Equal(t, types.SchemeTOCCategories, term.Scheme)
	assert.Equal(t, "Tosefta", term.PrimaryTitle(types.LangEnglish))
	assert.Equal(t, "תוספתא", term.PrimaryTitle(types.LangHebrew))
}

func TestCreateCategory_ParentTermScope(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib, WithTermScope(TermScopeParent))
	seedCategories(t, lib, types.Path{"Mishnah"}, types.Path{"Tosefta"})

	_, err := r.CreateCategory(types.Path{"Mishnah", "Zeraim"}, "Zeraim", "זרעים")
	require.NoError(t, err)

	_, err = r.CreateCategory(types.Path{"Tosefta", "Zeraim"}, "", "")
	assert.ErrorIs(t, err, types.ErrTermNamesRequired, "a term under another parent is not reused")

	_, err = r.CreateCategory(types.Path{"Tosefta", "Zeraim"}, "Zeraim", "זרעים")
	require.NoError(t, err)

	_, err = r.Term("Zeraim", types.Path{"Tosefta"})
	assert.NoError(t, err)
	_, err = r.Term("Zeraim", nil)
	assert.ErrorIs(t, err, types.ErrTermNotFound)
}

func TestMoveCategoryInto_ParentScopedTermsFollow(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib, WithTermScope(TermScopeParent))
	for _, p := range []types.Path{{"Mishnah"}, {"Tosefta"}, {"Mishnah", "Zeraim"}, {"Mishnah", "Zeraim", "Berakhot"}} {
		_, err := r.CreateCategory(p, p.Last(), p.Last()+" (he)")
		require.NoError(t, err)
	}

	_, err := r.MoveCategoryInto(mustCategory(t, r, "Mishnah", "Zeraim"), mustCategory(t, r, "Tosefta"))
	require.NoError(t, err)

	term, err := r.termFor(types.Path{"Tosefta", "Zeraim"})
	require.NoError(t, err)
	assert.Equal(t, types.Path{"Tosefta"}, term.Scope)
	_, err = r.termFor(types.Path{"Tosefta", "Zeraim", "Berakhot"})
	require.NoError(t, err, "descendant terms follow too")

	_, err = r.Term("Zeraim", types.Path{"Mishnah"})
	assert.ErrorIs(t, err, types.ErrTermNotFound, "the old scope is empty")
	_, err = r.CreateCategory(types.Path{"Mishnah", "Zeraim"}, "", "")
	assert.ErrorIs(t, err, types.ErrTermNamesRequired, "a new category at the old path gets its own term")

	require.NoError(t, r.RenameCategory(mustCategory(t, r, "Tosefta", "Zeraim"), "Zeraim"))
}

func TestRenameSegment_ParentScopedTermsFollow(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib, WithTermScope(TermScopeParent))
	for _, p := range []types.Path{{"Philosophy"}, {"Philosophy", "Kuzari"}} {
		_, err := r.CreateCategory(p, p.Last(), p.Last()+" (he)")
		require.NoError(t, err)
	}
	_, err := r.CreateTerm("Jewish Thought", nil, "Jewish Thought", "מחשבת ישראל")
	require.NoError(t, err)

	_, err = r.RenameSegment(mustCategory(t, r, "Philosophy"), "Jewish Thought")
	require.NoError(t, err)

	term, err := r.termFor(types.Path{"Jewish Thought", "Kuzari"})
	require.NoError(t, err)
	assert.Equal(t, types.Path{"Jewish Thought"}, term.Scope)
	_, err = r.Term("Philosophy", nil)
	assert.NoError(t, err, "the renamed category's old term is not touched")
}

func TestRenameSegment_FailedRewriteCountsNothing(t *testing.T) {
	lib := newLibrary(t)
	seedCategories(t, lib,
		types.Path{"Tur and Commentaries"},
		types.Path{"Tur and Commentaries", "Beit Yosef"},
	)
	boom := errors.New("disk full")

	base, err := lib.GetTable(types.TableCategories)
	require.NoError(t, err)
	r, _ := newReorganizer(t, flakySource{TableSource: lib, categories: failSecondSet(base, boom)})
	seedTerm(t, r, "Tur")

	rep, err := r.RenameSegment(mustCategory(t, r, "Tur and Commentaries"), "Tur")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, MoveReport{}, rep)
}

func TestParseTermScope(t *testing.T) {
	for in, want := range map[string]TermScope{"": TermScopeGlobal, "global": TermScopeGlobal, "Parent": TermScopeParent} {
		got, err := ParseTermScope(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTermScope("sibling")
	assert.Error(t, err)
}

func TestRenameCategory_LeavesDescendants(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)
	seedCategories(t, lib, types.Path{"Tur and Commentaries"}, types.Path{"Tur and Commentaries", "Beit Yosef"})
	seedIndex(t, lib, "Tur", types.Path{"Tur and Commentaries"})

	cat := mustCategory(t, r, "Tur and Commentaries")
	assert.ErrorIs(t, r.RenameCategory(cat, "Tur"), types.ErrTermNotFound)

	seedTerm(t, r, "Tur")
	require.NoError(t, r.RenameCategory(cat, "Tur"))

	assert.Equal(t, types.Path{"Tur"}, cat.Path)
	assert.Equal(t, "Tur", cat.LastPath)
	assert.Equal(t, "Tur", cat.SharedTitle)
	assert.Equal(t, []string{"Tur", "Tur and Commentaries / Beit Yosef"}, allPaths(t, lib))
	assert.Equal(t, types.Path{"Tur and Commentaries"}, indexPath(t, r, "Tur"))

	assert.ErrorIs(t, r.RenameCategory(cat, " "), types.ErrInvalidName)
}

func TestRenameSegment_RewritesSubtree(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)
	seedCategories(t, lib,
		types.Path{"Halakhah"},
		types.Path{"Halakhah", "Tur and Commentaries"},
		types.Path{"Halakhah", "Tur and Commentaries", "Beit Yosef"},
	)
	seedIndex(t, lib, "Tur", types.Path{"Halakhah", "Tur and Commentaries"})
	seedTerm(t, r, "Tur")

	cat := mustCategory(t, r, "Halakhah", "Tur and Commentaries")
	rep, err := r.RenameSegment(cat, "Tur")
	require.NoError(t, err)

	assert.Equal(t, MoveReport{Categories: 2, Indexes: 1}, rep)
	assert.Equal(t, []string{"Halakhah", "Halakhah / Tur", "Halakhah / Tur / Beit Yosef"}, allPaths(t, lib))
	assert.Equal(t, types.Path{"Halakhah", "Tur"}, indexPath(t, r, "Tur"))
}

func TestRewritePrefix(t *testing.T) {
	tests := []struct {
		name     string
		seed     []types.Path
		from, to types.Path
		want     []string
	}{
		{
			name: "renames a top-level segment",
			seed: []types.Path{{"Philosophy"}, {"Philosophy", "Kuzari"}, {"Midrash"}},
			from: types.Path{"Philosophy"},
			to:   types.Path{"Jewish Thought"},
			want: []string{"Midrash", "Jewish Thought", "Jewish Thought / Kuzari"},
		},
		{
			name: "growing prefix rewrites deepest first",
			seed: []types.Path{{"A"}, {"A", "A"}},
			from: types.Path{"A"},
			to:   types.Path{"A", "A"},
			want: []string{"A / A", "A / A / A"},
		},
		{
			name: "same prefix is a no-op",
			seed: []types.Path{{"A"}},
			from: types.Path{"A"},
			to:   types.Path{"A"},
			want: []string{"A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newLibrary(t)
			r, _ := newReorganizer(t, lib)
			seedCategories(t, lib, tt.seed...)

			_, err := r.RewritePrefix(tt.from, tt.to)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, allPaths(t, lib))
		})
	}
}

func TestMoveChildrenInto(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)
	seedCategories(t, lib,
		types.Path{"Tanaitic"},
		types.Path{"Tanaitic", "Tosefta"},
		types.Path{"Tanaitic", "Minor Tractates"},
		types.Path{"Mishnah"},
	)

	rep, err := r.MoveChildrenInto(mustCategory(t, r, "Tanaitic"), mustCategory(t, r, "Mishnah"))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Categories)
	assert.Equal(t, []string{"Mishnah", "Tanaitic", "Mishnah / Minor Tractates", "Mishnah / Tosefta"}, allPaths(t, lib))
}

func TestDeleteCategory_OrphansAttachedEntries(t *testing.T) {
	lib := newLibrary(t)
	r, hook := newReorganizer(t, lib)
	seedCategories(t, lib, types.Path{"Tanaitic"}, types.Path{"Tanaitic", "Tosefta"})
	seedIndex(t, lib, "Tosefta Peah", types.Path{"Tanaitic", "Tosefta"})
	seedIndex(t, lib, "Tanaitic Intro", types.Path{"Tanaitic"})

	require.NoError(t, r.DeleteCategory(mustCategory(t, r, "Tanaitic")))

	assert.Equal(t, []string{"Tanaitic / Tosefta"}, allPaths(t, lib), "no cascade")
	assert.Equal(t, types.Path{"Tanaitic"}, indexPath(t, r, "Tanaitic Intro"), "no reattachment")

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, 1, last.Data["categories"])
	assert.Equal(t, 2, last.Data["indexes"])

	tree, err := toc.Build(lib)
	require.NoError(t, err)
	rep := tree.Report()
	assert.Equal(t, []string{"Tanaitic Intro", "Tosefta Peah"}, rep.OrphanIndexes)
	assert.Equal(t, []types.Path{{"Tanaitic", "Tosefta"}}, rep.OrphanCategories)
}

func TestDeleteCategory_Strict(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib, WithStrictDelete(true))
	seedCategories(t, lib, types.Path{"Tanaitic"}, types.Path{"Empty"})
	seedIndex(t, lib, "Tanaitic Intro", types.Path{"Tanaitic"})

	err := r.DeleteCategory(mustCategory(t, r, "Tanaitic"))
	assert.ErrorIs(t, err, types.ErrCategoryNotEmpty)

	require.NoError(t, r.DeleteCategory(mustCategory(t, r, "Empty")))
	assert.Equal(t, []string{"Tanaitic"}, allPaths(t, lib))

	assert.ErrorIs(t, r.DeleteCategory(nil), types.ErrInvalidCategory)
}

func TestSetTermPrimary(t *testing.T) {
	lib := newLibrary(t)
	r, hook := newReorganizer(t, lib)
	_, err := r.CreateTerm("Tosefta", nil, "Tosefta", "תוספתא")
	require.NoError(t, err)

	require.NoError(t, r.SetTermPrimary("Tosefta", nil, types.LangHebrew, "תוספתא כפשוטה"))

	term, err := r.Term("Tosefta", nil)
	require.NoError(t, err)
	assert.Equal(t, "תוספתא כפשוטה", term.PrimaryTitle(types.LangHebrew))
	assert.False(t, term.HasTitle("תוספתא", types.LangHebrew), "old primary is dropped")
	assert.Equal(t, "Tosefta", term.PrimaryTitle(types.LangEnglish))
	assert.Equal(t, "set_term_primary", hook.LastEntry().Data["op"])

	err = r.SetTermPrimary("Missing", nil, types.LangHebrew, "x")
	assert.ErrorIs(t, err, types.ErrTermNotFound)
}

func TestIndexUpdates(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib)
	seedCategories(t, lib, types.Path{"Mishnah"})

	idx, err := r.AddIndex("Footnotes on Peah", mustCategory(t, r, "Mishnah"))
	require.NoError(t, err)
	idx.Dependence = "Commentary"
	idx.BaseTextTitles = []string{"Mishnah Peah"}

	require.NoError(t, r.SetIndexOrder(idx, []int{4, 1}))
	require.NoError(t, r.HideIndex(idx))
	require.NoError(t, r.ClearDependence(idx))

	got, err := r.Index("Footnotes on Peah")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, got.Order)
	assert.True(t, got.Hidden)
	assert.Empty(t, got.Dependence)
	assert.Empty(t, got.BaseTextTitles)

	assert.ErrorIs(t, r.HideIndex(&types.Index{Title: "unsaved"}), types.ErrInvalidIndex)
}

// flakyTable passes calls through to a real table until the mock says a
// Set should fail.
type flakyTable struct {
	mock.Mock
	types.Table
}

func (f *flakyTable) Set(id string, data any) (string, error) {
	args := f.Called(id, data)
	if err := args.Error(0); err != nil {
		return "", err
	}
	return f.Table.Set(id, data)
}

// flakySource serves the flaky categories table and real tables otherwise.
type flakySource struct {
	types.TableSource
	categories types.Table
}

func (s flakySource) GetTable(name string) (types.Table, error) {
	if name == types.TableCategories {
		return s.categories, nil
	}
	return s.TableSource.GetTable(name)
}

func failSecondSet(base types.Table, boom error) *flakyTable {
	ft := &flakyTable{Table: base}
	ft.On("Set", mock.Anything, mock.Anything).Return(nil).Once()
	ft.On("Set", mock.Anything, mock.Anything).Return(boom)
	return ft
}

func seedSubtree(t *testing.T, lib types.TableSource) {
	t.Helper()
	seedCategories(t, lib,
		types.Path{"Tanaitic"},
		types.Path{"Tanaitic", "Minor Tractates"},
		types.Path{"Tanaitic", "Minor Tractates", "Kinnim"},
		types.Path{"Talmud"},
	)
}

func TestMoveCategoryInto_PartialWithoutTransaction(t *testing.T) {
	lib := newLibrary(t)
	seedSubtree(t, lib)
	boom := errors.New("disk full")

	base, err := lib.GetTable(types.TableCategories)
	require.NoError(t, err)
	ft := failSecondSet(base, boom)
	r, _ := newReorganizer(t, flakySource{TableSource: lib, categories: ft})

	_, err = r.MoveCategoryInto(mustCategory(t, r, "Tanaitic", "Minor Tractates"), mustCategory(t, r, "Talmud"))
	assert.ErrorIs(t, err, boom)
	ft.AssertNumberOfCalls(t, "Set", 2)

	assert.Equal(t, []string{
		"Talmud",
		"Tanaitic",
		"Talmud / Minor Tractates",
		"Tanaitic / Minor Tractates / Kinnim",
	}, allPaths(t, lib), "the subtree is left half moved")
}

func TestMoveCategoryInto_RolledBackInTransaction(t *testing.T) {
	lib := newLibrary(t)
	seedSubtree(t, lib)
	boom := errors.New("disk full")
	before := allPaths(t, lib)

	err := lib.Transaction(func(tx types.TableSource) error {
		base, err := tx.GetTable(types.TableCategories)
		if err != nil {
			return err
		}
		r, _ := newReorganizer(t, flakySource{TableSource: tx, categories: failSecondSet(base, boom)})
		cat, err := r.Category(types.Path{"Tanaitic", "Minor Tractates"})
		if err != nil {
			return err
		}
		parent, err := r.Category(types.Path{"Talmud"})
		if err != nil {
			return err
		}
		_, err = r.MoveCategoryInto(cat, parent)
		return err
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, allPaths(t, lib), "nothing moved")
}

func TestBind(t *testing.T) {
	lib := newLibrary(t)
	r, _ := newReorganizer(t, lib, WithStrictDelete(true), WithTermScope(TermScopeParent))
	seedCategories(t, lib, types.Path{"A"})

	err := lib.Transaction(func(tx types.TableSource) error {
		bound := r.Bind(tx)
		assert.True(t, bound.strictDelete)
		assert.Equal(t, TermScopeParent, bound.termScope)
		_, err := bound.Category(types.Path{"A"})
		return err
	})
	require.NoError(t, err)
	assert.Same(t, lib, r.src, "Bind leaves the original untouched")
}
