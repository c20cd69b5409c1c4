package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlab/internal/ir"
	. "github.com/roach88/sqlab/internal/testutil"
)

// complexGraphCells builds two adventures:
//
//	--> 001 =1002,2002=> 002 =1003=> 003 -1004-> 004
//	     \____2003____________/ \      \_0102, 0202 (hints)
//	                 002 -2004-> 004
//
//	--> 011 -1012-> 012
//	       \-1013-> 013
func complexGraphCells() []ir.Cell {
	return []ir.Cell{
		Markdown("**Episode [001].** First episode of one adventure"),
		Markdown("**Statement.** how 001?"),
		SQL("SELECT r1002a, salt_001 as token\n--> Episod [002]", "1002"),
		SQL("SELECT r1002b, salt_001 as token", "1002"),
		SQL("SELECT r2002, salt_001 as token", "2002"),
		SQL("SELECT r2003, salt_001 as token\n--> Episode [003]", "2003"),
		SQL("SELECT r1002c", "a variant without token"),

		Markdown("**Episode [002].** blah blah"),
		Markdown("**Statement.** how 002?"),
		SQL("SELECT r1003a, salt_002 as token\n--> Episode [003]", "1003"),
		SQL("SELECT r2004, salt_002 as token\n--> Episode [004]", "2004"),
		SQL("SELECT r1003b, salt_002 as token", "1003"),

		Markdown("**Episode [003].** blah blah"),
		Markdown("**Statement.** how 003?"),
		SQL("SELECT r1004, salt_003 as token\n--> Epilog [004]", "1004"),
		SQL("-- Hint. Wrong\nSELECT r0102, salt_003 as token", "0102"),
		SQL("-- Hint. Bad\nSELECT r0202, salt_003 as token", "0202"),

		Markdown("**Episode [004].** End of one adventure"),
		Markdown("**Statement.** no question asked!"),

		Markdown("**Episode [011].** First episode of another adventure"),
		Markdown("**Statement.** how?"),
		SQL("SELECT r1012, salt_011 as token\n--> Episod [012]", "1012"),
		SQL("SELECT r1013, salt_011 as token\n--> Episod [013]", "1013"),
		Markdown("**Episode [012].** End of another adventure"),
		Markdown("**Statement.** no question asked either!"),
		Markdown("**Episode [013].** Alternative end of another adventure"),
		Markdown("**Statement.** no question asked either!"),
	}
}

func mustCompile(t *testing.T, cells ...ir.Cell) *ir.Records {
	t.Helper()
	records, err := compile(t, cells...)
	require.NoError(t, err)
	return records
}

func TestResolveSingleSolutionExercise(t *testing.T) {
	records := mustCompile(t,
		Markdown("**Exercise [042].** how?"),
		SQL("SELECT foo, salt_042 as token", "4547"),
	)
	assert.Equal(t, []string{"042", "4547"}, records.Keys())

	exit, ok := records.Lookup("4547")
	require.True(t, ok)
	assert.Equal(t, ir.KindExit, exit.Kind())

	entry, _ := records.Resolve("042")
	reached, _ := records.Resolve("4547")
	assert.Same(t, entry, reached)

	data, err := json.Marshal(records)
	require.NoError(t, err)
	head, err := json.Marshal(TokenTable("4547") + "\nTotal: 1 row affected.")
	require.NoError(t, err)
	exercise := `{"kind":"exercise","part_number":0,"task_number":1,"section_path":[],"salt":"042",` +
		`"formula":"salt_042 as token","solutions":[{"query":"SELECT foo","result_head":` + string(head) +
		`,"token":"4547"}],"statement":"how?"}`
	assert.JSONEq(t, `{"042":`+exercise+`,"4547":`+exercise+`}`, string(data))
}

func TestResolveExerciseSolutionsSameToken(t *testing.T) {
	records := mustCompile(t,
		Markdown("**Exercise [042].** how?"),
		SQL("SELECT foo, salt_042 as token", "4547"),
		SQL("-- Variant.\nSELECT bar, salt_042 as token", "4547"),
	)
	assert.Equal(t, []string{"042", "4547"}, records.Keys())

	task, _ := records.Resolve("042")
	sols := task.Base().Solutions.Solutions()
	require.Len(t, sols, 2)
	assert.Equal(t, "Variant. ", sols[1].Intro)
}

func TestResolveExerciseSolutionsVariousTokens(t *testing.T) {
	records := mustCompile(t,
		Markdown("**Exercise [042].** how?"),
		SQL("SELECT foo, salt_042 as token", "4547"),
		SQL("SELECT bar, salt_042 as token", "3839"),
	)
	assert.Equal(t, []string{"042", "4547", "3839"}, records.Keys())
	for _, token := range []string{"4547", "3839"} {
		rec, _ := records.Lookup(token)
		assert.Equal(t, ir.Exit{Entry: "042", Index: 0}, rec)
	}
}

func TestResolveAnnotationsKeepTheirPlace(t *testing.T) {
	records := mustCompile(t,
		Markdown("**Exercise [042].** how?"),
		Markdown("**Annotation.** Before all."),
		Markdown("**Annotation.** Before 4547."),
		SQL("-- Annotation for 4547\nSELECT foo, salt_042 as token", "4547"),
		Markdown("**Annotation.** After 4547."),
		Markdown("**Annotation.** Before 3839."),
		SQL("-- Annotation for 3839\nSELECT bar, salt_042 as token", "3839"),
		Markdown("**Annotation.** After 3839."),
		Markdown("**Annotation.** After all."),
	)
	task, _ := records.Resolve("042")
	entries := task.Base().Solutions
	require.Len(t, entries, 8)
	assert.Equal(t, ir.Annotation("Before all."), entries[0])
	assert.Equal(t, ir.Annotation("Before 4547."), entries[1])
	assert.Equal(t, "Annotation for 4547", entries[2].(*ir.Solution).Intro)
	assert.Equal(t, ir.Annotation("After all."), entries[7])
	assert.Len(t, entries.Solutions(), 2)
}

func TestResolveExerciseIgnoresNextSalt(t *testing.T) {
	records := mustCompile(t,
		Markdown("**Exercise [042].** how?"),
		SQL("SELECT foo, salt_042 as token\n--> Exercise [043]", "4547"),
	)
	assert.Equal(t, []string{"042", "4547"}, records.Keys())
	assert.False(t, records.Has("043"))
}

func TestResolveExerciseHints(t *testing.T) {
	records := mustCompile(t,
		Markdown("**Exercise [042].** how?"),
		SQL("SELECT foo, salt_042 as token", "4547"),
		SQL("-- Hint. This is wrong\nSELECT bar, salt_042 as token", "3839"),
		SQL("-- Hint. This is bad\nSELECT bizz, salt_042 as token", "8968"),
	)
	assert.Equal(t, []string{"042", "3839", "8968", "4547"}, records.Keys())

	hints := records.Hints()
	require.Len(t, hints, 2)
	assert.Equal(t, "3839", hints[0].Token)
	assert.Equal(t, &ir.Hint{
		PartNumber: 0,
		TaskNumber: 1,
		Text:       "This is wrong",
		Query:      "SELECT bar, salt_042 as token",
		Salt:       "042",
	}, hints[0].Hint)
}

func TestResolveSectionsAndEOF(t *testing.T) {
	records := mustCompile(t,
		Markdown("# 1. Keep this (+)\n"),
		Markdown("# 1.1. Keep this (+)\n"),
		Markdown("**Exercise [042].** how?"),
		SQL("SELECT foo, salt_042 as token", "5664"),
		Markdown("# 1.2. Keep this (+)\n"),
		Markdown("**Exercise [043].** how?"),
		SQL("SELECT foo, salt_043 as token", "6877"),
		Markdown("# 1.3. Don't keep this\n"),
		Markdown("**Exercise [044].** how?"),
		SQL("SELECT foo, salt_044 as token", "9112"),
		Code("raise EOFError"),
		Markdown("**Exercise [045].** This should not be kept."),
		SQL("SELECT foo, salt_045 as token", "4547"),
	)
	assert.Equal(t, []string{"042", "043", "044", "5664", "6877", "9112"}, records.Keys())

	task, _ := records.Resolve("043")
	assert.Equal(t, 2, task.Base().TaskNumber)
	assert.Equal(t, []ir.Section{{Title: "1.2. Keep this (+)"}}, task.Base().SectionPath)
}

func TestResolveComplexGraph(t *testing.T) {
	records := mustCompile(t, complexGraphCells()...)

	assert.Equal(t, []string{
		"001", "1002", "2002", "2003", "1003", "0102", "0202", "2004", "1004",
		"011", "1012", "1013",
	}, records.Keys())

	expected := map[string]struct {
		salt          string
		part, episode int
	}{
		"001":  {"001", 1, 1},
		"1002": {"002", 1, 2},
		"2002": {"002", 1, 2},
		"2003": {"003", 1, 3},
		"1003": {"003", 1, 3},
		"2004": {"004", 1, 4},
		"1004": {"004", 1, 4},
		"011":  {"011", 2, 1},
		"1012": {"012", 2, 2},
		"1013": {"013", 2, 3},
	}
	for token, want := range expected {
		task, ok := records.Resolve(token)
		require.True(t, ok, token)
		base := task.Base()
		assert.Equal(t, want.salt, base.Salt, token)
		assert.Equal(t, want.part, base.PartNumber, token)
		assert.Equal(t, want.episode, base.TaskNumber, token)
	}

	alias, _ := records.Lookup("2002")
	assert.Equal(t, ir.KindAlias, alias.Kind())
	assert.Equal(t, "1002", alias.(ir.Alias).Target)

	hint, _ := records.Lookup("0202")
	assert.Equal(t, &ir.Hint{
		PartNumber: 1,
		TaskNumber: 3,
		Text:       "Bad",
		Query:      "SELECT r0202, salt_003 as token",
		Salt:       "003",
	}, hint)

	first, _ := records.Resolve("001")
	sols := first.Base().Solutions.Solutions()
	require.Len(t, sols, 5)
	assert.Equal(t, "SELECT r1002c", sols[4].Query)
	assert.Equal(t, "1002", sols[4].Token, "token inherited from the first solution")

	last, _ := records.Resolve("2004")
	assert.True(t, last.(*ir.Episode).Terminal())
	assert.Empty(t, last.Base().Formula)
}

func TestResolveAliasTransparency(t *testing.T) {
	records := mustCompile(t, complexGraphCells()...)

	primary, _ := records.Resolve("1002")
	alias, _ := records.Resolve("2002")
	assert.Same(t, primary, alias)

	h1, err := ir.RecordHash(records, "1002")
	require.NoError(t, err)
	h2, err := ir.RecordHash(records, "2002")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestResolveRecordsRoundTrip(t *testing.T) {
	records := mustCompile(t, complexGraphCells()...)
	data, err := json.Marshal(records)
	require.NoError(t, err)

	var reloaded ir.Records
	require.NoError(t, json.Unmarshal(data, &reloaded))
	assert.Equal(t, records.Keys(), reloaded.Keys())

	want, err := ir.Digest(records)
	require.NoError(t, err)
	got, err := ir.Digest(&reloaded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveIsDeterministic(t *testing.T) {
	a := mustCompile(t, complexGraphCells()...)
	b := mustCompile(t, complexGraphCells()...)
	da, err := ir.Digest(a)
	require.NoError(t, err)
	db, err := ir.Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestResolveDoesNotMutateSegments(t *testing.T) {
	segments := build(t, complexGraphCells()...)
	_, err := Resolve(segments)
	require.NoError(t, err)
	assert.Len(t, segments[0].Redirects, 5)
	assert.Len(t, segments[2].Hints, 2)
	assert.Zero(t, segments[0].TaskNumber)
}
