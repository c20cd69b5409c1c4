package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlab/internal/compiler"
	"github.com/roach88/sqlab/internal/testutil"
)

const hintsTokenTable = "token\tactivity\tsource\ttarget\taction\tsalt\n" +
	"042\t0\t0\t1\tenter\tN/A\n" +
	"3839\t0\t1\t1\thint\t042\n" +
	"4547\t0\t1\t0\texit\t042\n"

func TestParseWritesOutputs(t *testing.T) {
	dir := writeProject(t, "", hintsNotebook()...)

	out, err := execute(t, "--dir", dir, "parse", "--no-render")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled")
	assert.Contains(t, out, "3 record(s), 1 exercise(s), 0 episode(s), 1 hint(s)")
	assert.Contains(t, out, "stored as compilation")

	data, err := os.ReadFile(filepath.Join(dir, "output", "records.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "exercise"`, "records.json is indented")
	var records map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 3)
	assert.Equal(t, "exercise", records["042"]["kind"])
	assert.Equal(t, "hint", records["3839"]["kind"])
	assert.NotContains(t, records["3839"], "salt", "hint salts are consumed by the graph")

	tokens, err := os.ReadFile(filepath.Join(dir, "output", "token_table.tsv"))
	require.NoError(t, err)
	assert.Equal(t, hintsTokenTable, string(tokens))

	gv, err := os.ReadFile(filepath.Join(dir, "output", "activity_map.gv"))
	require.NoError(t, err)
	assert.Contains(t, string(gv), "digraph G {")
	assert.Contains(t, string(gv), "042 -> 4547")

	_, err = os.Stat(filepath.Join(dir, ".sqlab", "history.db"))
	require.NoError(t, err)
}

func TestParseJSON(t *testing.T) {
	dir := writeProject(t, "", hintsNotebook()...)

	out, err := execute(t, "--dir", dir, "--format", "json", "parse", "--no-render")
	require.NoError(t, err)

	var result ParseResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, filepath.Join(dir, "cadavre.ipynb"), result.Notebook)
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, 1, result.Exercises)
	assert.Equal(t, 1, result.Hints)
	assert.Equal(t, 3, result.Tokens)
	assert.True(t, result.GraphChanged)
	assert.True(t, result.Stored)
	assert.NotEmpty(t, result.Compilation)
}

func TestParseTwiceStoresOnce(t *testing.T) {
	dir := writeProject(t, "", hintsNotebook()...)

	out, err := execute(t, "--dir", dir, "--format", "json", "parse", "--no-render")
	require.NoError(t, err)
	var first ParseResult
	decodeResponse(t, out, &first)

	out, err = execute(t, "--dir", dir, "--format", "json", "parse", "--no-render")
	require.NoError(t, err)
	var second ParseResult
	decodeResponse(t, out, &second)

	assert.False(t, second.Stored)
	assert.False(t, second.GraphChanged, "the activity map is rewritten only when it changes")
	assert.Equal(t, first.Compilation, second.Compilation)
}

func TestParseNoStore(t *testing.T) {
	dir := writeProject(t, "", hintsNotebook()...)

	out, err := execute(t, "--dir", dir, "parse", "--no-render", "--no-store")
	require.NoError(t, err)
	assert.NotContains(t, out, "compilation")

	_, err = os.Stat(filepath.Join(dir, ".sqlab"))
	assert.True(t, os.IsNotExist(err))
}

func TestParseToleratesMissingRenderer(t *testing.T) {
	dir := writeProject(t, `render: binary: "sqlab-no-such-binary"`, hintsNotebook()...)

	_, err := execute(t, "--dir", dir, "parse")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "output", "activity_map.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestParseConfiguredPaths(t *testing.T) {
	dir := writeProject(t, `
notebook: "course.ipynb"
output: tokens: "dist/tokens.tsv"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "course.ipynb"), testutil.Notebook(hintsNotebook()...), 0o644))

	_, err := execute(t, "--dir", dir, "parse", "--no-render", "--no-store")
	require.NoError(t, err)

	tokens, err := os.ReadFile(filepath.Join(dir, "dist", "tokens.tsv"))
	require.NoError(t, err)
	assert.Equal(t, hintsTokenTable, string(tokens))
}

func TestParseNotebookArgument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "other.ipynb")
	require.NoError(t, os.WriteFile(path, testutil.Notebook(hintsNotebook()...), 0o644))

	out, err := execute(t, "--dir", dir, "parse", path, "--no-render", "--no-store")
	require.NoError(t, err)
	assert.Contains(t, out, path)
}

func TestParseFrenchLabels(t *testing.T) {
	dir := writeProject(t, `language: "fr"`,
		testutil.Markdown("**Exercice [042].** comment ?"),
		testutil.SQL("SELECT foo, salt_042 as token", "4547"),
	)

	_, err := execute(t, "--dir", dir, "parse", "--no-render", "--no-store")
	require.NoError(t, err)
}

func TestParseCompileError(t *testing.T) {
	dir := writeProject(t, "", testutil.Markdown("**Exercice [001].** bla bla"))

	out, err := execute(t, "--dir", dir, "parse", "--no-render")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E205")
	assert.Contains(t, out, "Error [E205]: Unknown label 'Exercice'.")

	_, statErr := os.Stat(filepath.Join(dir, "output"))
	assert.True(t, os.IsNotExist(statErr), "nothing is written on failure")
}

func TestParseCompileErrorJSON(t *testing.T) {
	dir := writeProject(t, "", testutil.Markdown("**Exercice [001].** bla bla"))

	out, err := execute(t, "--dir", dir, "--format", "json", "parse")
	require.Error(t, err)

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E205", resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(compiler.ClassStructural), details["class"])
}

func TestParseMissingNotebook(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--dir", dir, "parse")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestParseInvalidConfig(t *testing.T) {
	dir := writeProject(t, `language: "de"`, hintsNotebook()...)

	out, err := execute(t, "--dir", dir, "parse")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestRenderOutputs(t *testing.T) {
	assert.Equal(t, map[string]string{"pdf": "a.pdf", "svg": "a.svg"},
		renderOutputs([]string{"pdf", "svg"}, "a.pdf", "a.svg"))
	assert.Equal(t, map[string]string{"svg": "a.svg"},
		renderOutputs([]string{"svg"}, "a.pdf", "a.svg"))
	assert.Empty(t, renderOutputs(nil, "a.pdf", "a.svg"))
}
