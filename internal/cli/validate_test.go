package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlab/internal/compiler"
	"github.com/roach88/sqlab/internal/testutil"
)

func TestValidateValidNotebook(t *testing.T) {
	dir := writeProject(t, "", hintsNotebook()...)

	out, err := execute(t, "--dir", dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (3 record(s))")
	assert.NotContains(t, out, "warning(s)")
}

func TestValidateWritesNothing(t *testing.T) {
	dir := writeProject(t, "", hintsNotebook()...)

	_, err := execute(t, "--dir", dir, "validate")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "output"))
	assert.NoDirExists(t, filepath.Join(dir, ".sqlab"))
}

func TestValidateReportsWarnings(t *testing.T) {
	dir := writeProject(t, "", danglingNotebook()...)

	out, err := execute(t, "--dir", dir, "validate")
	require.NoError(t, err, "warnings do not fail the validation without --strict")
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "warning(s):")
	assert.Contains(t, out, "[W501] 003 (token 3003)")
}

func TestValidateStrict(t *testing.T) {
	dir := writeProject(t, "", danglingNotebook()...)

	out, err := execute(t, "--dir", dir, "validate", "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "(--strict)")
}

func TestValidateStrictJSON(t *testing.T) {
	dir := writeProject(t, "", danglingNotebook()...)

	out, err := execute(t, "--dir", dir, "--format", "json", "validate", "--strict")
	require.Error(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.False(t, result.Valid)
	assert.Positive(t, result.Warnings)
	require.NotEmpty(t, resp.Warnings)

	codes := make([]string, 0, len(resp.Warnings))
	for _, w := range resp.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, compiler.WarnDanglingToken)
}

func TestValidateCompileError(t *testing.T) {
	dir := writeProject(t, "",
		testutil.Markdown("**Episode [001].** First episode of one adventure"),
		testutil.Markdown("**Statement.** how?"),
		testutil.SQL("SELECT foo, salt_001 as token", "1002"),
		testutil.SQL("-- Hint. This is wrong\nSELECT bar, salt_001 as token", ""),
	)

	out, err := execute(t, "--dir", dir, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E401]")
}

func TestValidateMissingNotebook(t *testing.T) {
	out, err := execute(t, "--dir", t.TempDir(), "validate", "missing.ipynb")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "Error [E005]")
}
