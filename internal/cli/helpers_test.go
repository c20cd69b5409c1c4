package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/testutil"
)

// hintsNotebook is one exercise with a solution and a hint.
func hintsNotebook() []ir.Cell {
	return []ir.Cell{
		testutil.Markdown("# Basics\nWarm up."),
		testutil.Markdown("**Exercise [042].** how?"),
		testutil.SQL("SELECT foo, salt_042 as token", "4547"),
		testutil.SQL("-- Hint. This is wrong\nSELECT bar, salt_042 as token", "3839"),
	}
}

// danglingNotebook compiles, with a W501 warning on token 3003.
func danglingNotebook() []ir.Cell {
	return []ir.Cell{
		testutil.Markdown("**Episode [001].** Start"),
		testutil.Markdown("**Statement.** how?"),
		testutil.SQL("SELECT foo, salt_001 as token\n--> Episode [002]", "1002"),
		testutil.Markdown("**Episode [002].** The end"),
		testutil.Markdown("**Statement.** done"),
		testutil.Markdown("**Episode [003].** Unreachable"),
		testutil.Markdown("**Statement.** lost"),
		testutil.SQL("SELECT baz, salt_003 as token", "3003"),
	}
}

// writeProject creates a project directory holding cadavre.ipynb and, when
// config is not empty, sqlab.cue.
func writeProject(t *testing.T, config string, cells ...ir.Cell) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, writeNotebook(filepath.Join(dir, "cadavre.ipynb"), cells...))
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlab.cue"), []byte(config), 0o644))
	}
	return dir
}

func writeNotebook(path string, cells ...ir.Cell) error {
	return os.WriteFile(path, testutil.Notebook(cells...), 0o644)
}

// execute runs the root command and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse decodes a JSON response, with its data into data.
func decodeResponse(t *testing.T, out string, data interface{}) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}
