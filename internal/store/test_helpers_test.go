package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlab/internal/compiler"
	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/testutil"
	"github.com/roach88/sqlab/internal/tokentable"
)

// createTestStore creates a store in a temp dir with deterministic IDs
// and timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDs("comp")),
		WithClock(testutil.NewDeterministicClock()),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// compileTestNotebook compiles an exercise with a hint followed by a two
// episode adventure.
func compileTestNotebook(t *testing.T, statement string) (*ir.Records, []tokentable.Item) {
	t.Helper()
	records, err := compiler.New(nil, nil).Compile([]ir.Cell{
		testutil.Markdown("# Basics\n"),
		testutil.Markdown("**Exercise [042].** " + statement),
		testutil.SQL("SELECT foo, salt_042 as token", "4547"),
		testutil.SQL("-- Hint. Wrong\nSELECT bar, salt_042 as token", "3839"),
		testutil.Markdown("**Episode [001].** Start"),
		testutil.Markdown("**Statement.** Go on."),
		testutil.SQL("SELECT foo, salt_001 as token\n--> Episode [002]", "1002"),
		testutil.SQL("SELECT bar, salt_001 as token", "2002"),
		testutil.Markdown("**Episode [002].** The end."),
		testutil.Markdown("**Statement.** Rest."),
	})
	require.NoError(t, err)
	items, err := tokentable.FromRecords(records)
	require.NoError(t, err)
	return records, items
}
