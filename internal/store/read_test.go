package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/testutil"
)

func TestReadRecords_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	records, items := compileTestNotebook(t, "how?")

	c, _, err := s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	require.NoError(t, err)

	reloaded, err := s.ReadRecords(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, records.Keys(), reloaded.Keys())

	digest, err := ir.Digest(reloaded)
	require.NoError(t, err)
	assert.Equal(t, c.Digest, digest)

	// Aliases and exits still share their task.
	primary, _ := reloaded.Resolve("1002")
	alias, _ := reloaded.Resolve("2002")
	assert.Same(t, primary, alias)
	exercise, _ := reloaded.Resolve("042")
	exit, _ := reloaded.Resolve("4547")
	assert.Same(t, exercise, exit)
}

func TestReadTokenTable_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	records, items := compileTestNotebook(t, "how?")

	c, _, err := s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	require.NoError(t, err)

	got, err := s.ReadTokenTable(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, items, got)
	require.NotEmpty(t, got)
	assert.Equal(t, "042", got[0].Token)
}

func TestRead_UnknownCompilation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ReadRecords(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.ReadTokenTable(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Compilation(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLatestCompilation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, found, err := s.LatestCompilation(ctx, "cadavre.ipynb")
	require.NoError(t, err)
	assert.False(t, found)

	records, items := compileTestNotebook(t, "how?")
	_, _, err = s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	require.NoError(t, err)
	changed, items := compileTestNotebook(t, "why?")
	_, _, err = s.WriteCompilation(ctx, "cadavre.ipynb", changed, items)
	require.NoError(t, err)

	latest, found, err := s.LatestCompilation(ctx, "cadavre.ipynb")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), latest.Seq)
	assert.Equal(t, testutil.Epoch.Add(time.Second), latest.CreatedAt)
}

func TestListCompilations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListCompilations(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	records, items := compileTestNotebook(t, "how?")
	for _, path := range []string{"a.ipynb", "b.ipynb", "a.ipynb"} {
		_, _, err := s.WriteCompilation(ctx, path, records, items)
		require.NoError(t, err)
	}

	all, err := s.ListCompilations(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2, "third write is unchanged")
	assert.Equal(t, "a.ipynb", all[0].SourcePath)
	assert.Equal(t, "b.ipynb", all[1].SourcePath)

	onlyB, err := s.ListCompilations(ctx, "b.ipynb")
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, int64(2), onlyB[0].Seq)
}
