package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/testutil"
)

func TestWriteCompilation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	records, items := compileTestNotebook(t, "how?")

	c, written, err := s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	require.NoError(t, err)
	assert.True(t, written)

	digest, err := ir.Digest(records)
	require.NoError(t, err)
	assert.Equal(t, Compilation{
		ID:              "comp-0001",
		Seq:             1,
		SourcePath:      "cadavre.ipynb",
		Digest:          digest,
		RecordCount:     records.Len(),
		CompilerVersion: ir.CompilerVersion,
		FormatVersion:   ir.FormatVersion,
		CreatedAt:       testutil.Epoch,
	}, c)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM records WHERE compilation_id = ?", c.ID).Scan(&n))
	assert.Equal(t, records.Len(), n)
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM tokens WHERE compilation_id = ?", c.ID).Scan(&n))
	assert.Equal(t, len(items), n)
}

func TestWriteCompilation_SkipsUnchanged(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	records, items := compileTestNotebook(t, "how?")

	first, written, err := s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	require.NoError(t, err)
	require.True(t, written)

	again, written, err := s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, first, again)

	list, err := s.ListCompilations(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWriteCompilation_StoresChanges(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	records, items := compileTestNotebook(t, "how?")
	_, _, err := s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	require.NoError(t, err)

	changed, items := compileTestNotebook(t, "why?")
	c, written, err := s.WriteCompilation(ctx, "cadavre.ipynb", changed, items)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, int64(2), c.Seq)
	assert.Equal(t, "comp-0002", c.ID)
}

func TestWriteCompilation_SameDigestOtherNotebook(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	records, items := compileTestNotebook(t, "how?")

	_, written, err := s.WriteCompilation(ctx, "a.ipynb", records, items)
	require.NoError(t, err)
	assert.True(t, written)

	c, written, err := s.WriteCompilation(ctx, "b.ipynb", records, items)
	require.NoError(t, err)
	assert.True(t, written, "skipping is per notebook")
	assert.Equal(t, int64(2), c.Seq)
}

func TestWriteCompilation_CanceledContext(t *testing.T) {
	s := createTestStore(t)
	records, items := compileTestNotebook(t, "how?")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.WriteCompilation(ctx, "cadavre.ipynb", records, items)
	assert.Error(t, err)
}
