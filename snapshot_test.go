package skein

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotAcrossClear(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.AppendText(0, "snapshot me"))
	require.NoError(t, ed.SyncKV())
	want := bufferTokensOf(t, ed)

	snap, err := ed.CreateSnapshot()
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.NotEmpty(t, snap.State)

	require.NoError(t, ed.Clear(0))
	require.Equal(t, 0, ed.Len())

	require.NoError(t, ed.RestoreSnapshot(snap))
	assert.Equal(t, len(want), ed.Len())
	if diff := cmp.Diff(want, bufferTokensOf(t, ed)); diff != "" {
		t.Fatalf("restore mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, ed.KVDirty())
	assert.True(t, ed.LogitsValid())

	// Top-k works straight after restore, no explicit sync.
	cands, err := ed.TopK(5)
	require.NoError(t, err)
	assert.Len(t, cands, 5)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{1, 2, 3}))
	snap, err := ed.CreateSnapshot()
	require.NoError(t, err)

	require.NoError(t, ed.SetToken(0, 0, 9))
	assert.Equal(t, Token(1), snap.Tokens[0])

	require.NoError(t, ed.RestoreSnapshot(snap))
	assert.Equal(t, []Token{1, 2, 3}, bufferTokensOf(t, ed))
}

func TestRestoreClearsHistory(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{1, 2, 3}))
	snap, err := ed.CreateSnapshot()
	require.NoError(t, err)
	require.NoError(t, ed.DeleteTokens(Range{Start: 0, End: 1}))

	require.NoError(t, ed.RestoreSnapshot(snap))
	assert.Equal(t, 0, ed.HistoryLen())
	assert.Equal(t, 0, ed.RedoLen())
	assert.NoError(t, ed.Undo()) // no-op, nothing to unwind
	assert.Equal(t, 3, ed.Len())
}

func TestRestoreValidation(t *testing.T) {
	ed := newTestEditor(t)
	assert.ErrorIs(t, ed.RestoreSnapshot(nil), ErrInvalidPosition)

	snap, err := ed.CreateSnapshot()
	require.NoError(t, err)
	ed.SetReadonly(true)
	assert.ErrorIs(t, ed.RestoreSnapshot(snap), ErrReadOnly)
}
