package skein

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingContext wraps a ModelContext and counts Decode calls.
type countingContext struct {
	ModelContext
	decodes int
}

func (c *countingContext) Decode(batch Batch) error {
	c.decodes++
	return c.ModelContext.Decode(batch)
}

func TestSyncKVRebuildsAndValidates(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.AppendText(0, "hello world"))
	assert.True(t, ed.KVDirty())

	require.NoError(t, ed.SyncKV())
	assert.False(t, ed.KVDirty())
	assert.True(t, ed.LogitsValid())
	assert.NotEmpty(t, ed.RuntimeContext().Logits())
}

func TestSyncKVIdempotent(t *testing.T) {
	model := NewSimModel()
	inner, err := model.NewContext(ContextParams{CtxSize: 1024})
	require.NoError(t, err)
	mc := &countingContext{ModelContext: inner}
	ed, err := NewEditor(mc, model, DefaultEditorOptions())
	require.NoError(t, err)
	defer ed.Close()

	require.NoError(t, ed.InsertTokens(0, 0, []Token{'a', 'b', 'c'}))
	require.NoError(t, ed.SyncKV())
	n := mc.decodes
	require.Greater(t, n, 0)

	// No intervening mutation: the second sync must not touch the runtime.
	require.NoError(t, ed.SyncKV())
	assert.Equal(t, n, mc.decodes)
	assert.False(t, ed.KVDirty())
	assert.True(t, ed.LogitsValid())
}

func TestSyncKVEmptyBuffer(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{'a'}))
	require.NoError(t, ed.Clear(0))

	require.NoError(t, ed.SyncKV())
	assert.False(t, ed.KVDirty())
	assert.False(t, ed.LogitsValid())
}

func TestSyncKVFullCache(t *testing.T) {
	model := NewSimModel()
	mc, err := model.NewContext(ContextParams{CtxSize: 8})
	require.NoError(t, err)
	defer mc.Close()
	ed, err := NewEditor(mc, model, DefaultEditorOptions())
	require.NoError(t, err)
	defer ed.Close()

	require.NoError(t, ed.AppendText(0, "this prompt exceeds eight tokens"))
	err = ed.SyncKV()
	assert.ErrorIs(t, err, ErrKVCacheFull)
	assert.True(t, ed.KVDirty())
	assert.False(t, ed.LogitsValid())
	// The buffer itself is untouched by the failed sync.
	assert.Equal(t, len("this prompt exceeds eight tokens"), ed.Len())
}

// failingContext rejects every decode with a runtime-specific error.
type failingContext struct {
	ModelContext
}

func (c *failingContext) Decode(batch Batch) error {
	return errors.New("backend exploded")
}

func TestSyncKVWrapsDecodeFailure(t *testing.T) {
	model := NewSimModel()
	inner, err := model.NewContext(ContextParams{CtxSize: 1024})
	require.NoError(t, err)
	defer inner.Close()
	ed, err := NewEditor(&failingContext{ModelContext: inner}, model, DefaultEditorOptions())
	require.NoError(t, err)
	defer ed.Close()

	require.NoError(t, ed.AppendText(0, "abc"))
	err = ed.SyncKV()
	// Arbitrary runtime failures surface uniformly as a full cache.
	assert.ErrorIs(t, err, ErrKVCacheFull)
	assert.True(t, ed.KVDirty())
}

func TestShiftKVPreservesFlags(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.AppendText(0, "abcdef"))
	require.NoError(t, ed.SyncKV())
	require.False(t, ed.KVDirty())
	require.True(t, ed.LogitsValid())

	// A clean editor stays clean and valid across a shift.
	require.NoError(t, ed.ShiftKV(0, 0, 3, 1))
	assert.False(t, ed.KVDirty())
	assert.True(t, ed.LogitsValid())

	// A dirty editor stays dirty: the shift does not touch flags either way.
	require.NoError(t, ed.SetToken(0, 0, 'z'))
	require.NoError(t, ed.ShiftKV(0, 0, 3, -1))
	assert.True(t, ed.KVDirty())
	assert.False(t, ed.LogitsValid())
}

func TestInvalidateAndClearKV(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.AppendText(0, "abcdef"))
	require.NoError(t, ed.SyncKV())

	require.NoError(t, ed.InvalidateKVRange(Range{Start: 2, End: 4, Seq: 0}))
	assert.True(t, ed.KVDirty())

	require.NoError(t, ed.SyncKV())
	require.NoError(t, ed.ClearKV())
	assert.True(t, ed.KVDirty())
	require.NoError(t, ed.SyncKV())
	assert.False(t, ed.KVDirty())
}
