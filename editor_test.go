package skein

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	model := NewSimModel()
	mc, err := model.NewContext(ContextParams{CtxSize: 4096, BatchSize: 64})
	require.NoError(t, err)
	ed, err := NewEditor(mc, model, DefaultEditorOptions())
	require.NoError(t, err)
	t.Cleanup(func() {
		ed.Close()
		mc.Close()
	})
	return ed
}

func TestNewEditorValidation(t *testing.T) {
	model := NewSimModel()
	mc, err := model.NewContext(ContextParams{})
	require.NoError(t, err)
	defer mc.Close()

	_, err = NewEditor(nil, model, DefaultEditorOptions())
	assert.ErrorIs(t, err, ErrInvalidContext)
	_, err = NewEditor(mc, nil, DefaultEditorOptions())
	assert.ErrorIs(t, err, ErrInvalidContext)

	ed, err := NewEditor(mc, model, DefaultEditorOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, ed.ID())
	assert.Equal(t, 0, ed.Len())
	assert.False(t, ed.KVDirty())
	require.NoError(t, ed.Close())
	assert.ErrorIs(t, ed.Close(), ErrInvalidContext)
}

func TestBoundarySafety(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{10, 20, 30}))

	assert.Equal(t, NoToken, ed.TokenAt(-1, 0))
	assert.Equal(t, NoToken, ed.TokenAt(3, 0))

	_, err := ed.Info(3, 0)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	assert.ErrorIs(t, ed.InsertTokens(-1, 0, []Token{1}), ErrInvalidPosition)
	assert.ErrorIs(t, ed.InsertTokens(4, 0, []Token{1}), ErrInvalidPosition)
	assert.ErrorIs(t, ed.SetToken(3, 0, 1), ErrInvalidPosition)
	assert.ErrorIs(t, ed.SetToken(0, 0, Token(ed.Model().VocabSize())), ErrInvalidToken)
	assert.ErrorIs(t, ed.SetToken(0, 0, -2), ErrInvalidToken)

	// Failed operations leave the buffer untouched.
	assert.Equal(t, 3, ed.Len())
	toks, err := ed.Tokens(Range{Start: 0, End: 3})
	require.NoError(t, err)
	assert.Equal(t, []Token{10, 20, 30}, toks)
}

func TestDeleteClamps(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{1, 2, 3, 4}))

	// Over-long ranges clamp instead of erroring.
	require.NoError(t, ed.DeleteTokens(Range{Start: 2, End: 99}))
	assert.Equal(t, 2, ed.Len())

	// Empty ranges are no-ops and record nothing.
	before := ed.HistoryLen()
	require.NoError(t, ed.DeleteTokens(Range{Start: 1, End: 1}))
	assert.Equal(t, before, ed.HistoryLen())
}

func TestReadonlyRejectsMutations(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{1, 2}))
	ed.SetReadonly(true)

	assert.ErrorIs(t, ed.InsertTokens(0, 0, []Token{3}), ErrReadOnly)
	assert.ErrorIs(t, ed.DeleteTokens(Range{Start: 0, End: 1}), ErrReadOnly)
	assert.ErrorIs(t, ed.ReplaceTokens(Range{Start: 0, End: 1}, []Token{3}), ErrReadOnly)
	assert.ErrorIs(t, ed.SetToken(0, 0, 3), ErrReadOnly)
	assert.ErrorIs(t, ed.Clear(0), ErrReadOnly)
	assert.ErrorIs(t, ed.Undo(), ErrReadOnly)

	ed.SetReadonly(false)
	assert.NoError(t, ed.SetToken(0, 0, 3))
}

func TestParallelArrays(t *testing.T) {
	ed := newTestEditor(t)
	check := func() {
		t.Helper()
		require.Equal(t, len(ed.tokens), len(ed.infos))
		require.Equal(t, ed.Len(), len(ed.tokens))
		for i, info := range ed.infos {
			require.Equal(t, i, info.Pos)
			require.Equal(t, ed.tokens[i], info.ID)
		}
	}

	require.NoError(t, ed.InsertTokens(0, 0, []Token{5, 6, 7, 8, 9}))
	check()
	require.NoError(t, ed.DeleteTokens(Range{Start: 1, End: 3}))
	check()
	require.NoError(t, ed.ReplaceTokens(Range{Start: 0, End: 2}, []Token{40, 41, 42}))
	check()
	require.NoError(t, ed.Undo())
	check()
	require.NoError(t, ed.Redo())
	check()
	require.NoError(t, ed.Clear(0))
	check()
}

func TestFlagStamping(t *testing.T) {
	ed := newTestEditor(t)
	bos := ed.Model().TokenBOS()
	require.NoError(t, ed.InsertTokens(0, 0, []Token{bos, 'h', 'i'}))

	info, err := ed.Info(0, 0)
	require.NoError(t, err)
	assert.True(t, info.Flags.Has(FlagBOS))
	assert.True(t, info.Flags.Has(FlagSpecial))
	assert.True(t, info.Flags.Has(FlagUserData))

	info, err = ed.Info(1, 0)
	require.NoError(t, err)
	assert.False(t, info.Flags.Has(FlagBOS))
	assert.True(t, info.Flags.Has(FlagUserData))
	assert.False(t, info.Flags.Has(FlagGenerated))
}

func TestMutationMarksDirty(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{'a', 'b'}))
	assert.True(t, ed.KVDirty())
	assert.False(t, ed.LogitsValid())

	require.NoError(t, ed.SyncKV())
	assert.False(t, ed.KVDirty())
	assert.True(t, ed.LogitsValid())

	require.NoError(t, ed.SetToken(0, 0, 'c'))
	assert.True(t, ed.KVDirty())
	assert.False(t, ed.LogitsValid())
}

func TestObserverFanOut(t *testing.T) {
	ed := newTestEditor(t)

	var tokenEvents, rangeEvents int
	obs := &ObserverFuncs{
		OnToken: func(pos int, old, new Token) { tokenEvents++ },
		OnRange: func(r Range) { rangeEvents++ },
	}
	ed.AddObserver(obs)

	require.NoError(t, ed.InsertTokens(0, 0, []Token{1, 2}))
	require.NoError(t, ed.SetToken(0, 0, 3))
	require.NoError(t, ed.DeleteTokens(Range{Start: 0, End: 1}))
	assert.Equal(t, 1, tokenEvents)
	assert.Equal(t, 2, rangeEvents)

	ed.RemoveObserver(obs)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{4}))
	assert.Equal(t, 2, rangeEvents)
}

func TestInsertReindexesTail(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.InsertTokens(0, 0, []Token{'a', 'b', 'c', 'd'}))

	// A middle insert shifts the tail; the stored metadata must carry the
	// new positions, not just the read-time view.
	require.NoError(t, ed.InsertTokens(2, 0, []Token{'x', 'y'}))
	for i := range ed.infos {
		assert.Equal(t, i, ed.infos[i].Pos, "stored Pos at %d", i)
	}

	// Snapshots copy the stored metadata verbatim.
	snap, err := ed.CreateSnapshot()
	require.NoError(t, err)
	for i, info := range snap.Infos {
		assert.Equal(t, i, info.Pos, "snapshot Pos at %d", i)
	}
}

func TestCapacityGrowth(t *testing.T) {
	ed := newTestEditor(t)
	big := make([]Token, defaultCapacity*2+5)
	for i := range big {
		big[i] = Token(i % 200)
	}
	require.NoError(t, ed.InsertTokens(0, 0, big))
	assert.Equal(t, len(big), ed.Len())
	assert.Equal(t, len(big), len(ed.infos))
}
