package skein

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTextRoundTrip(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.SetText(0, "hello"))

	// BOS is prefixed and renders as an empty piece.
	assert.Equal(t, 6, ed.Len())
	assert.Equal(t, ed.Model().TokenBOS(), ed.TokenAt(0, 0))
	text, err := ed.FullText()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestAppendAndInsertText(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.AppendText(0, "world"))
	require.NoError(t, ed.InsertText(0, 0, "hello "))
	text, err := ed.FullText()
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestReplaceText(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.AppendText(0, "Hello, world!"))
	original, err := ed.FullText()
	require.NoError(t, err)

	require.NoError(t, ed.ReplaceText(Range{Start: 3, End: 6}, " REPLACED "))

	prefix, err := ed.Detokenize([]Token{'H', 'e', 'l'})
	require.NoError(t, err)
	suffix := original[6:]
	got, err := ed.FullText()
	require.NoError(t, err)
	assert.Equal(t, prefix+" REPLACED "+suffix, got)

	require.NoError(t, ed.Undo())
	restored, err := ed.FullText()
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestTextRangeAndPieces(t *testing.T) {
	ed := newTestEditor(t)
	require.NoError(t, ed.AppendText(0, "abcdef"))

	mid, err := ed.Text(Range{Start: 2, End: 4})
	require.NoError(t, err)
	assert.Equal(t, "cd", mid)

	piece, err := ed.TokenPiece('a')
	require.NoError(t, err)
	assert.Equal(t, "a", piece)

	_, err = ed.TokenPiece(Token(ed.Model().VocabSize()))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
