package skein

import "strings"

// SetText replaces the whole buffer with the tokenization of text,
// prefixed with BOS. The replacement is undoable as two edits: the clear
// and the insert.
func (e *Editor) SetText(seq SeqID, text string) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	toks, err := e.model.Tokenize(text, true, true)
	if err != nil {
		return err
	}
	if err := e.Clear(seq); err != nil {
		return err
	}
	return e.InsertTokens(0, seq, toks)
}

// AppendText tokenizes text without BOS and appends it.
func (e *Editor) AppendText(seq SeqID, text string) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	toks, err := e.model.Tokenize(text, false, true)
	if err != nil {
		return err
	}
	return e.InsertTokens(len(e.tokens), seq, toks)
}

// InsertText tokenizes text without BOS and inserts it before pos.
func (e *Editor) InsertText(pos int, seq SeqID, text string) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	toks, err := e.model.Tokenize(text, false, true)
	if err != nil {
		return err
	}
	return e.InsertTokens(pos, seq, toks)
}

// Text detokenizes the tokens covered by r, clamped to the buffer.
// Special tokens render as their (possibly empty) pieces.
func (e *Editor) Text(r Range) (string, error) {
	if e == nil || e.closed {
		return "", ErrInvalidContext
	}
	r = r.clamp(len(e.tokens))
	return e.Detokenize(e.tokens[r.Start:r.End])
}

// FullText detokenizes the whole buffer.
func (e *Editor) FullText() (string, error) {
	return e.Text(Range{Start: 0, End: e.Len(), Seq: AllSeqs})
}

// Tokenize converts text to tokens using the bound model.
func (e *Editor) Tokenize(text string, addBOS bool) ([]Token, error) {
	if e == nil || e.closed {
		return nil, ErrInvalidContext
	}
	return e.model.Tokenize(text, addBOS, true)
}

// TokenPiece renders one token to its text piece.
func (e *Editor) TokenPiece(tok Token) (string, error) {
	if e == nil || e.closed {
		return "", ErrInvalidContext
	}
	piece, err := e.model.TokenPiece(tok)
	return string(piece), err
}

// Detokenize renders a token slice to text by concatenating pieces.
func (e *Editor) Detokenize(toks []Token) (string, error) {
	if e == nil || e.closed {
		return "", ErrInvalidContext
	}
	var sb strings.Builder
	for _, tok := range toks {
		piece, err := e.model.TokenPiece(tok)
		if err != nil {
			return sb.String(), err
		}
		sb.Write(piece)
	}
	return sb.String(), nil
}
