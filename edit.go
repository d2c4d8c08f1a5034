package skein

// histMode selects whether an internal mutation primitive records an
// inverse entry in the undo log. Replay is used only by Undo/Redo; the
// public API always records.
type histMode int

const (
	histRecord histMode = iota
	histReplay
)

// SetToken overwrites the token at pos.
func (e *Editor) SetToken(pos int, seq SeqID, tok Token) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	if pos < 0 || pos >= len(e.tokens) {
		return ErrInvalidPosition
	}
	if tok < 0 || int(tok) >= e.model.VocabSize() {
		return ErrInvalidToken
	}

	old := e.tokens[pos]
	e.recordEdit(histRecord, Edit{
		Kind:   EditReplace,
		Range:  Range{Start: pos, End: pos + 1, Seq: seq},
		Tokens: []Token{old},
	})

	e.tokens[pos] = tok
	e.infos[pos].ID = tok
	e.infos[pos].Flags = e.tokenFlags(tok) | FlagUserData
	e.infos[pos].HasLogit = false
	e.markDirty()

	for _, obs := range e.observers {
		obs.TokenChanged(pos, old, tok)
	}
	return nil
}

// InsertTokens inserts toks before pos. pos == Len() appends.
func (e *Editor) InsertTokens(pos int, seq SeqID, toks []Token) error {
	return e.insertTokens(pos, seq, toks, FlagUserData, histRecord)
}

// insertTokens is the shared insert primitive. provenance is stamped onto
// every inserted slot (FlagUserData for edits, FlagGenerated for the
// completion loop).
func (e *Editor) insertTokens(pos int, seq SeqID, toks []Token, provenance TokenFlags, mode histMode) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	if pos < 0 || pos > len(e.tokens) {
		return ErrInvalidPosition
	}
	if len(toks) == 0 {
		return nil
	}
	if err := e.ensureCapacity(len(e.tokens) + len(toks)); err != nil {
		return err
	}

	n := len(toks)
	e.tokens = e.tokens[:len(e.tokens)+n]
	e.infos = e.infos[:len(e.infos)+n]
	copy(e.tokens[pos+n:], e.tokens[pos:])
	copy(e.infos[pos+n:], e.infos[pos:])
	copy(e.tokens[pos:pos+n], toks)

	if seq < 0 {
		seq = 0
	}
	for i, tok := range toks {
		e.infos[pos+i] = TokenInfo{
			ID:    tok,
			Pos:   pos + i,
			Seq:   seq,
			Flags: e.tokenFlags(tok) | provenance,
		}
	}
	e.reindex(pos + n)
	e.markDirty()

	r := Range{Start: pos, End: pos + n, Seq: seq}
	e.recordEdit(mode, Edit{Kind: EditInsert, Range: r, Tokens: append([]Token(nil), toks...)})

	for _, obs := range e.observers {
		obs.RangeChanged(r)
	}
	return nil
}

// DeleteTokens removes the tokens covered by r, clamped to the buffer.
func (e *Editor) DeleteTokens(r Range) error {
	return e.deleteTokens(r, histRecord)
}

func (e *Editor) deleteTokens(r Range, mode histMode) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	r = r.clamp(len(e.tokens))
	if r.Len() == 0 {
		return nil
	}

	saved := make([]Token, r.Len())
	copy(saved, e.tokens[r.Start:r.End])
	e.recordEdit(mode, Edit{Kind: EditDelete, Range: r, Tokens: saved})

	e.tokens = append(e.tokens[:r.Start], e.tokens[r.End:]...)
	e.infos = append(e.infos[:r.Start], e.infos[r.End:]...)
	e.reindex(r.Start)
	e.markDirty()

	for _, obs := range e.observers {
		obs.RangeChanged(r)
	}
	return nil
}

// ReplaceTokens substitutes the tokens covered by r with toks. The
// replacement may change the buffer length.
func (e *Editor) ReplaceTokens(r Range, toks []Token) error {
	return e.replaceTokens(r, toks, FlagUserData, histRecord)
}

func (e *Editor) replaceTokens(r Range, toks []Token, provenance TokenFlags, mode histMode) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	if r.Start < 0 || r.Start > len(e.tokens) || r.End < r.Start {
		return ErrInvalidPosition
	}
	r = r.clamp(len(e.tokens))

	oldCount := r.Len()
	newCount := len(toks)
	saved := make([]Token, oldCount)
	copy(saved, e.tokens[r.Start:r.End])

	if err := e.ensureCapacity(len(e.tokens) - oldCount + newCount); err != nil {
		return err
	}

	tail := append([]Token(nil), e.tokens[r.End:]...)
	tailInfos := append([]TokenInfo(nil), e.infos[r.End:]...)

	e.tokens = e.tokens[:r.Start]
	e.infos = e.infos[:r.Start]
	e.tokens = append(e.tokens, toks...)
	for _, tok := range toks {
		e.infos = append(e.infos, TokenInfo{
			ID:    tok,
			Seq:   maxSeq(r.Seq, 0),
			Flags: e.tokenFlags(tok) | provenance,
		})
	}
	e.tokens = append(e.tokens, tail...)
	e.infos = append(e.infos, tailInfos...)
	e.reindex(r.Start)
	e.markDirty()

	// The recorded range covers the slots the new tokens occupy, so the
	// inverse replace targets exactly that region.
	e.recordEdit(mode, Edit{
		Kind:   EditReplace,
		Range:  Range{Start: r.Start, End: r.Start + newCount, Seq: r.Seq},
		Tokens: saved,
	})

	for _, obs := range e.observers {
		obs.RangeChanged(Range{Start: r.Start, End: r.Start + newCount, Seq: r.Seq})
	}
	return nil
}

// ReplaceText tokenizes text (without BOS) and substitutes it for the
// tokens covered by r. The fresh run is stamped FlagUserData.
func (e *Editor) ReplaceText(r Range, text string) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	toks, err := e.model.Tokenize(text, false, true)
	if err != nil {
		return err
	}
	return e.ReplaceTokens(r, toks)
}

// Clear removes every token. The removal is a single undoable edit.
func (e *Editor) Clear(seq SeqID) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	if len(e.tokens) == 0 {
		return nil
	}
	return e.deleteTokens(Range{Start: 0, End: len(e.tokens), Seq: seq}, histRecord)
}

// reindex refreshes the Pos field from start onward after a shift.
func (e *Editor) reindex(start int) {
	for i := start; i < len(e.infos); i++ {
		e.infos[i].Pos = i
	}
}

func maxSeq(a, b SeqID) SeqID {
	if a > b {
		return a
	}
	return b
}
