package skein

// recordEdit appends an inverse entry to the undo log and clears the redo
// stack. Replay-mode mutations (undo/redo internals) never record.
func (e *Editor) recordEdit(mode histMode, ed Edit) {
	if mode == histReplay {
		return
	}
	e.pushUndo(ed)
	e.redo = nil
}

// pushUndo appends to the undo log, evicting the oldest entries past the
// history limit.
func (e *Editor) pushUndo(ed Edit) {
	e.undo = append(e.undo, ed)
	if e.historyLimit > 0 && len(e.undo) > e.historyLimit {
		over := len(e.undo) - e.historyLimit
		e.undo = append(e.undo[:0:0], e.undo[over:]...)
	}
}

// Undo reverses the most recent recorded mutation and moves its record to
// the redo stack. With an empty undo log it is a no-op.
func (e *Editor) Undo() error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	if len(e.undo) == 0 {
		return nil
	}

	ed := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]

	switch ed.Kind {
	case EditInsert:
		if err := e.deleteTokens(ed.Range, histReplay); err != nil {
			e.undo = append(e.undo, ed)
			return err
		}
		e.redo = append(e.redo, ed)

	case EditDelete:
		if err := e.insertTokens(ed.Range.Start, ed.Range.Seq, ed.Tokens, FlagUserData, histReplay); err != nil {
			e.undo = append(e.undo, ed)
			return err
		}
		e.redo = append(e.redo, ed)

	case EditReplace:
		// Capture the tokens currently occupying the recorded range so
		// the redo entry can re-apply the original mutation.
		r := ed.Range.clamp(len(e.tokens))
		cur := make([]Token, r.Len())
		copy(cur, e.tokens[r.Start:r.End])
		if err := e.replaceTokens(ed.Range, ed.Tokens, FlagUserData, histReplay); err != nil {
			e.undo = append(e.undo, ed)
			return err
		}
		e.redo = append(e.redo, Edit{
			Kind:   EditReplace,
			Range:  Range{Start: ed.Range.Start, End: ed.Range.Start + len(ed.Tokens), Seq: ed.Range.Seq},
			Tokens: cur,
		})
	}

	e.markDirty()
	return nil
}

// Redo re-applies the most recently undone mutation and returns its record
// to the undo log. With an empty redo stack it is a no-op.
func (e *Editor) Redo() error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	if len(e.redo) == 0 {
		return nil
	}

	ed := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]

	switch ed.Kind {
	case EditInsert:
		if err := e.insertTokens(ed.Range.Start, ed.Range.Seq, ed.Tokens, FlagUserData, histReplay); err != nil {
			e.redo = append(e.redo, ed)
			return err
		}
		e.pushUndo(ed)

	case EditDelete:
		if err := e.deleteTokens(ed.Range, histReplay); err != nil {
			e.redo = append(e.redo, ed)
			return err
		}
		e.pushUndo(ed)

	case EditReplace:
		r := ed.Range.clamp(len(e.tokens))
		cur := make([]Token, r.Len())
		copy(cur, e.tokens[r.Start:r.End])
		if err := e.replaceTokens(ed.Range, ed.Tokens, FlagUserData, histReplay); err != nil {
			e.redo = append(e.redo, ed)
			return err
		}
		e.pushUndo(Edit{
			Kind:   EditReplace,
			Range:  Range{Start: ed.Range.Start, End: ed.Range.Start + len(ed.Tokens), Seq: ed.Range.Seq},
			Tokens: cur,
		})
	}

	e.markDirty()
	return nil
}

// HistoryLen returns the undo log length.
func (e *Editor) HistoryLen() int {
	if e == nil {
		return 0
	}
	return len(e.undo)
}

// RedoLen returns the redo stack depth.
func (e *Editor) RedoLen() int {
	if e == nil {
		return 0
	}
	return len(e.redo)
}

// ClearHistory drops both the undo log and the redo stack.
func (e *Editor) ClearHistory() {
	if e == nil {
		return
	}
	e.undo = nil
	e.redo = nil
}

// SetHistoryLimit bounds the undo log. Zero means unlimited; a smaller
// limit evicts oldest entries immediately.
func (e *Editor) SetHistoryLimit(limit int) {
	if e == nil || limit < 0 {
		return
	}
	e.historyLimit = limit
	if limit > 0 && len(e.undo) > limit {
		over := len(e.undo) - limit
		e.undo = append(e.undo[:0:0], e.undo[over:]...)
	}
}
