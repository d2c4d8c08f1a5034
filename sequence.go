package skein

// Sequences returns a copy of the active sequence id set. Index 0 is the
// primary sequence and is always present.
func (e *Editor) Sequences() []SeqID {
	if e == nil || e.closed {
		return nil
	}
	return append([]SeqID(nil), e.seqs...)
}

// HasSequence reports whether seq is active.
func (e *Editor) HasSequence(seq SeqID) bool {
	if e == nil || e.closed {
		return false
	}
	for _, s := range e.seqs {
		if s == seq {
			return true
		}
	}
	return false
}

// CreateSequence activates a fresh sequence id, one past the current
// maximum. The id set is capped at maxSequences.
func (e *Editor) CreateSequence() (SeqID, error) {
	if e == nil || e.closed {
		return -1, ErrInvalidContext
	}
	if len(e.seqs) >= maxSequences {
		return -1, ErrTooManySequences
	}
	next := SeqID(0)
	for _, s := range e.seqs {
		if s >= next {
			next = s + 1
		}
	}
	e.seqs = append(e.seqs, next)
	return next, nil
}

// DeleteSequence deactivates seq and drops its KV entries. The primary
// sequence cannot be deleted.
func (e *Editor) DeleteSequence(seq SeqID) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if seq == 0 {
		return ErrInvalidPosition
	}
	for i, s := range e.seqs {
		if s == seq {
			e.seqs = append(e.seqs[:i], e.seqs[i+1:]...)
			e.mc.KVRemove(seq, -1, -1)
			return nil
		}
	}
	return ErrSequenceNotFound
}

// CopySequence duplicates KV content from src onto dst. Both must be
// active.
func (e *Editor) CopySequence(src, dst SeqID) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if !e.HasSequence(src) || !e.HasSequence(dst) {
		return ErrSequenceNotFound
	}
	e.mc.KVCopy(src, dst)
	return nil
}

// ForkSequence creates a new sequence carrying a copy of src's KV
// content up to pos. Entries past pos are removed from the fork, so the
// new sequence diverges from there.
func (e *Editor) ForkSequence(src SeqID, pos int) (SeqID, error) {
	if e == nil || e.closed {
		return -1, ErrInvalidContext
	}
	if !e.HasSequence(src) {
		return -1, ErrSequenceNotFound
	}
	dst, err := e.CreateSequence()
	if err != nil {
		return -1, err
	}
	e.mc.KVCopy(src, dst)
	if pos >= 0 {
		e.mc.KVRemove(dst, pos, -1)
	}
	return dst, nil
}
