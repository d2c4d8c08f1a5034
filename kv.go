package skein

import "fmt"

// syncBatchSize caps the number of slots submitted per decode call while
// rebuilding the cache.
const syncBatchSize = 512

// SyncKV rebuilds the runtime KV cache from the current buffer: the cache
// is cleared and every token is re-decoded in batches, with logits
// requested at the final slot only. On success the editor is clean and
// its logits valid. On failure the cache stays dirty and the buffer is
// untouched.
func (e *Editor) SyncKV() error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if !e.kvDirty && e.logitsValid {
		return nil
	}

	e.mc.KVClear()

	if len(e.tokens) == 0 {
		e.kvDirty = false
		e.logitsValid = false
		return nil
	}

	for start := 0; start < len(e.tokens); start += syncBatchSize {
		end := start + syncBatchSize
		if end > len(e.tokens) {
			end = len(e.tokens)
		}
		batch := make(Batch, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, BatchSlot{
				Token:      e.tokens[i],
				Pos:        i,
				Seqs:       []SeqID{e.infos[i].Seq},
				WantLogits: i == len(e.tokens)-1,
			})
		}
		if err := e.mc.Decode(batch); err != nil {
			e.kvDirty = true
			e.logitsValid = false
			// Every decode failure during a rebuild surfaces uniformly.
			if err == ErrKVCacheFull {
				return err
			}
			return fmt.Errorf("%w: %v", ErrKVCacheFull, err)
		}
	}

	e.kvDirty = false
	e.logitsValid = true
	return nil
}

// InvalidateKVRange drops cached entries for the positions covered by r
// and marks the editor dirty. Seq == AllSeqs removes across sequences.
func (e *Editor) InvalidateKVRange(r Range) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	e.mc.KVRemove(r.Seq, r.Start, r.End)
	e.markDirty()
	return nil
}

// ClearKV drops the entire cache and marks the editor dirty.
func (e *Editor) ClearKV() error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	e.mc.KVClear()
	e.markDirty()
	return nil
}

// ShiftKV moves cached entries for seq in [start, end) by delta
// positions. Used for context-window shifting; the dirty and logits
// flags are left as they stand.
func (e *Editor) ShiftKV(seq SeqID, start, end, delta int) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	e.mc.KVShift(seq, start, end, delta)
	return nil
}
