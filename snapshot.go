package skein

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a restorable capture of an editor: the token buffer, its
// metadata, the active sequence set, and an opaque runtime state blob.
type Snapshot struct {
	ID        string
	CreatedAt time.Time

	Tokens []Token
	Infos  []TokenInfo
	Seqs   []SeqID

	// State is the runtime context blob from StateSave. May be nil when
	// the runtime could not serialise; restore then leaves the cache
	// dirty instead of trusting it.
	State []byte
}

// CreateSnapshot deep-copies the current editor state. The editor is not
// synced first; the snapshot records the runtime state as it stands.
func (e *Editor) CreateSnapshot() (*Snapshot, error) {
	if e == nil || e.closed {
		return nil, ErrInvalidContext
	}
	snap := &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Tokens:    append([]Token(nil), e.tokens...),
		Infos:     append([]TokenInfo(nil), e.infos...),
		Seqs:      append([]SeqID(nil), e.seqs...),
		State:     e.mc.StateSave(),
	}
	return snap, nil
}

// RestoreSnapshot replaces the editor's buffer and sequence set with the
// snapshot's and reloads the runtime state blob. History is cleared; a
// restore is not undoable. With a usable blob the editor comes back
// clean, otherwise it is marked dirty for the next sync.
func (e *Editor) RestoreSnapshot(snap *Snapshot) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if snap == nil {
		return ErrInvalidPosition
	}
	if e.readonly {
		return ErrReadOnly
	}
	if err := e.ensureCapacity(len(snap.Tokens)); err != nil {
		return err
	}

	e.tokens = e.tokens[:0]
	e.infos = e.infos[:0]
	e.tokens = append(e.tokens, snap.Tokens...)
	e.infos = append(e.infos, snap.Infos...)
	e.seqs = append(e.seqs[:0], snap.Seqs...)
	if len(e.seqs) == 0 {
		e.seqs = append(e.seqs, 0)
	}
	e.ClearHistory()

	if len(snap.State) > 0 {
		if err := e.mc.StateLoad(snap.State); err != nil {
			e.markDirty()
			return err
		}
		e.kvDirty = false
		e.logitsValid = len(e.tokens) > 0
	} else {
		e.markDirty()
	}

	r := Range{Start: 0, End: len(e.tokens), Seq: AllSeqs}
	for _, obs := range e.observers {
		obs.RangeChanged(r)
	}
	return nil
}
