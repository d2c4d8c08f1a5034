package skein

import (
	"github.com/google/uuid"
)

// Default sizing, mirroring the runtime's usual context geometry.
const (
	defaultCapacity     = 4096
	defaultHistoryLimit = 100

	// maxSequences is the hard cap on concurrently active sequence ids.
	maxSequences = 16
)

// EditorOptions configures a new Editor.
type EditorOptions struct {
	// HistoryLimit bounds the undo log; oldest entries are evicted past
	// it. Zero means unlimited.
	HistoryLimit int

	// Readonly starts the editor with mutations rejected.
	Readonly bool
}

// DefaultEditorOptions returns the standard editor configuration.
func DefaultEditorOptions() EditorOptions {
	return EditorOptions{HistoryLimit: defaultHistoryLimit}
}

// Editor is an editable, random-access token buffer bound to one runtime
// inference context. Operations on a single editor are serialised by the
// caller; the editor performs no locking of its own.
type Editor struct {
	id    string
	mc    ModelContext
	model Model

	// Parallel arrays: infos[i] always describes tokens[i].
	tokens []Token
	infos  []TokenInfo

	undo         []Edit
	redo         []Edit
	historyLimit int

	// Active sequence ids. Index 0 is always the primary sequence.
	seqs []SeqID

	readonly    bool
	kvDirty     bool
	logitsValid bool

	observers []EditorObserver

	closed bool
}

// NewEditor binds an editor to a runtime context and model.
func NewEditor(mc ModelContext, model Model, opts EditorOptions) (*Editor, error) {
	if mc == nil || model == nil {
		return nil, ErrInvalidContext
	}
	return &Editor{
		id:           uuid.NewString(),
		mc:           mc,
		model:        model,
		tokens:       make([]Token, 0, defaultCapacity),
		infos:        make([]TokenInfo, 0, defaultCapacity),
		historyLimit: opts.HistoryLimit,
		seqs:         []SeqID{0},
		readonly:     opts.Readonly,
	}, nil
}

// Close releases the editor. The runtime context is not closed; its owner
// remains responsible for it.
func (e *Editor) Close() error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	e.closed = true
	e.tokens = nil
	e.infos = nil
	e.undo = nil
	e.redo = nil
	e.observers = nil
	return nil
}

// ID returns the editor's unique instance id.
func (e *Editor) ID() string {
	if e == nil {
		return ""
	}
	return e.id
}

// Model returns the bound model.
func (e *Editor) Model() Model {
	if e == nil {
		return nil
	}
	return e.model
}

// RuntimeContext returns the bound runtime context.
func (e *Editor) RuntimeContext() ModelContext {
	if e == nil {
		return nil
	}
	return e.mc
}

// Len returns the token count of the primary buffer.
func (e *Editor) Len() int {
	if e == nil || e.closed {
		return 0
	}
	return len(e.tokens)
}

// TokenCount returns the token count for seq. The buffer is linear, so
// every sequence currently reports the same count; the parameter is kept
// authoritative for future per-sequence buffers.
func (e *Editor) TokenCount(seq SeqID) int {
	_ = seq
	return e.Len()
}

// TokenAt returns the token at pos, or NoToken when out of range.
func (e *Editor) TokenAt(pos int, seq SeqID) Token {
	if e == nil || e.closed || pos < 0 || pos >= len(e.tokens) {
		return NoToken
	}
	_ = seq
	return e.tokens[pos]
}

// Info returns the metadata for the slot at pos. Vocabulary flags are
// refreshed from the model on every call.
func (e *Editor) Info(pos int, seq SeqID) (TokenInfo, error) {
	if e == nil || e.closed {
		return TokenInfo{}, ErrInvalidContext
	}
	if pos < 0 || pos >= len(e.tokens) {
		return TokenInfo{}, ErrInvalidPosition
	}
	info := e.infos[pos]
	info.ID = e.tokens[pos]
	info.Pos = pos
	if seq >= 0 {
		info.Seq = seq
	}
	info.Flags = e.tokenFlags(info.ID) | (info.Flags & (FlagUserData | FlagGenerated))
	return info, nil
}

// Tokens copies out the tokens covered by r, clamped to the buffer.
func (e *Editor) Tokens(r Range) ([]Token, error) {
	if e == nil || e.closed {
		return nil, ErrInvalidContext
	}
	r = r.clamp(len(e.tokens))
	if r.Len() == 0 {
		return nil, nil
	}
	out := make([]Token, r.Len())
	copy(out, e.tokens[r.Start:r.End])
	return out, nil
}

// Readonly reports whether mutations are rejected.
func (e *Editor) Readonly() bool {
	return e != nil && e.readonly
}

// SetReadonly toggles mutation rejection.
func (e *Editor) SetReadonly(ro bool) {
	if e != nil {
		e.readonly = ro
	}
}

// KVDirty reports whether the KV cache lags the buffer.
func (e *Editor) KVDirty() bool {
	return e != nil && e.kvDirty
}

// LogitsValid reports whether the runtime's final-position logits match
// the current final token.
func (e *Editor) LogitsValid() bool {
	return e != nil && e.logitsValid
}

// tokenFlags derives vocabulary flags from the model.
func (e *Editor) tokenFlags(tok Token) TokenFlags {
	var flags TokenFlags
	if tok == e.model.TokenBOS() {
		flags |= FlagBOS
	}
	if e.model.IsEOG(tok) {
		flags |= FlagEOS
	}
	attr := e.model.TokenAttr(tok)
	if attr&AttrControl != 0 {
		flags |= FlagControl
	}
	if attr&AttrSpecial != 0 {
		flags |= FlagSpecial
	}
	return flags
}

// ensureCapacity grows the backing arrays by doubling until they cover
// n slots. Growth failure surfaces as ErrAllocationFailed with the prior
// state intact; existing slices are only swapped after both copies.
func (e *Editor) ensureCapacity(n int) error {
	if n <= cap(e.tokens) {
		return nil
	}
	newCap := cap(e.tokens) * 2
	if newCap == 0 {
		newCap = defaultCapacity
	}
	for newCap < n {
		newCap *= 2
	}
	newTokens := make([]Token, len(e.tokens), newCap)
	newInfos := make([]TokenInfo, len(e.infos), newCap)
	copy(newTokens, e.tokens)
	copy(newInfos, e.infos)
	e.tokens = newTokens
	e.infos = newInfos
	return nil
}

// markDirty flags the KV cache stale after any mutation.
func (e *Editor) markDirty() {
	e.kvDirty = true
	e.logitsValid = false
}
