package skein

// TokenAttr is a bitset of vocabulary attributes reported by the model.
type TokenAttr uint32

const (
	// AttrControl marks control-plane vocabulary entries.
	AttrControl TokenAttr = 1 << iota

	// AttrSpecial marks special vocabulary entries.
	AttrSpecial
)

// BatchSlot is one decode request: a token placed at a position on one or
// more sequences, optionally asking the runtime to produce logits there.
type BatchSlot struct {
	Token      Token
	Pos        int
	Seqs       []SeqID
	WantLogits bool
}

// Batch is an ordered list of decode slots submitted in one runtime call.
type Batch []BatchSlot

// ContextParams configures a fresh runtime inference context.
type ContextParams struct {
	CtxSize   int
	BatchSize int
	Threads   int
}

// SamplingParams configures a sampling state.
type SamplingParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	RepeatPenalty float32
}

// Model is the read-only part of the inference runtime shared by every
// context: vocabulary queries, the tokenizer, and context creation.
// Implementations wrap an actual inference engine; SimModel provides a
// deterministic stand-in.
type Model interface {
	// VocabSize returns the number of vocabulary entries.
	VocabSize() int

	// TokenBOS returns the beginning-of-sequence token.
	TokenBOS() Token

	// IsEOG reports whether tok ends generation for this model.
	IsEOG(tok Token) bool

	// TokenAttr returns vocabulary attributes for tok.
	TokenAttr(tok Token) TokenAttr

	// TokenPiece renders one token to its byte piece.
	TokenPiece(tok Token) ([]byte, error)

	// Tokenize converts text to tokens, optionally prefixing BOS and
	// recognising special tokens.
	Tokenize(text string, addBOS, special bool) ([]Token, error)

	// NewContext creates an inference context with a private KV cache.
	NewContext(params ContextParams) (ModelContext, error)
}

// ModelContext is one inference context. Its KV cache is keyed by
// (sequence id, position) and is private to the owning editor.
type ModelContext interface {
	// Decode submits a batch. A non-nil error means no slot was applied.
	Decode(batch Batch) error

	// Logits returns the logits vector produced at the last slot that set
	// WantLogits. The slice is owned by the context and valid until the
	// next Decode.
	Logits() []float32

	// KVClear drops all KV entries on every sequence.
	KVClear()

	// KVRemove drops KV entries for seq in [start, end). Negative bounds
	// mean "from the beginning" and "to the end" respectively.
	KVRemove(seq SeqID, start, end int)

	// KVCopy duplicates KV content from src onto dst.
	KVCopy(src, dst SeqID)

	// KVShift adds delta to the positions of KV entries for seq in
	// [start, end).
	KVShift(seq SeqID, start, end, delta int)

	// StateSave serialises the full context state to an opaque blob.
	StateSave() []byte

	// StateLoad restores a blob produced by StateSave on the same
	// runtime version.
	StateLoad(state []byte) error

	// NewSampler creates a sampling state bound to this context.
	NewSampler(params SamplingParams) Sampler

	// Close releases the context.
	Close() error
}

// Sampler draws tokens from logits vectors. Accept feeds back chosen
// tokens so penalties see the generated history.
type Sampler interface {
	Sample(logits []float32) Token
	Accept(tok Token)
}
