package skein

// Token is a token identifier drawn from the model vocabulary.
type Token = int32

// SeqID identifies a divergent token history inside one runtime context.
type SeqID = int32

const (
	// NoToken is returned by lookups that find nothing.
	NoToken Token = -1

	// AllSeqs addresses every sequence in range operations.
	AllSeqs SeqID = -1
)

// TokenFlags classify a token slot.
type TokenFlags uint32

const (
	// FlagBOS marks the model's beginning-of-sequence token.
	FlagBOS TokenFlags = 1 << iota

	// FlagEOS marks an end-of-generation token.
	FlagEOS

	// FlagSpecial marks vocabulary entries with special attributes.
	FlagSpecial

	// FlagControl marks vocabulary control tokens.
	FlagControl

	// FlagUserData marks tokens inserted through an edit operation.
	FlagUserData

	// FlagGenerated marks tokens appended by the completion loop.
	FlagGenerated
)

// Has reports whether all bits in mask are set.
func (f TokenFlags) Has(mask TokenFlags) bool {
	return f&mask == mask
}

// TokenInfo is per-slot metadata parallel to the token buffer.
type TokenInfo struct {
	ID       Token
	Pos      int
	Seq      SeqID
	Logit    float32
	Prob     float32
	HasLogit bool
	Flags    TokenFlags
}

// Range is a half-open [Start, End) position interval on one sequence.
// Seq == AllSeqs addresses every sequence.
type Range struct {
	Start int
	End   int
	Seq   SeqID
}

// Len returns the number of positions covered, never negative.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// clamp bounds the range to [0, n) at the start and [0, n] at the end.
func (r Range) clamp(n int) Range {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > n {
		r.End = n
	}
	return r
}

// EditKind identifies a reversible mutation.
type EditKind int

const (
	EditInsert EditKind = iota
	EditDelete
	EditReplace
)

// String returns the lowercase name of the edit kind.
func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditDelete:
		return "delete"
	case EditReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Edit is a self-sufficient history record: it carries the tokens needed
// to invert itself. For inserts these are the inserted tokens, for deletes
// the deleted ones, and for replaces the pre-existing ones.
type Edit struct {
	Kind   EditKind
	Range  Range
	Tokens []Token
}
