// Package skein provides direct manipulation of LLM context token streams
// with reversible history, KV-cache coupling, snapshots, and a recursive
// environment of editor-backed contexts with bounded message passing.
package skein

import "errors"

// Editor errors
var (
	// ErrInvalidContext indicates a nil or closed editor or runtime handle.
	ErrInvalidContext = errors.New("invalid context")

	// ErrInvalidPosition indicates a position or range out of bounds.
	ErrInvalidPosition = errors.New("position out of bounds")

	// ErrInvalidToken indicates a token id outside the model vocabulary.
	ErrInvalidToken = errors.New("invalid token")

	// ErrBufferTooSmall indicates the provided buffer or import payload is undersized.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrKVCacheFull indicates the runtime rejected a decode while rebuilding the KV cache.
	ErrKVCacheFull = errors.New("kv cache full")

	// ErrSequenceNotFound indicates the sequence id is not active on this editor.
	ErrSequenceNotFound = errors.New("sequence not found")

	// ErrAllocationFailed indicates the token buffer could not grow to the required length.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrReadOnly indicates a mutation was attempted while the editor is readonly.
	ErrReadOnly = errors.New("editor is readonly")

	// ErrTooManySequences indicates the active sequence set is at its hard limit.
	ErrTooManySequences = errors.New("too many active sequences")
)

// Environment errors
var (
	// ErrMaxDepth indicates spawning would exceed the configured tree depth.
	ErrMaxDepth = errors.New("max context depth reached")

	// ErrMaxContexts indicates the environment is at its context cap.
	ErrMaxContexts = errors.New("max contexts reached")

	// ErrInvalidParent indicates the parent or reference context does not
	// belong to this environment.
	ErrInvalidParent = errors.New("invalid parent context")

	// ErrContextBusy indicates the context is not IDLE and cannot start a completion.
	ErrContextBusy = errors.New("context is busy")

	// ErrRecursionLimit indicates a recursive pattern exceeded its iteration limit.
	ErrRecursionLimit = errors.New("recursion limit reached")

	// ErrQueueFull indicates the receiver's message queue has no free slot.
	ErrQueueFull = errors.New("message queue full")

	// ErrModel indicates the runtime failed a decode during completion.
	ErrModel = errors.New("model decode failed")

	// ErrDeadlock indicates a blocking receive that can never be satisfied.
	ErrDeadlock = errors.New("deadlock detected")

	// ErrTimeout indicates a blocking wait or completion exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")
)
