package skein

import "time"

// ContextState is the lifecycle state of a context.
type ContextState int

const (
	StateIdle ContextState = iota
	StateRunning
	StateWaiting
	StateComplete
	StateError
	StateSuspended
)

// String returns the uppercase state name.
func (s ContextState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateWaiting:
		return "WAITING"
	case StateComplete:
		return "COMPLETE"
	case StateError:
		return "ERROR"
	case StateSuspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// Relation records how a context entered the tree.
type Relation int

const (
	RelRoot Relation = iota
	RelChild
	RelFork
	RelPeer
)

// String returns the uppercase relation name.
func (r Relation) String() string {
	switch r {
	case RelRoot:
		return "ROOT"
	case RelChild:
		return "CHILD"
	case RelFork:
		return "FORK"
	case RelPeer:
		return "PEER"
	default:
		return "UNKNOWN"
	}
}

// ShareMode selects what a spawned context inherits from its source.
type ShareMode int

const (
	// ShareNone inherits nothing.
	ShareNone ShareMode = iota

	// ShareKVRead would share the source's KV cache by reference; the
	// runtime keeps caches private, so it is honoured as ShareKVCopy.
	ShareKVRead

	// ShareKVCopy copies the source's buffer and runtime state; the new
	// context starts clean.
	ShareKVCopy

	// ShareTokensRead would share the buffer by reference; honoured as
	// ShareTokensCopy.
	ShareTokensRead

	// ShareTokensCopy copies the source's tokens only; the new context
	// starts with a dirty cache.
	ShareTokensCopy

	// ShareFull copies buffer and runtime state.
	ShareFull
)

// String returns the uppercase share mode name.
func (m ShareMode) String() string {
	switch m {
	case ShareNone:
		return "NONE"
	case ShareKVRead:
		return "KV_READ"
	case ShareKVCopy:
		return "KV_COPY"
	case ShareTokensRead:
		return "TOKENS_READ"
	case ShareTokensCopy:
		return "TOKENS_COPY"
	case ShareFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// ContextObserver receives per-context completion notifications.
type ContextObserver interface {
	// TokenGenerated fires after each appended completion token.
	TokenGenerated(c *Context, tok Token)

	// Completed fires when a completion finishes, with the token count
	// and the terminal error (nil on success).
	Completed(c *Context, generated int, err error)

	// MessageReceived fires when Recv hands a message to the caller.
	MessageReceived(c *Context, msg Message)
}

// Context is one node of the environment forest: an editor bound to its
// own runtime context, a lifecycle state, and a message queue.
type Context struct {
	env      *Env
	id       int
	relation Relation
	state    ContextState
	parent   *Context
	children []*Context
	editor   *Editor
	mc       ModelContext
	queue    *msgQueue
	depth    int

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time

	tokensGenerated int
	err             error

	observers []ContextObserver
}

// ID returns the context's environment-unique id.
func (c *Context) ID() int { return c.id }

// Relation returns how the context entered the tree.
func (c *Context) Relation() Relation { return c.relation }

// Depth returns the tree depth; roots are at 0.
func (c *Context) Depth() int { return c.depth }

// Editor returns the context's token editor.
func (c *Context) Editor() *Editor { return c.editor }

// Parent returns the parent context, nil for roots.
func (c *Context) Parent() *Context {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	return c.parent
}

// Children returns a copy of the direct children.
func (c *Context) Children() []*Context {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	return append([]*Context(nil), c.children...)
}

// Root walks up to the tree root.
func (c *Context) Root() *Context {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	n := c
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// State returns the current lifecycle state.
func (c *Context) State() ContextState {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	return c.state
}

func (c *Context) setState(s ContextState) {
	c.env.mu.Lock()
	c.state = s
	c.env.mu.Unlock()
}

// Err returns the error of the last failed completion, if any.
func (c *Context) Err() error {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	return c.err
}

// TokensGenerated returns the total tokens this context has generated.
func (c *Context) TokensGenerated() int {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	return c.tokensGenerated
}

// AddObserver registers a completion observer.
func (c *Context) AddObserver(obs ContextObserver) {
	if c == nil || obs == nil {
		return
	}
	c.env.mu.Lock()
	c.observers = append(c.observers, obs)
	c.env.mu.Unlock()
}

// Reset returns a COMPLETE or ERROR context to IDLE so it can run again.
// The buffer is untouched.
func (c *Context) Reset() error {
	if c == nil {
		return ErrInvalidContext
	}
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	if c.state == StateRunning {
		return ErrContextBusy
	}
	c.state = StateIdle
	c.err = nil
	return nil
}

// SetPrompt replaces the buffer with the prompt text (BOS-prefixed) and
// drops history so the prompt is not undoable.
func (c *Context) SetPrompt(text string) error {
	if c == nil {
		return ErrInvalidContext
	}
	if c.State() == StateRunning {
		return ErrContextBusy
	}
	if err := c.editor.SetText(0, text); err != nil {
		return err
	}
	c.editor.ClearHistory()
	return nil
}

// AppendPrompt appends text to the buffer without touching what is
// already there.
func (c *Context) AppendPrompt(text string) error {
	if c == nil {
		return ErrInvalidContext
	}
	if c.State() == StateRunning {
		return ErrContextBusy
	}
	return c.editor.AppendText(0, text)
}

// Text detokenizes the whole buffer.
func (c *Context) Text() (string, error) {
	if c == nil {
		return "", ErrInvalidContext
	}
	return c.editor.FullText()
}
