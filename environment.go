package skein

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Environment defaults, matching the usual runtime geometry.
const (
	defaultMaxDepth      = 32
	defaultMaxContexts   = 64
	defaultCtxSize       = 2048
	defaultBatchSize     = 512
	defaultThreads       = 4
	defaultQueueCapacity = 32
)

// EnvConfig configures a new environment.
type EnvConfig struct {
	// MaxDepth bounds the context tree depth; a root is at depth 0.
	MaxDepth int

	// MaxContexts bounds the total number of live contexts.
	MaxContexts int

	// CtxSize, BatchSize and Threads are passed to every runtime context
	// created by the environment.
	CtxSize   int
	BatchSize int
	Threads   int

	// QueueCapacity is the per-context message queue capacity.
	QueueCapacity int

	// EnableLogging switches from a no-op logger to a development logger.
	// Logger, when non-nil, overrides both.
	EnableLogging bool
	Logger        *zap.Logger
}

// DefaultEnvConfig returns the standard environment configuration.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		MaxDepth:      defaultMaxDepth,
		MaxContexts:   defaultMaxContexts,
		CtxSize:       defaultCtxSize,
		BatchSize:     defaultBatchSize,
		Threads:       defaultThreads,
		QueueCapacity: defaultQueueCapacity,
	}
}

// ContextConfig configures one spawned context.
type ContextConfig struct {
	// Share selects what the new context inherits from its parent or
	// fork source. Roots ignore it.
	Share ShareMode

	// Prompt, when non-empty, is set as the initial buffer text.
	Prompt string

	// QueueCapacity overrides the environment's queue capacity when > 0.
	QueueCapacity int
}

// DefaultContextConfig returns the standard context configuration.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{Share: ShareNone}
}

// EnvStats are cumulative environment counters.
type EnvStats struct {
	ContextsCreated   int
	ContextsDestroyed int
	ActiveContexts    int
	TokensGenerated   int
	Recursions        int
	PeakDepth         int
}

// EnvObserver receives environment topology notifications.
type EnvObserver interface {
	ContextCreated(c *Context)
	ContextDestroyed(c *Context)
	Recursed(parent, child *Context)
}

// Env is a forest of editor-backed contexts sharing one model. Topology,
// the id index, and context states are guarded by one mutex; editor
// operations within a context are serialised by that context's user.
type Env struct {
	model Model
	cfg   EnvConfig
	log   *zap.Logger

	mu       sync.Mutex
	contexts map[int]*Context
	roots    []*Context
	nextID   int
	stats    EnvStats

	observers []EnvObserver
	closed    bool
}

// NewEnv creates an environment over model. Zero config fields take
// defaults.
func NewEnv(model Model, cfg EnvConfig) (*Env, error) {
	if model == nil {
		return nil, ErrInvalidContext
	}
	def := DefaultEnvConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MaxContexts <= 0 {
		cfg.MaxContexts = def.MaxContexts
	}
	if cfg.CtxSize <= 0 {
		cfg.CtxSize = def.CtxSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Threads <= 0 {
		cfg.Threads = def.Threads
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}

	log := cfg.Logger
	if log == nil {
		if cfg.EnableLogging {
			var err error
			log, err = zap.NewDevelopment()
			if err != nil {
				log = zap.NewNop()
			}
		} else {
			log = zap.NewNop()
		}
	}

	return &Env{
		model:    model,
		cfg:      cfg,
		log:      log,
		contexts: make(map[int]*Context),
	}, nil
}

// AddObserver registers an environment observer.
func (env *Env) AddObserver(obs EnvObserver) {
	if env == nil || obs == nil {
		return
	}
	env.mu.Lock()
	env.observers = append(env.observers, obs)
	env.mu.Unlock()
}

// CreateRoot creates a tree root at depth 0.
func (env *Env) CreateRoot(cfg ContextConfig) (*Context, error) {
	return env.create(nil, RelRoot, cfg)
}

// SpawnChild creates a child of parent one level deeper, inheriting per
// cfg.Share. Read sharing modes are honoured as their copy counterparts;
// the substitution is logged.
func (env *Env) SpawnChild(parent *Context, cfg ContextConfig) (*Context, error) {
	if err := env.checkMember(parent); err != nil {
		return nil, err
	}
	child, err := env.create(parent, RelChild, cfg)
	if err != nil {
		return nil, err
	}
	env.mu.Lock()
	env.stats.Recursions++
	obs := append([]EnvObserver(nil), env.observers...)
	env.mu.Unlock()
	for _, o := range obs {
		o.Recursed(parent, child)
	}
	return child, nil
}

// Fork duplicates src as a sibling: same parent, FORK relation, full
// state inherited. Forking a root registers the fork as a new root.
func (env *Env) Fork(src *Context) (*Context, error) {
	if err := env.checkMember(src); err != nil {
		return nil, err
	}
	fork, err := env.createAt(src.parent, src.depth, RelFork, ContextConfig{Share: ShareFull})
	if err != nil {
		return nil, err
	}
	if err := env.share(src, fork, ShareFull); err != nil {
		env.Destroy(fork)
		return nil, err
	}
	return fork, nil
}

// CreatePeer creates a sibling of ref at the same depth with no shared
// state. A peer of a root is a new root.
func (env *Env) CreatePeer(ref *Context, cfg ContextConfig) (*Context, error) {
	if err := env.checkMember(ref); err != nil {
		return nil, err
	}
	cfg.Share = ShareNone
	return env.createAt(ref.parent, ref.depth, RelPeer, cfg)
}

// create places a new context under parent (nil for roots) at the depth
// implied by the parent.
func (env *Env) create(parent *Context, rel Relation, cfg ContextConfig) (*Context, error) {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	c, err := env.createAt(parent, depth, rel, cfg)
	if err != nil {
		return nil, err
	}
	if parent != nil && cfg.Share != ShareNone {
		if err := env.share(parent, c, cfg.Share); err != nil {
			env.Destroy(c)
			return nil, err
		}
	}
	return c, nil
}

func (env *Env) createAt(parent *Context, depth int, rel Relation, cfg ContextConfig) (*Context, error) {
	if env == nil || env.closed {
		return nil, ErrInvalidContext
	}

	env.mu.Lock()
	if len(env.contexts) >= env.cfg.MaxContexts {
		env.mu.Unlock()
		return nil, ErrMaxContexts
	}
	if depth >= env.cfg.MaxDepth {
		env.mu.Unlock()
		return nil, ErrMaxDepth
	}
	id := env.nextID
	env.nextID++
	env.mu.Unlock()

	// Runtime context creation happens outside the lock; the cap is
	// re-checked before the insert below, so concurrent creates cannot
	// push the live count past MaxContexts.

	mc, err := env.model.NewContext(ContextParams{
		CtxSize:   env.cfg.CtxSize,
		BatchSize: env.cfg.BatchSize,
		Threads:   env.cfg.Threads,
	})
	if err != nil {
		return nil, err
	}
	ed, err := NewEditor(mc, env.model, DefaultEditorOptions())
	if err != nil {
		mc.Close()
		return nil, err
	}

	qcap := cfg.QueueCapacity
	if qcap <= 0 {
		qcap = env.cfg.QueueCapacity
	}

	c := &Context{
		env:       env,
		id:        id,
		relation:  rel,
		state:     StateIdle,
		parent:    parent,
		editor:    ed,
		mc:        mc,
		queue:     newMsgQueue(qcap),
		depth:     depth,
		createdAt: time.Now(),
	}

	if cfg.Prompt != "" {
		if err := c.SetPrompt(cfg.Prompt); err != nil {
			ed.Close()
			mc.Close()
			return nil, err
		}
	}

	env.mu.Lock()
	if len(env.contexts) >= env.cfg.MaxContexts {
		env.mu.Unlock()
		ed.Close()
		mc.Close()
		return nil, ErrMaxContexts
	}
	env.contexts[id] = c
	if parent == nil {
		env.roots = append(env.roots, c)
	} else {
		parent.children = append(parent.children, c)
	}
	env.stats.ContextsCreated++
	if depth > env.stats.PeakDepth {
		env.stats.PeakDepth = depth
	}
	obs := append([]EnvObserver(nil), env.observers...)
	env.mu.Unlock()

	env.log.Debug("context created",
		zap.Int("id", id),
		zap.Int("depth", depth),
		zap.String("relation", rel.String()))

	for _, o := range obs {
		o.ContextCreated(c)
	}
	return c, nil
}

// share transfers state from src into the freshly created dst according
// to mode. Read modes degrade to their copy counterparts.
func (env *Env) share(src, dst *Context, mode ShareMode) error {
	switch mode {
	case ShareKVRead:
		env.log.Warn("kv read sharing not supported, copying instead",
			zap.Int("src", src.id), zap.Int("dst", dst.id))
		mode = ShareKVCopy
	case ShareTokensRead:
		env.log.Warn("token read sharing not supported, copying instead",
			zap.Int("src", src.id), zap.Int("dst", dst.id))
		mode = ShareTokensCopy
	}

	switch mode {
	case ShareNone:
		return nil

	case ShareTokensCopy:
		toks, err := src.editor.Tokens(Range{Start: 0, End: src.editor.Len(), Seq: AllSeqs})
		if err != nil {
			return err
		}
		if err := dst.editor.InsertTokens(0, 0, toks); err != nil {
			return err
		}
		dst.editor.ClearHistory()
		return nil

	case ShareKVCopy, ShareFull:
		snap, err := src.editor.CreateSnapshot()
		if err != nil {
			return err
		}
		return dst.editor.RestoreSnapshot(snap)

	default:
		return nil
	}
}

// Destroy removes ctx and its entire subtree, post-order. Editors and
// runtime contexts are closed; queued messages are dropped.
func (env *Env) Destroy(ctx *Context) error {
	if err := env.checkMember(ctx); err != nil {
		return err
	}

	env.mu.Lock()
	kids := append([]*Context(nil), ctx.children...)
	env.mu.Unlock()
	for _, kid := range kids {
		if err := env.Destroy(kid); err != nil {
			return err
		}
	}

	env.mu.Lock()
	delete(env.contexts, ctx.id)
	if ctx.parent != nil {
		ctx.parent.children = removeContext(ctx.parent.children, ctx)
	} else {
		env.roots = removeContext(env.roots, ctx)
	}
	env.stats.ContextsDestroyed++
	env.stats.TokensGenerated += ctx.tokensGenerated
	obs := append([]EnvObserver(nil), env.observers...)
	env.mu.Unlock()

	ctx.editor.Close()
	ctx.mc.Close()
	ctx.queue.clear()

	env.log.Debug("context destroyed", zap.Int("id", ctx.id))
	for _, o := range obs {
		o.ContextDestroyed(ctx)
	}
	return nil
}

// ContextByID looks up a live context.
func (env *Env) ContextByID(id int) (*Context, bool) {
	if env == nil {
		return nil, false
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	c, ok := env.contexts[id]
	return c, ok
}

// Roots returns a copy of the current root set.
func (env *Env) Roots() []*Context {
	if env == nil {
		return nil
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]*Context(nil), env.roots...)
}

// Stats returns the cumulative counters plus the live context count.
func (env *Env) Stats() EnvStats {
	if env == nil {
		return EnvStats{}
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	st := env.stats
	st.ActiveContexts = len(env.contexts)
	for _, c := range env.contexts {
		st.TokensGenerated += c.tokensGenerated
	}
	return st
}

// Shutdown destroys every remaining context and flushes the logger.
func (env *Env) Shutdown() error {
	if env == nil || env.closed {
		return ErrInvalidContext
	}
	for {
		env.mu.Lock()
		if len(env.roots) == 0 {
			env.mu.Unlock()
			break
		}
		root := env.roots[0]
		env.mu.Unlock()
		if err := env.Destroy(root); err != nil {
			return err
		}
	}
	env.closed = true
	_ = env.log.Sync()
	return nil
}

func (env *Env) checkMember(ctx *Context) error {
	if env == nil || env.closed {
		return ErrInvalidContext
	}
	if ctx == nil {
		return ErrInvalidParent
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	if got, ok := env.contexts[ctx.id]; !ok || got != ctx {
		return ErrInvalidParent
	}
	return nil
}

func removeContext(list []*Context, ctx *Context) []*Context {
	for i, c := range list {
		if c == ctx {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
