package skein

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greedyParams(n int) CompletionParams {
	p := DefaultCompletionParams()
	p.MaxTokens = n
	p.Sampling.Temperature = 0
	return p
}

func TestCompleteGenerates(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "Once upon a time"})
	require.NoError(t, err)

	before := ctx.Editor().Len()
	n, err := ctx.Complete(greedyParams(8))
	require.NoError(t, err)
	assert.Equal(t, StateComplete, ctx.State())
	assert.Equal(t, before+n, ctx.Editor().Len())
	assert.Greater(t, n, 0)
	assert.Equal(t, n, ctx.TokensGenerated())

	// Generated tokens carry provenance and leave the cache clean.
	for i := before; i < ctx.Editor().Len(); i++ {
		info, err := ctx.Editor().Info(i, 0)
		require.NoError(t, err)
		assert.True(t, info.Flags.Has(FlagGenerated), "position %d", i)
	}
	assert.False(t, ctx.Editor().KVDirty())
	assert.True(t, ctx.Editor().LogitsValid())
}

func TestCompleteIdleGate(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "gate"})
	require.NoError(t, err)

	_, err = ctx.Complete(greedyParams(2))
	require.NoError(t, err)

	_, err = ctx.Complete(greedyParams(2))
	assert.ErrorIs(t, err, ErrContextBusy)

	require.NoError(t, ctx.Reset())
	assert.Equal(t, StateIdle, ctx.State())
	_, err = ctx.Complete(greedyParams(2))
	assert.NoError(t, err)
}

func TestCompleteEmptyBuffer(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(DefaultContextConfig())
	require.NoError(t, err)

	_, err = ctx.Complete(greedyParams(2))
	assert.ErrorIs(t, err, ErrInvalidPosition)
	assert.Equal(t, StateError, ctx.State())
	assert.Error(t, ctx.Err())
}

func TestCompleteIsUndoable(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "undo me"})
	require.NoError(t, err)
	before := ctx.Editor().Len()

	n, err := ctx.Complete(greedyParams(4))
	require.NoError(t, err)
	require.Greater(t, n, 0)

	for i := 0; i < n; i++ {
		require.NoError(t, ctx.Editor().Undo())
	}
	assert.Equal(t, before, ctx.Editor().Len())
}

func TestCompleteDeterministic(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	a, err := env.CreateRoot(ContextConfig{Prompt: "determinism"})
	require.NoError(t, err)
	b, err := env.CreateRoot(ContextConfig{Prompt: "determinism"})
	require.NoError(t, err)

	outA, err := a.CompleteSync(greedyParams(6))
	require.NoError(t, err)
	outB, err := b.CompleteSync(greedyParams(6))
	require.NoError(t, err)
	assert.Equal(t, outA, outB)
}

func TestCompleteSyncReturnsSuffix(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "prefix"})
	require.NoError(t, err)
	before := ctx.Editor().Len()

	out, err := ctx.CompleteSync(greedyParams(5))
	require.NoError(t, err)

	suffix, err := ctx.Editor().Text(Range{Start: before, End: ctx.Editor().Len()})
	require.NoError(t, err)
	assert.Equal(t, suffix, out)
}

func TestCompleteObserver(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "observe"})
	require.NoError(t, err)

	rec := &recordingObserver{}
	ctx.AddObserver(rec)

	n, err := ctx.Complete(greedyParams(3))
	require.NoError(t, err)
	assert.Equal(t, n, len(rec.tokens))
	assert.Equal(t, 1, rec.completed)
	assert.Equal(t, n, rec.lastCount)
}

func TestCompleteTimeout(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "slow"})
	require.NoError(t, err)

	p := greedyParams(100000)
	p.Timeout = time.Nanosecond
	_, err = ctx.Complete(p)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateError, ctx.State())
}

type recordingObserver struct {
	tokens    []Token
	completed int
	lastCount int
	messages  []Message
}

func (r *recordingObserver) TokenGenerated(c *Context, tok Token) {
	r.tokens = append(r.tokens, tok)
}

func (r *recordingObserver) Completed(c *Context, generated int, err error) {
	r.completed++
	r.lastCount = generated
}

func (r *recordingObserver) MessageReceived(c *Context, msg Message) {
	r.messages = append(r.messages, msg)
}
