package skein

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalInChildLeavesParentUntouched(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	parent, err := env.CreateRoot(ContextConfig{Prompt: "parent state"})
	require.NoError(t, err)
	beforeLen := parent.Editor().Len()
	beforeCount := env.Stats().ActiveContexts

	out, err := EvalInChild(parent, "child question", greedyParams(5))
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	assert.Equal(t, beforeLen, parent.Editor().Len())
	assert.Equal(t, beforeCount, env.Stats().ActiveContexts)
	assert.Equal(t, StateIdle, parent.State())
}

func TestSelfEvalRestoresSurface(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "the draft under review"})
	require.NoError(t, err)
	require.NoError(t, ctx.Editor().SyncKV())
	beforeTokens := bufferTokensOf(t, ctx.Editor())

	out, err := SelfEval(ctx, "Rate this draft.", greedyParams(5))
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	assert.Equal(t, beforeTokens, bufferTokensOf(t, ctx.Editor()))
	assert.Equal(t, StateIdle, ctx.State())
	assert.False(t, ctx.Editor().KVDirty())
}

func TestSelfEvalRequiresIdle(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "busy"})
	require.NoError(t, err)
	_, err = ctx.Complete(greedyParams(1))
	require.NoError(t, err)

	_, err = SelfEval(ctx, "eval", greedyParams(1))
	assert.ErrorIs(t, err, ErrContextBusy)
}

func TestRefineStopsOnPredicate(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "refine this"})
	require.NoError(t, err)

	rounds := 0
	out, err := Refine(ctx, "Improve the answer.", 5, func(s string) bool {
		rounds++
		return rounds < 3
	}, greedyParams(3))
	require.NoError(t, err)
	assert.Equal(t, 3, rounds)
	assert.NotEmpty(t, out)
}

func TestRefineFirstRoundUsesUntouchedBuffer(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "seed"})
	require.NoError(t, err)

	var firstRoundText string
	out, err := Refine(ctx, "REFINE-MARKER", 5, func(s string) bool {
		text, terr := ctx.Text()
		require.NoError(t, terr)
		firstRoundText = text
		return false
	}, greedyParams(2))
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	// The predicate declined on round one: the refine prompt was never
	// appended, neither before nor after the completion.
	assert.False(t, strings.Contains(firstRoundText, "REFINE-MARKER"))
	text, err := ctx.Text()
	require.NoError(t, err)
	assert.False(t, strings.Contains(text, "REFINE-MARKER"))
	assert.True(t, strings.HasPrefix(text, "seed"))
}

func TestRefineAppendsOnlyOnContinue(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "seed"})
	require.NoError(t, err)

	rounds := 0
	_, err = Refine(ctx, "REFINE-MARKER", 5, func(string) bool {
		rounds++
		return rounds < 2
	}, greedyParams(2))
	require.NoError(t, err)
	assert.Equal(t, 2, rounds)

	// One continue decision, one appended refine prompt.
	text, err := ctx.Text()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(text, "REFINE-MARKER"))
}

func TestRefineExhaustionIsNormalStop(t *testing.T) {
	env := newTestEnv(t, EnvConfig{})
	ctx, err := env.CreateRoot(ContextConfig{Prompt: "never good enough"})
	require.NoError(t, err)

	rounds := 0
	out, err := Refine(ctx, "Again.", 3, func(string) bool {
		rounds++
		return true
	}, greedyParams(2))
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, 3, rounds)

	_, err = Refine(ctx, "Again.", 0, nil, greedyParams(2))
	assert.ErrorIs(t, err, ErrRecursionLimit)
}
