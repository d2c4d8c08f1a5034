package skein

// EvalInChild runs prompt in a fresh, unshared child of parent and
// returns the generated text. The child is destroyed before returning,
// so the parent's buffer and cache are never touched.
func EvalInChild(parent *Context, prompt string, params CompletionParams) (string, error) {
	if parent == nil {
		return "", ErrInvalidContext
	}
	env := parent.env
	child, err := env.SpawnChild(parent, ContextConfig{Share: ShareNone, Prompt: prompt})
	if err != nil {
		return "", err
	}
	out, cerr := child.CompleteSync(params)
	if derr := env.Destroy(child); derr != nil && cerr == nil {
		cerr = derr
	}
	return out, cerr
}

// SelfEval asks a context to evaluate its own buffer. The buffer is
// rewritten into a composite evaluation prompt, completed, and then
// restored from a snapshot, so the context's surface state is unchanged
// on every path. The context must be IDLE.
func SelfEval(ctx *Context, evalPrompt string, params CompletionParams) (string, error) {
	if ctx == nil {
		return "", ErrInvalidContext
	}
	if ctx.State() != StateIdle {
		return "", ErrContextBusy
	}
	ed := ctx.editor

	snap, err := ed.CreateSnapshot()
	if err != nil {
		return "", err
	}
	text, err := ctx.Text()
	if err != nil {
		return "", err
	}

	composite := "[Context]\n" + text + "\n\n[Evaluation Prompt]\n" + evalPrompt + "\n\n[Evaluation]"
	if err := ed.SetText(0, composite); err != nil {
		return "", err
	}

	result, cerr := ctx.CompleteSync(params)

	if rerr := ed.RestoreSnapshot(snap); rerr != nil && cerr == nil {
		cerr = rerr
	}
	if rerr := ctx.Reset(); rerr != nil && cerr == nil {
		cerr = rerr
	}
	return result, cerr
}

// Refine completes, feeds the output to shouldContinue, and appends
// refinePrompt only when the predicate asks for another round. The first
// completion always runs on the untouched buffer. It returns the last
// completion; exhausting maxIter rounds is a normal stop, not an error.
// A nil predicate runs one round.
func Refine(ctx *Context, refinePrompt string, maxIter int, shouldContinue func(string) bool, params CompletionParams) (string, error) {
	if ctx == nil {
		return "", ErrInvalidContext
	}
	if maxIter <= 0 {
		return "", ErrRecursionLimit
	}

	var out string
	for i := 0; i < maxIter; i++ {
		if ctx.State() != StateIdle {
			if err := ctx.Reset(); err != nil {
				return out, err
			}
		}
		var err error
		out, err = ctx.CompleteSync(params)
		if err != nil {
			return out, err
		}
		if shouldContinue == nil || !shouldContinue(out) {
			return out, nil
		}
		if err := ctx.AppendPrompt("\n\n" + refinePrompt + "\n"); err != nil {
			return out, err
		}
	}
	return out, nil
}
