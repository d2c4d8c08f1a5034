package skein

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// defaultMaxPredict caps generation when CompletionParams leaves
// MaxTokens at zero.
const defaultMaxPredict = 256

// CompletionParams configures one generation run.
type CompletionParams struct {
	// MaxTokens caps the number of generated tokens.
	MaxTokens int

	// Sampling parameterises the runtime sampler.
	Sampling SamplingParams

	// Timeout bounds wall-clock generation time. Zero means unlimited.
	Timeout time.Duration
}

// DefaultCompletionParams returns the standard generation configuration.
func DefaultCompletionParams() CompletionParams {
	return CompletionParams{
		MaxTokens: defaultMaxPredict,
		Sampling: SamplingParams{
			Temperature:   0.8,
			TopP:          0.95,
			TopK:          40,
			RepeatPenalty: 1.1,
		},
	}
}

// Complete generates up to params.MaxTokens tokens at the end of the
// buffer and returns how many were appended. The context must be IDLE;
// it finishes COMPLETE, or ERROR with the cause retained. Each appended
// token is stamped FlagGenerated and is individually undoable.
func (c *Context) Complete(params CompletionParams) (int, error) {
	if c == nil {
		return 0, ErrInvalidContext
	}

	c.env.mu.Lock()
	if c.state != StateIdle {
		c.env.mu.Unlock()
		return 0, ErrContextBusy
	}
	c.state = StateRunning
	c.err = nil
	c.startedAt = time.Now()
	c.env.mu.Unlock()

	generated, err := c.generate(params)

	c.env.mu.Lock()
	c.finishedAt = time.Now()
	c.tokensGenerated += generated
	if err != nil {
		c.state = StateError
		c.err = err
	} else {
		c.state = StateComplete
	}
	obs := append([]ContextObserver(nil), c.observers...)
	c.env.mu.Unlock()

	if err != nil {
		c.env.log.Warn("completion failed", zap.Int("id", c.id), zap.Error(err))
	} else {
		c.env.log.Debug("completion finished", zap.Int("id", c.id), zap.Int("tokens", generated))
	}
	for _, o := range obs {
		o.Completed(c, generated, err)
	}
	return generated, err
}

func (c *Context) generate(params CompletionParams) (int, error) {
	ed := c.editor

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxPredict
	}

	if err := ed.SyncKV(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrModel, err)
	}
	if ed.Len() == 0 {
		return 0, ErrInvalidPosition
	}

	sampler := c.mc.NewSampler(params.Sampling)
	start := time.Now()
	generated := 0

	for generated < maxTokens {
		if params.Timeout > 0 && time.Since(start) > params.Timeout {
			return generated, ErrTimeout
		}

		logits := c.mc.Logits()
		if len(logits) == 0 {
			return generated, ErrModel
		}
		tok := sampler.Sample(logits)
		sampler.Accept(tok)

		if c.env.model.IsEOG(tok) {
			break
		}

		pos := ed.Len()
		if err := ed.insertTokens(pos, 0, []Token{tok}, FlagGenerated, histRecord); err != nil {
			return generated, err
		}
		generated++

		c.env.mu.Lock()
		obs := append([]ContextObserver(nil), c.observers...)
		c.env.mu.Unlock()
		for _, o := range obs {
			o.TokenGenerated(c, tok)
		}

		// One-slot decode keeps the cache in lockstep with the append.
		err := c.mc.Decode(Batch{{Token: tok, Pos: pos, Seqs: []SeqID{0}, WantLogits: true}})
		if err != nil {
			return generated, fmt.Errorf("%w: %v", ErrModel, err)
		}
		ed.kvDirty = false
		ed.logitsValid = true
	}

	return generated, nil
}

// CompleteSync runs Complete and returns the generated suffix as text.
func (c *Context) CompleteSync(params CompletionParams) (string, error) {
	if c == nil {
		return "", ErrInvalidContext
	}
	startLen := c.editor.Len()
	n, err := c.Complete(params)
	if err != nil {
		return "", err
	}
	return c.editor.Text(Range{Start: startLen, End: startLen + n, Seq: AllSeqs})
}
