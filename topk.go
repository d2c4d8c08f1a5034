package skein

import (
	"math"
	"sort"
)

// TokenProb is one candidate from the final-position distribution.
type TokenProb struct {
	Token Token
	Logit float32
	Prob  float32
}

// ComputeLogits ensures the runtime holds logits for the final buffer
// position, syncing the cache if needed.
func (e *Editor) ComputeLogits() error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if len(e.tokens) == 0 {
		return ErrInvalidPosition
	}
	if e.logitsValid && !e.kvDirty {
		return nil
	}
	return e.SyncKV()
}

// TopK returns the k most probable next tokens at the final position,
// sorted by probability descending. Probabilities are softmax over the
// full vocabulary.
func (e *Editor) TopK(k int) ([]TokenProb, error) {
	if err := e.ComputeLogits(); err != nil {
		return nil, err
	}
	logits := e.mc.Logits()
	if len(logits) == 0 {
		return nil, ErrModel
	}
	if k <= 0 {
		return nil, ErrInvalidPosition
	}
	if k > len(logits) {
		k = len(logits)
	}

	probs := softmax(logits)
	cands := make([]TokenProb, len(logits))
	for i := range logits {
		cands[i] = TokenProb{Token: Token(i), Logit: logits[i], Prob: probs[i]}
	}
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].Prob != cands[b].Prob {
			return cands[a].Prob > cands[b].Prob
		}
		return cands[a].Token < cands[b].Token
	})
	return cands[:k], nil
}

// TokenLogit returns the final-position logit for tok.
func (e *Editor) TokenLogit(tok Token) (float32, error) {
	if err := e.ComputeLogits(); err != nil {
		return 0, err
	}
	logits := e.mc.Logits()
	if tok < 0 || int(tok) >= len(logits) {
		return 0, ErrInvalidToken
	}
	return logits[tok], nil
}

// softmax converts logits to a probability distribution, subtracting the
// max first for numeric stability.
func softmax(logits []float32) []float32 {
	max := logits[0]
	for _, l := range logits[1:] {
		if l > max {
			max = l
		}
	}
	probs := make([]float32, len(logits))
	var sum float64
	for i, l := range logits {
		v := math.Exp(float64(l - max))
		probs[i] = float32(v)
		sum += v
	}
	if sum > 0 {
		for i := range probs {
			probs[i] = float32(float64(probs[i]) / sum)
		}
	}
	return probs
}
