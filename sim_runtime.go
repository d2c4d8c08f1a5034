package skein

import (
	"bytes"
	"encoding/gob"
	"hash/fnv"
	"math/rand"
	"sort"
)

// SimModel is a deterministic, in-process runtime used by the commands and
// the test suite. Tokenization is byte-level so text round-trips exactly;
// logits are derived from a hash of the decoded KV content, which makes
// stale-cache bugs visible as changed sampling output.
type SimModel struct {
	vocab int
}

// Simulated vocabulary layout: 256 byte tokens, then specials.
const (
	simTokenBOS Token = 256
	simTokenEOS Token = 257
	simTokenPAD Token = 258
	simTokenSEP Token = 259

	simVocabSize = 260
)

// NewSimModel creates the simulated model.
func NewSimModel() *SimModel {
	return &SimModel{vocab: simVocabSize}
}

func (m *SimModel) VocabSize() int     { return m.vocab }
func (m *SimModel) TokenBOS() Token    { return simTokenBOS }
func (m *SimModel) IsEOG(t Token) bool { return t == simTokenEOS }

func (m *SimModel) TokenAttr(t Token) TokenAttr {
	switch t {
	case simTokenBOS, simTokenEOS:
		return AttrSpecial
	case simTokenPAD, simTokenSEP:
		return AttrSpecial | AttrControl
	default:
		return 0
	}
}

func (m *SimModel) TokenPiece(t Token) ([]byte, error) {
	if t < 0 || int(t) >= m.vocab {
		return nil, ErrInvalidToken
	}
	if t >= 256 {
		// Specials render to nothing, matching tokenizers that strip
		// markers during detokenization.
		return []byte{}, nil
	}
	return []byte{byte(t)}, nil
}

func (m *SimModel) Tokenize(text string, addBOS, special bool) ([]Token, error) {
	toks := make([]Token, 0, len(text)+1)
	if addBOS {
		toks = append(toks, simTokenBOS)
	}
	for i := 0; i < len(text); i++ {
		toks = append(toks, Token(text[i]))
	}
	return toks, nil
}

func (m *SimModel) NewContext(params ContextParams) (ModelContext, error) {
	if params.CtxSize <= 0 {
		params.CtxSize = 2048
	}
	if params.BatchSize <= 0 {
		params.BatchSize = 512
	}
	return &simContext{
		model:  m,
		params: params,
		kv:     make(map[SeqID]map[int]Token),
	}, nil
}

// simContext emulates a KV cache as per-sequence position maps. Logits are
// recomputed from cache content at every flagged decode slot.
type simContext struct {
	model  *SimModel
	params ContextParams
	kv     map[SeqID]map[int]Token
	logits []float32
	closed bool
}

func (c *simContext) seq(id SeqID) map[int]Token {
	s, ok := c.kv[id]
	if !ok {
		s = make(map[int]Token)
		c.kv[id] = s
	}
	return s
}

func (c *simContext) occupancy() int {
	n := 0
	for _, s := range c.kv {
		n += len(s)
	}
	return n
}

func (c *simContext) Decode(batch Batch) error {
	if c.closed {
		return ErrInvalidContext
	}
	if c.occupancy()+len(batch) > c.params.CtxSize {
		return ErrKVCacheFull
	}
	for _, slot := range batch {
		seqs := slot.Seqs
		if len(seqs) == 0 {
			seqs = []SeqID{0}
		}
		for _, id := range seqs {
			c.seq(id)[slot.Pos] = slot.Token
		}
		if slot.WantLogits {
			c.logits = c.computeLogits(seqs[0], slot.Pos)
		}
	}
	return nil
}

// computeLogits hashes the cached tokens of seq up to and including pos,
// then spreads the hash across the vocabulary.
func (c *simContext) computeLogits(seq SeqID, pos int) []float32 {
	h := fnv.New64a()
	s := c.seq(seq)
	for p := 0; p <= pos; p++ {
		if tok, ok := s[p]; ok {
			h.Write([]byte{byte(tok), byte(tok >> 8), byte(p), byte(p >> 8)})
		}
	}
	sum := h.Sum64()

	logits := make([]float32, c.model.vocab)
	for i := range logits {
		v := sum ^ (uint64(i+1) * 0x9e3779b97f4a7c15)
		v ^= v >> 29
		logits[i] = float32(v%2000)/100.0 - 10.0
	}
	// Printable bytes get a small boost so greedy generation stays textual.
	for i := 32; i < 127; i++ {
		logits[i] += 2.5
	}
	// Specials are pinned: BOS/PAD/SEP never sampled, end-of-generation
	// pressure rises with position so long runs terminate.
	logits[simTokenBOS] = -20
	logits[simTokenPAD] = -20
	logits[simTokenSEP] = -20
	logits[simTokenEOS] = -5 + float32(pos)*0.05
	return logits
}

func (c *simContext) Logits() []float32 { return c.logits }

func (c *simContext) KVClear() {
	c.kv = make(map[SeqID]map[int]Token)
}

func (c *simContext) KVRemove(seq SeqID, start, end int) {
	if seq == AllSeqs {
		for id := range c.kv {
			c.KVRemove(id, start, end)
		}
		return
	}
	s, ok := c.kv[seq]
	if !ok {
		return
	}
	for p := range s {
		if (start < 0 || p >= start) && (end < 0 || p < end) {
			delete(s, p)
		}
	}
}

func (c *simContext) KVCopy(src, dst SeqID) {
	out := make(map[int]Token, len(c.kv[src]))
	for p, t := range c.kv[src] {
		out[p] = t
	}
	c.kv[dst] = out
}

func (c *simContext) KVShift(seq SeqID, start, end, delta int) {
	s, ok := c.kv[seq]
	if !ok || delta == 0 {
		return
	}
	moved := make(map[int]Token, len(s))
	for p, t := range s {
		if (start < 0 || p >= start) && (end < 0 || p < end) {
			moved[p+delta] = t
		} else {
			moved[p] = t
		}
	}
	c.kv[seq] = moved
}

// simState is the gob payload behind the opaque state blob.
type simState struct {
	KV     map[SeqID]map[int]Token
	Logits []float32
}

func (c *simContext) StateSave() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(simState{KV: c.kv, Logits: c.logits}); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (c *simContext) StateLoad(state []byte) error {
	var st simState
	dec := gob.NewDecoder(bytes.NewReader(state))
	if err := dec.Decode(&st); err != nil {
		return err
	}
	if st.KV == nil {
		st.KV = make(map[SeqID]map[int]Token)
	}
	c.kv = st.KV
	c.logits = st.Logits
	return nil
}

func (c *simContext) NewSampler(params SamplingParams) Sampler {
	return &simSampler{params: params, seen: make(map[Token]int)}
}

func (c *simContext) Close() error {
	c.closed = true
	c.kv = nil
	c.logits = nil
	return nil
}

// simSampler applies repeat penalty, top-k, and either greedy or
// hash-seeded stochastic selection. Determinism is required so tests can
// assert on generated output.
type simSampler struct {
	params SamplingParams
	seen   map[Token]int
}

func (s *simSampler) Sample(logits []float32) Token {
	type cand struct {
		id    Token
		logit float32
	}
	cands := make([]cand, len(logits))
	for i, l := range logits {
		id := Token(i)
		if n := s.seen[id]; n > 0 && s.params.RepeatPenalty > 1 {
			l -= s.params.RepeatPenalty * float32(n)
		}
		cands[i] = cand{id: id, logit: l}
	}
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].logit != cands[b].logit {
			return cands[a].logit > cands[b].logit
		}
		return cands[a].id < cands[b].id
	})

	k := s.params.TopK
	if k <= 0 || k > len(cands) {
		k = len(cands)
	}
	cands = cands[:k]

	if s.params.Temperature <= 0 {
		return cands[0].id
	}

	// Seed from the candidate set so identical states sample identically.
	h := fnv.New64a()
	for _, c := range cands {
		h.Write([]byte{byte(c.id), byte(c.id >> 8)})
	}
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return cands[rng.Intn(len(cands))].id
}

func (s *simSampler) Accept(tok Token) {
	s.seen[tok]++
}
