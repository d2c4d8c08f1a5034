package skein

// FindToken returns the positions of occurrences of tok, at most max of
// them. max <= 0 means unlimited.
func (e *Editor) FindToken(tok Token, seq SeqID, max int) []int {
	if e == nil || e.closed {
		return nil
	}
	_ = seq
	var hits []int
	for i, t := range e.tokens {
		if t == tok {
			hits = append(hits, i)
			if max > 0 && len(hits) >= max {
				break
			}
		}
	}
	return hits
}

// FindTokens returns the position of the first occurrence of the token
// subsequence sub at or after from, or -1 when absent. An empty sub
// matches nothing.
func (e *Editor) FindTokens(sub []Token, from int) int {
	if e == nil || e.closed || len(sub) == 0 {
		return -1
	}
	if from < 0 {
		from = 0
	}
	for i := from; i+len(sub) <= len(e.tokens); i++ {
		match := true
		for j, want := range sub {
			if e.tokens[i+j] != want {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// FindText tokenizes text without BOS and returns the start positions of
// its occurrences as a token subsequence, at most max of them. Only
// occurrences whose token boundaries line up with a fresh tokenization of
// the needle are found; text split across different boundaries is not
// matched.
func (e *Editor) FindText(text string, seq SeqID, max int) ([]int, error) {
	if e == nil || e.closed {
		return nil, ErrInvalidContext
	}
	_ = seq
	sub, err := e.model.Tokenize(text, false, true)
	if err != nil {
		return nil, err
	}
	if len(sub) == 0 {
		return nil, nil
	}
	var hits []int
	from := 0
	for {
		pos := e.FindTokens(sub, from)
		if pos < 0 {
			return hits, nil
		}
		hits = append(hits, pos)
		if max > 0 && len(hits) >= max {
			return hits, nil
		}
		from = pos + 1
	}
}

// CountToken returns the number of occurrences of tok in the buffer.
func (e *Editor) CountToken(tok Token) int {
	if e == nil || e.closed {
		return 0
	}
	n := 0
	for _, t := range e.tokens {
		if t == tok {
			n++
		}
	}
	return n
}
