package skein

import (
	"encoding/binary"
	"encoding/json"
)

// Binary token stream layout: little-endian uint32 count followed by
// count little-endian int32 token ids.
const exportHeaderSize = 4

// ExportBinary serialises the buffer to the binary token stream format.
func (e *Editor) ExportBinary() ([]byte, error) {
	if e == nil || e.closed {
		return nil, ErrInvalidContext
	}
	out := make([]byte, exportHeaderSize+4*len(e.tokens))
	binary.LittleEndian.PutUint32(out, uint32(len(e.tokens)))
	for i, tok := range e.tokens {
		binary.LittleEndian.PutUint32(out[exportHeaderSize+4*i:], uint32(tok))
	}
	return out, nil
}

// ImportBinary replaces the buffer with tokens decoded from data. Every
// id is validated against the vocabulary before anything is applied; the
// replacement is a single undoable edit.
func (e *Editor) ImportBinary(seq SeqID, data []byte) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	if len(data) < exportHeaderSize {
		return ErrBufferTooSmall
	}
	count := int(binary.LittleEndian.Uint32(data))
	if len(data) < exportHeaderSize+4*count {
		return ErrBufferTooSmall
	}
	toks := make([]Token, count)
	for i := range toks {
		tok := Token(binary.LittleEndian.Uint32(data[exportHeaderSize+4*i:]))
		if tok < 0 || int(tok) >= e.model.VocabSize() {
			return ErrInvalidToken
		}
		toks[i] = tok
	}
	return e.ReplaceTokens(Range{Start: 0, End: len(e.tokens), Seq: seq}, toks)
}

// tokenStream is the JSON export shape.
type tokenStream struct {
	Tokens []Token `json:"tokens"`
}

// ExportJSON serialises the buffer as {"tokens":[...]} with no
// insignificant whitespace.
func (e *Editor) ExportJSON() ([]byte, error) {
	if e == nil || e.closed {
		return nil, ErrInvalidContext
	}
	toks := e.tokens
	if toks == nil {
		toks = []Token{}
	}
	return json.Marshal(tokenStream{Tokens: toks})
}

// ImportJSON replaces the buffer with tokens parsed from a JSON export.
func (e *Editor) ImportJSON(seq SeqID, data []byte) error {
	if e == nil || e.closed {
		return ErrInvalidContext
	}
	if e.readonly {
		return ErrReadOnly
	}
	var ts tokenStream
	if err := json.Unmarshal(data, &ts); err != nil {
		return err
	}
	for _, tok := range ts.Tokens {
		if tok < 0 || int(tok) >= e.model.VocabSize() {
			return ErrInvalidToken
		}
	}
	return e.ReplaceTokens(Range{Start: 0, End: len(e.tokens), Seq: seq}, ts.Tokens)
}
