package prompt

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts and trims text by token count so neighbouring context in
// the judge prompt stays inside a fixed budget. A nil Tokenizer is valid and
// leaves text untouched, which keeps the prompt library usable when the BPE
// data cannot be loaded.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the cl100k_base encoding.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the token count of text, or a zero on a nil tokenizer.
func (t *Tokenizer) Count(text string) int {
	if t == nil || t.enc == nil {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// KeepTail trims text to at most budget tokens, keeping the end. Used for
// the previous-chunk context, where the words adjacent to the target matter
// most.
func (t *Tokenizer) KeepTail(text string, budget int) string {
	if t == nil || t.enc == nil || budget <= 0 {
		return text
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return t.enc.Decode(tokens[len(tokens)-budget:])
}

// KeepHead trims text to at most budget tokens, keeping the start. Used for
// the next-chunk context.
func (t *Tokenizer) KeepHead(text string, budget int) string {
	if t == nil || t.enc == nil || budget <= 0 {
		return text
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return t.enc.Decode(tokens[:budget])
}
