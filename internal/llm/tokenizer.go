package llm

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer converts text to model tokens and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Count returns the number of tokens in text.
func Count(t Tokenizer, text string) int {
	return len(t.Encode(text))
}

type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads a BPE encoding from the embedded offline tables,
// so startup needs no network access.
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %s: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// ByteTokenizer counts one token per UTF-8 byte. Byte-level BPE tokens cover
// at least one byte each, so this is an upper bound on any such encoding.
type ByteTokenizer struct{}

func (ByteTokenizer) Encode(text string) []int {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out
}

// Decode drops a rune split by truncation.
func (ByteTokenizer) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return strings.ToValidUTF8(string(b), "")
}

// RuneTokenizer counts one token per rune. It is not a bound on BPE counts
// (a Hangul syllable is often several cl100k tokens); tests use it for its
// predictable sizes.
type RuneTokenizer struct{}

func (RuneTokenizer) Encode(text string) []int {
	runes := []rune(text)
	out := make([]int, len(runes))
	for i, r := range runes {
		out[i] = int(r)
	}
	return out
}

func (RuneTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}
