package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// encodingCL100kBase is the encoding name for GPT-4 and GPT-3.5-turbo.
	encodingCL100kBase = "cl100k_base"
	// encodingP50kBase is the encoding name for GPT-3.
	encodingP50kBase = "p50k_base"
	// encodingR50kBase is the encoding name for older GPT-3 models.
	encodingR50kBase = "r50k_base"
)

// tiktokenVocabSizes holds the number of ordinary (non-special) tokens of
// each supported encoding; tiktoken-go does not expose it.
var tiktokenVocabSizes = map[string]int{
	encodingCL100kBase: 100256,
	encodingP50kBase:   50257,
	encodingR50kBase:   50257,
}

// TikTokenVocabulary uses tiktoken BPE ids as subword CTC labels. The
// blank follows the last ordinary token; special tokens are not labels.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci-002, babbage-002
type TikTokenVocabulary struct {
	encoding  *tiktoken.Tiktoken
	name      string
	vocabSize int
}

// NewTikTokenVocabulary loads a tiktoken encoding by name.
func NewTikTokenVocabulary(encodingName string) (*TikTokenVocabulary, error) {
	vocabSize, ok := tiktokenVocabSizes[encodingName]
	if !ok {
		return nil, fmt.Errorf("unsupported tiktoken encoding %q", encodingName)
	}

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikTokenVocabulary{
		encoding:  encoding,
		name:      encodingName,
		vocabSize: vocabSize,
	}, nil
}

// Encode converts text to BPE token ids.
func (t *TikTokenVocabulary) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		if tok >= t.vocabSize {
			return nil, fmt.Errorf("%w: special token %d", ErrUnknownSymbol, tok)
		}
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Decode converts BPE token ids back to text, skipping blanks.
func (t *TikTokenVocabulary) Decode(labels []int32) (string, error) {
	intTokens := make([]int, 0, len(labels))
	for _, id := range labels {
		if id < 0 || int(id) >= t.NumClasses() {
			return "", fmt.Errorf("%w: %d (classes %d)", ErrInvalidLabel, id, t.NumClasses())
		}
		if id == t.Blank() {
			continue
		}
		intTokens = append(intTokens, int(id))
	}
	return t.encoding.Decode(intTokens), nil
}

// NumClasses returns the ordinary token count plus the blank.
func (t *TikTokenVocabulary) NumClasses() int {
	return t.vocabSize + 1
}

// Blank returns the label following the last ordinary token.
func (t *TikTokenVocabulary) Blank() int32 {
	return int32(t.vocabSize) //nolint:gosec // G115: see Encode.
}

// Name returns "tiktoken:<encoding>".
func (t *TikTokenVocabulary) Name() string {
	return tiktokenPrefix + t.name
}
