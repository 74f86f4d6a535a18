package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Errors returned by vocabularies.
var (
	// ErrUnknownSymbol is returned by Encode for text the vocabulary cannot
	// represent.
	ErrUnknownSymbol = errors.New("symbol not in vocabulary")

	// ErrInvalidLabel is returned by Decode for ids outside [0, NumClasses).
	ErrInvalidLabel = errors.New("label out of range")
)

// Vocabulary maps transcripts to CTC labels.
type Vocabulary interface {
	// Encode converts text to label ids. The blank is never produced.
	Encode(text string) ([]int32, error)

	// Decode converts label ids back to text. Blank labels decode to
	// nothing; no CTC collapsing of repeats is applied.
	Decode(labels []int32) (string, error)

	// NumClasses returns the number of output classes, blank included.
	NumClasses() int

	// Blank returns the CTC blank label.
	Blank() int32

	// Name identifies the vocabulary.
	Name() string
}

// tiktokenPrefix selects a tiktoken encoding in Load, e.g. "tiktoken:cl100k_base".
const tiktokenPrefix = "tiktoken:"

// Load resolves a vocabulary by name:
//  1. "char" (or empty) for the character vocabulary
//  2. "tiktoken:<encoding>" for a tiktoken encoding
//  3. a path to a JSON symbol table (vocab.json or tokenizer.json)
func Load(name string) (Vocabulary, error) {
	switch {
	case name == "" || name == CharVocabularyName:
		return NewCharVocabulary(), nil
	case strings.HasPrefix(name, tiktokenPrefix):
		return NewTikTokenVocabulary(strings.TrimPrefix(name, tiktokenPrefix))
	}

	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return LoadJSONVocabulary(name)
	}
	return nil, fmt.Errorf("unknown vocabulary %q", name)
}
