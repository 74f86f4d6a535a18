// Package tokenizer provides the label vocabularies used to train and
// decode the acoustic model.
//
// A vocabulary maps transcripts to CTC label ids and back. The model's
// n_class must equal the vocabulary's NumClasses, blank included.
//
// Supported vocabularies:
//   - Char: the 28-symbol character map (', space, a-z) plus the blank
//   - JSON: symbol tables from vocab.json or tokenizer.json files
//   - TikToken: OpenAI BPE encodings with the blank appended
//
// Example usage:
//
//	import "github.com/born-ml/deepspeech/tokenizer"
//
//	vocab := tokenizer.NewCharVocabulary()
//	labels, err := vocab.Encode("hello world")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := vocab.Decode(labels)
package tokenizer

import (
	"github.com/born-ml/deepspeech/internal/tokenizer"
)

// Vocabulary maps transcripts to CTC labels.
type Vocabulary = tokenizer.Vocabulary

// SymbolVocabulary is a vocabulary over a fixed symbol table.
type SymbolVocabulary = tokenizer.SymbolVocabulary

// TikTokenVocabulary wraps a tiktoken BPE encoding.
type TikTokenVocabulary = tokenizer.TikTokenVocabulary

// CharVocabularyName is the name of the character vocabulary.
const CharVocabularyName = tokenizer.CharVocabularyName

// Errors returned by vocabularies.
var (
	ErrUnknownSymbol = tokenizer.ErrUnknownSymbol
	ErrInvalidLabel  = tokenizer.ErrInvalidLabel
)

// Load resolves a vocabulary by name: "char", "tiktoken:<encoding>" or a
// path to a JSON symbol table.
func Load(name string) (Vocabulary, error) {
	return tokenizer.Load(name)
}

// NewCharVocabulary returns the character vocabulary (29 classes).
func NewCharVocabulary() *SymbolVocabulary {
	return tokenizer.NewCharVocabulary()
}

// NewSymbolVocabulary builds a vocabulary from an ordered symbol list.
// A negative blank appends the blank after the symbols.
func NewSymbolVocabulary(name string, symbols []string, delimiter string, blank int32) (*SymbolVocabulary, error) {
	return tokenizer.NewSymbolVocabulary(name, symbols, delimiter, blank)
}

// LoadJSONVocabulary reads a vocab.json or tokenizer.json symbol table.
func LoadJSONVocabulary(path string) (*SymbolVocabulary, error) {
	return tokenizer.LoadJSONVocabulary(path)
}

// NewTikTokenVocabulary loads a tiktoken encoding such as "cl100k_base".
func NewTikTokenVocabulary(encodingName string) (*TikTokenVocabulary, error) {
	return tokenizer.NewTikTokenVocabulary(encodingName)
}
