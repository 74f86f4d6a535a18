package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
)

// CharVocabularyName is the name of the character vocabulary.
const CharVocabularyName = "char"

// spaceSymbol stands for the word boundary in the character map.
const spaceSymbol = "<SPACE>"

// SymbolVocabulary maps single characters to labels through a symbol
// table. One symbol acts as the word delimiter and stands for a space.
type SymbolVocabulary struct {
	name      string
	symbols   []string // label -> symbol
	index     map[string]int32
	delimiter string
	blank     int32
}

// NewSymbolVocabulary builds a vocabulary from a symbol table indexed by
// label. When blank is negative the blank is appended after the last
// symbol; otherwise the symbol at that index is the blank.
func NewSymbolVocabulary(name string, symbols []string, delimiter string, blank int32) (*SymbolVocabulary, error) {
	index := make(map[string]int32, len(symbols))
	for i, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("vocabulary %s: empty symbol at label %d", name, i)
		}
		if _, dup := index[s]; dup {
			return nil, fmt.Errorf("vocabulary %s: duplicate symbol %q", name, s)
		}
		index[s] = int32(i) //nolint:gosec // G115: symbol tables are far below 2^31 entries.
	}
	if delimiter != "" {
		if _, ok := index[delimiter]; !ok {
			return nil, fmt.Errorf("vocabulary %s: delimiter %q not in symbol table", name, delimiter)
		}
	}
	if int(blank) >= len(symbols) {
		return nil, fmt.Errorf("vocabulary %s: blank %d outside symbol table of %d", name, blank, len(symbols))
	}
	if blank < 0 {
		blank = int32(len(symbols)) //nolint:gosec // G115: see above.
	}

	return &SymbolVocabulary{
		name:      name,
		symbols:   symbols,
		index:     index,
		delimiter: delimiter,
		blank:     blank,
	}, nil
}

// NewCharVocabulary returns the character vocabulary of the reference
// training setup: ' = 0, space = 1, a..z = 2..27, blank = 28.
func NewCharVocabulary() *SymbolVocabulary {
	symbols := make([]string, 0, 28)
	symbols = append(symbols, "'", spaceSymbol)
	for c := 'a'; c <= 'z'; c++ {
		symbols = append(symbols, string(c))
	}

	v, err := NewSymbolVocabulary(CharVocabularyName, symbols, spaceSymbol, -1)
	if err != nil {
		panic(err) // static table
	}
	return v
}

// Encode converts text to labels, one per character. Spaces map to the
// delimiter; letters missing from the table are retried in the other case.
func (v *SymbolVocabulary) Encode(text string) ([]int32, error) {
	labels := make([]int32, 0, len(text))
	for pos, r := range text {
		id, ok := v.lookup(r)
		if !ok {
			return nil, fmt.Errorf("%w: %q at byte %d", ErrUnknownSymbol, r, pos)
		}
		labels = append(labels, id)
	}
	return labels, nil
}

func (v *SymbolVocabulary) lookup(r rune) (int32, bool) {
	if r == ' ' && v.delimiter != "" {
		return v.index[v.delimiter], true
	}
	for _, c := range []rune{r, unicode.ToLower(r), unicode.ToUpper(r)} {
		if id, ok := v.index[string(c)]; ok && id != v.blank {
			return id, true
		}
	}
	return 0, false
}

// Decode converts labels to text. The blank and bracketed special tokens
// such as <pad> or <unk> produce no output.
func (v *SymbolVocabulary) Decode(labels []int32) (string, error) {
	var sb strings.Builder
	for _, id := range labels {
		if id < 0 || int(id) >= v.NumClasses() {
			return "", fmt.Errorf("%w: %d (classes %d)", ErrInvalidLabel, id, v.NumClasses())
		}
		if id == v.blank {
			continue
		}

		s := v.symbols[id]
		switch {
		case s == v.delimiter:
			sb.WriteByte(' ')
		case len(s) > 2 && s[0] == '<' && s[len(s)-1] == '>':
		default:
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}

// NumClasses returns the symbol count, plus one when the blank is appended.
func (v *SymbolVocabulary) NumClasses() int {
	if int(v.blank) == len(v.symbols) {
		return len(v.symbols) + 1
	}
	return len(v.symbols)
}

// Blank returns the CTC blank label.
func (v *SymbolVocabulary) Blank() int32 {
	return v.blank
}

// Name returns the vocabulary name.
func (v *SymbolVocabulary) Name() string {
	return v.name
}

// Symbols returns the symbol table indexed by label.
func (v *SymbolVocabulary) Symbols() []string {
	return v.symbols
}
