package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Special symbols recognized in JSON symbol tables.
const (
	hfWordDelimiter = "|"
	hfPadToken      = "<pad>"
)

// LoadJSONVocabulary loads a symbol table from a HuggingFace CTC vocab.json
// ({"<pad>": 0, "|": 4, "E": 5, ...}) or from a tokenizer.json whose
// "model.vocab" holds such a map.
//
// The word delimiter is "|" when present, otherwise "<SPACE>" or a literal
// space. "<pad>" is the blank when present, as in wav2vec2 checkpoints;
// otherwise the blank is appended.
func LoadJSONVocabulary(path string) (*SymbolVocabulary, error) {
	//nolint:gosec // Loading a vocabulary from a user-specified path is intentional.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	vocab, err := parseVocabJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}

	symbols := make([]string, len(vocab))
	for s, id := range vocab {
		if id < 0 || id >= len(vocab) {
			return nil, fmt.Errorf("vocabulary %s: id %d of %q is not dense in [0, %d)", path, id, s, len(vocab))
		}
		if symbols[id] != "" {
			return nil, fmt.Errorf("vocabulary %s: id %d assigned twice", path, id)
		}
		symbols[id] = s
	}

	delimiter := ""
	for _, candidate := range []string{hfWordDelimiter, spaceSymbol, " "} {
		if _, ok := vocab[candidate]; ok {
			delimiter = candidate
			break
		}
	}

	blank := int32(-1)
	if id, ok := vocab[hfPadToken]; ok {
		blank = int32(id) //nolint:gosec // G115: id checked against table size above.
	}

	return NewSymbolVocabulary(filepath.Base(path), symbols, delimiter, blank)
}

// parseVocabJSON accepts a flat token->id map or a tokenizer.json document.
func parseVocabJSON(data []byte) (map[string]int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if modelRaw, ok := raw["model"]; ok {
		var model struct {
			Vocab map[string]int `json:"vocab"`
		}
		if err := json.Unmarshal(modelRaw, &model); err != nil {
			return nil, fmt.Errorf("model section: %w", err)
		}
		if len(model.Vocab) == 0 {
			return nil, fmt.Errorf("model section has no vocab")
		}
		return model.Vocab, nil
	}

	vocab := make(map[string]int, len(raw))
	for token, idRaw := range raw {
		var id int
		if err := json.Unmarshal(idRaw, &id); err != nil {
			return nil, fmt.Errorf("token %q: %w", token, err)
		}
		vocab[token] = id
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	return vocab, nil
}
