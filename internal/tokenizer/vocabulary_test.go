package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharVocabulary_Layout(t *testing.T) {
	v := NewCharVocabulary()

	assert.Equal(t, 29, v.NumClasses())
	assert.Equal(t, int32(28), v.Blank())
	assert.Equal(t, "char", v.Name())
	assert.Equal(t, "'", v.Symbols()[0])
	assert.Equal(t, "<SPACE>", v.Symbols()[1])
	assert.Equal(t, "a", v.Symbols()[2])
	assert.Equal(t, "z", v.Symbols()[27])
}

func TestCharVocabulary_Encode(t *testing.T) {
	v := NewCharVocabulary()

	tests := []struct {
		name string
		text string
		want []int32
	}{
		{"word", "hello", []int32{9, 6, 13, 13, 16}},
		{"space", "a b", []int32{2, 1, 3}},
		{"apostrophe", "it's", []int32{10, 21, 0, 20}},
		{"uppercase folds", "HeLLo", []int32{9, 6, 13, 13, 16}},
		{"empty", "", []int32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Encode(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCharVocabulary_EncodeUnknown(t *testing.T) {
	_, err := NewCharVocabulary().Encode("hi!")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestCharVocabulary_Decode(t *testing.T) {
	v := NewCharVocabulary()

	labels, err := v.Encode("hello world")
	require.NoError(t, err)
	text, err := v.Decode(labels)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	// Blanks vanish; repeats are kept.
	text, err = v.Decode([]int32{28, 9, 9, 28, 6})
	require.NoError(t, err)
	assert.Equal(t, "hhe", text)

	_, err = v.Decode([]int32{29})
	assert.ErrorIs(t, err, ErrInvalidLabel)
	_, err = v.Decode([]int32{-1})
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func TestNewSymbolVocabulary_Errors(t *testing.T) {
	tests := []struct {
		name      string
		symbols   []string
		delimiter string
		blank     int32
	}{
		{"duplicate", []string{"a", "a"}, "", -1},
		{"empty symbol", []string{"a", ""}, "", -1},
		{"missing delimiter", []string{"a", "b"}, "|", -1},
		{"blank out of range", []string{"a", "b"}, "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSymbolVocabulary("test", tt.symbols, tt.delimiter, tt.blank)
			assert.Error(t, err)
		})
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSONVocabulary_CTCVocab(t *testing.T) {
	path := writeFile(t, "vocab.json",
		`{"<pad>": 0, "<s>": 1, "</s>": 2, "<unk>": 3, "|": 4, "E": 5, "H": 6, "L": 7, "O": 8}`)

	v, err := LoadJSONVocabulary(path)
	require.NoError(t, err)

	assert.Equal(t, 9, v.NumClasses())
	assert.Equal(t, int32(0), v.Blank())
	assert.Equal(t, "vocab.json", v.Name())

	labels, err := v.Encode("hello hole")
	require.NoError(t, err)
	assert.Equal(t, []int32{6, 5, 7, 7, 8, 4, 6, 8, 7, 5}, labels)

	text, err := v.Decode([]int32{0, 6, 5, 3, 7, 7, 8, 4, 2})
	require.NoError(t, err)
	assert.Equal(t, "HELLO ", text)
}

func TestLoadJSONVocabulary_TokenizerJSON(t *testing.T) {
	path := writeFile(t, "tokenizer.json",
		`{"version": "1.0", "model": {"type": "WordLevel", "vocab": {"a": 0, "b": 1, " ": 2}}}`)

	v, err := LoadJSONVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, 4, v.NumClasses())
	assert.Equal(t, int32(3), v.Blank())

	labels, err := v.Encode("ab ba")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 1, 0}, labels)
}

func TestLoadJSONVocabulary_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", `{"a": `},
		{"sparse ids", `{"a": 0, "b": 5}`},
		{"empty", `{}`},
		{"non-integer id", `{"a": "zero"}`},
		{"empty model vocab", `{"model": {"vocab": {}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSONVocabulary(writeFile(t, "vocab.json", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadJSONVocabulary(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	v, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "char", v.Name())

	v, err = Load("char")
	require.NoError(t, err)
	assert.Equal(t, 29, v.NumClasses())

	path := writeFile(t, "vocab.json", `{"<pad>": 0, "|": 1, "a": 2}`)
	v, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, v.NumClasses())

	_, err = Load("no-such-vocabulary")
	assert.Error(t, err)

	_, err = Load("tiktoken:unknown_base")
	assert.Error(t, err)
}

// newTikToken skips when the encoding cannot be fetched (offline runs).
func newTikToken(t *testing.T, encoding string) *TikTokenVocabulary {
	t.Helper()
	v, err := NewTikTokenVocabulary(encoding)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return v
}

func TestTikTokenVocabulary(t *testing.T) {
	tests := []struct {
		encoding string
		classes  int
	}{
		{"cl100k_base", 100257},
		{"p50k_base", 50258},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			v := newTikToken(t, tt.encoding)

			assert.Equal(t, tt.classes, v.NumClasses())
			assert.Equal(t, int32(tt.classes-1), v.Blank())
			assert.Equal(t, "tiktoken:"+tt.encoding, v.Name())

			labels, err := v.Encode("the quick brown fox")
			require.NoError(t, err)
			require.NotEmpty(t, labels)
			for _, id := range labels {
				assert.Less(t, id, v.Blank())
			}

			withBlanks := append([]int32{v.Blank()}, labels...)
			text, err := v.Decode(withBlanks)
			require.NoError(t, err)
			assert.Equal(t, "the quick brown fox", text)

			_, err = v.Decode([]int32{int32(tt.classes)})
			assert.ErrorIs(t, err, ErrInvalidLabel)
		})
	}
}

func TestNewTikTokenVocabulary_Unsupported(t *testing.T) {
	v, err := NewTikTokenVocabulary("invalid_encoding_xyz")
	assert.Error(t, err)
	assert.Nil(t, v)
}
