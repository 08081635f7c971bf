package tts

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer()
	if errors.Is(err, ErrTokenizerUnavailable) {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	require.NoError(t, err)
	return tok
}

func TestTokenize(t *testing.T) {
	tok := newTestTokenizer(t)

	text := "今日は東京に行った。"
	tokens, err := tok.Tokenize(text)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	t.Run("surfaces reproduce the input", func(t *testing.T) {
		var sb strings.Builder
		for _, tk := range tokens {
			sb.WriteString(tk.Surface)
		}
		assert.Equal(t, text, sb.String())
	})

	t.Run("offsets are contiguous", func(t *testing.T) {
		offset := 0
		for i, tk := range tokens {
			assert.Equal(t, i, tk.Index)
			assert.Equal(t, offset, tk.CharStart)
			assert.Greater(t, tk.CharEnd, tk.CharStart)
			offset = tk.CharEnd
		}
		assert.Equal(t, len([]rune(text)), offset)
	})

	t.Run("dictionary readings in katakana", func(t *testing.T) {
		readings := map[string]string{}
		for _, tk := range tokens {
			readings[tk.Surface] = tk.ReadingMecab
		}
		assert.Equal(t, "キョウ", readings["今日"])
		assert.Equal(t, "トウキョウ", readings["東京"])
	})
}

func TestTokenizeSilenceTags(t *testing.T) {
	tok := newTestTokenizer(t)

	tokens, err := tok.Tokenize("こんにちは[2]さようなら[1.5s]")
	require.NoError(t, err)

	var silences []Token
	var sb strings.Builder
	for _, tk := range tokens {
		sb.WriteString(tk.Surface)
		if tk.IsSilence() {
			silences = append(silences, tk)
		}
	}

	assert.Equal(t, "こんにちは[2]さようなら[1.5s]", sb.String())
	require.Len(t, silences, 2)
	assert.Equal(t, "[2]", silences[0].Surface)
	assert.Equal(t, "", silences[0].ReadingMecab)
	assert.Equal(t, PosSilenceTag, silences[0].POS)
	assert.Equal(t, "[1.5s]", silences[1].Surface)
}

func TestTokenizeWhitespace(t *testing.T) {
	tok := newTestTokenizer(t)

	text := "こんにちは 世界\nまた明日"
	tokens, err := tok.Tokenize(text)
	require.NoError(t, err)

	var sb strings.Builder
	offset := 0
	for _, tk := range tokens {
		sb.WriteString(tk.Surface)
		assert.Equal(t, offset, tk.CharStart)
		offset = tk.CharEnd
	}
	assert.Equal(t, text, sb.String(), "whitespace survives as gap tokens")
}

func TestTokenizeEmpty(t *testing.T) {
	tok := newTestTokenizer(t)

	tokens, err := tok.Tokenize("")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
