package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotations(t *testing.T) {
	tokens := makeTokens([][3]string{
		{"今日", "キョウ", "名詞"},
		{"は", "ハ", "助詞"},
	})

	t.Run("valid response", func(t *testing.T) {
		data := []byte(`{"token_annotations":[{"index":0,"surface":"今日","llm_reading_kana":"キョウ","write_mode":"hiragana","risk_level":2}]}`)
		anns, err := ParseAnnotations(data, tokens)
		require.NoError(t, err)
		require.Len(t, anns, 1)
		assert.Equal(t, 0, anns[0].Index)
		assert.Equal(t, "キョウ", anns[0].LLMReadingKana)
		assert.Equal(t, WriteHiragana, anns[0].WriteMode)
		assert.Equal(t, 2, anns[0].RiskLevel)
	})

	t.Run("missing index is rejected", func(t *testing.T) {
		_, err := ParseAnnotations([]byte(`{"token_annotations":[{}]}`), tokens)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index")
	})

	t.Run("index zero is not missing", func(t *testing.T) {
		data := []byte(`{"token_annotations":[{"index":0}]}`)
		anns, err := ParseAnnotations(data, tokens)
		require.NoError(t, err)
		assert.Equal(t, 0, anns[0].Index)
	})

	t.Run("unknown index is rejected", func(t *testing.T) {
		_, err := ParseAnnotations([]byte(`{"token_annotations":[{"index":99}]}`), tokens)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown token index")
	})

	t.Run("invalid write_mode is rejected", func(t *testing.T) {
		data := []byte(`{"token_annotations":[{"index":0,"write_mode":"romaji"}]}`)
		_, err := ParseAnnotations(data, tokens)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "write_mode")
	})

	t.Run("empty write_mode defaults to original", func(t *testing.T) {
		data := []byte(`{"token_annotations":[{"index":0}]}`)
		anns, err := ParseAnnotations(data, tokens)
		require.NoError(t, err)
		assert.Equal(t, WriteOriginal, anns[0].WriteMode)
	})

	t.Run("reading fallback chain", func(t *testing.T) {
		data := []byte(`{"token_annotations":[{"index":0,"reading":"コンニチ"}]}`)
		anns, err := ParseAnnotations(data, tokens)
		require.NoError(t, err)
		assert.Equal(t, "コンニチ", anns[0].LLMReadingKana, "legacy reading field accepted")

		data = []byte(`{"token_annotations":[{"index":0}]}`)
		anns, err = ParseAnnotations(data, tokens)
		require.NoError(t, err)
		assert.Equal(t, "キョウ", anns[0].LLMReadingKana, "dictionary reading as last resort")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseAnnotations([]byte(`not json`), tokens)
		assert.Error(t, err)
	})
}

func TestBuildAnnotationPayload(t *testing.T) {
	tokens := makeTokens([][3]string{
		{"今日", "キョウ", "名詞"},
		{"は", "ハ", "助詞"},
		{"今日", "キョウ", "名詞"},
	})
	requests := []LLMRequest{
		{Kind: RequestVocabulary, Surface: "今日", TokenIndexes: []int{0, 2}},
		{Kind: RequestOccurrence, Surface: "今日", TokenIndexes: []int{0}},
	}
	engine := KanaEngine{Normalized: "キョウハキョウ"}

	payload := BuildAnnotationPayload("今日は今日", tokens, requests, engine)

	assert.Equal(t, "今日は今日", payload.OriginalText)
	assert.Equal(t, "キョウハキョウ", payload.KanaEngineNormalized)
	require.Len(t, payload.Tokens, 2, "token indexes deduplicated across requests")
	assert.Equal(t, 0, payload.Tokens[0].Index)
	assert.Equal(t, 2, payload.Tokens[1].Index)
	assert.Equal(t, "vocabulary", payload.Tokens[0].Reason)
}
