package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTrivialDiff(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{name: "identical", a: "キョウ", b: "キョウ", expected: true},
		{name: "long vowel variant", a: "キョウ", b: "キョオ", expected: true},
		{name: "particle ha vs wa", a: "ワタシハ", b: "ワタシワ", expected: true},
		{name: "meaning change is not trivial", a: "ツライ", b: "カライ", expected: false},
		{name: "length mismatch", a: "アイ", b: "アイウ", expected: false},
		{name: "two substitutions", a: "キョウハ", b: "キョオワ", expected: false},
		{name: "arbitrary substitution", a: "アカ", b: "アサ", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTrivialDiff(tt.a, tt.b))
		})
	}
}

func TestContainsTrivial(t *testing.T) {
	assert.True(t, containsTrivial("キョウハハレ", "キョウハ"))
	assert.True(t, containsTrivial("キョオハハレ", "キョウハ"), "harmless variant inside the haystack")
	assert.False(t, containsTrivial("カライデス", "ツライ"))
	assert.False(t, containsTrivial("ア", "アイウ"), "needle longer than haystack")
}

// makeTokens builds a token slice with contiguous offsets from
// (surface, reading, pos) triples.
func makeTokens(triples [][3]string) []Token {
	var tokens []Token
	offset := 0
	for i, s := range triples {
		n := len([]rune(s[0]))
		tokens = append(tokens, Token{
			Index:        i,
			Surface:      s[0],
			CharStart:    offset,
			CharEnd:      offset + n,
			ReadingMecab: s[1],
			POS:          s[2],
		})
		offset += n
	}
	return tokens
}

func TestSplitBlocks(t *testing.T) {
	tokens := makeTokens([][3]string{
		{"今日", "キョウ", "名詞"},
		{"。", "。", "記号"},
		{"[2]", "", PosSilenceTag},
		{"明日", "アシタ", "名詞"},
	})

	blocks := SplitBlocks(tokens)
	require.Len(t, blocks, 2)
	assert.Len(t, blocks[0].Tokens, 2)
	assert.Equal(t, "明日", blocks[1].Tokens[0].Surface)
}

func TestScoreRisk(t *testing.T) {
	t.Run("hazard surface always flagged", func(t *testing.T) {
		tokens := makeTokens([][3]string{
			{"今日", "キョウ", "名詞"},
			{"は", "ハ", "助詞"},
			{"晴れ", "ハレ", "名詞"},
		})
		engine := KanaEngine{Normalized: "キョウハハレ", ReadingSource: "voicevox"}

		spans := ScoreRisk(tokens, engine)
		require.Len(t, spans, 1)
		assert.Equal(t, 0, spans[0].TokenIndex)
		assert.Equal(t, 1.0, spans[0].RiskScore)
		assert.Equal(t, "hazard:今日", spans[0].Reason)
	})

	t.Run("block disagreement flags non-kana tokens", func(t *testing.T) {
		tokens := makeTokens([][3]string{
			{"東京", "トウキョウ", "名詞"},
			{"です", "デス", "助動詞"},
		})
		engine := KanaEngine{Normalized: "チガウヨミデス", ReadingSource: "voicevox"}

		spans := ScoreRisk(tokens, engine)
		require.Len(t, spans, 1)
		assert.Equal(t, "東京", spans[0].Surface)
		assert.Equal(t, 0.6, spans[0].RiskScore)
		assert.Equal(t, "block_diff", spans[0].Reason)
	})

	t.Run("trivial variant is not a disagreement", func(t *testing.T) {
		tokens := makeTokens([][3]string{
			{"東京", "トウキョウ", "名詞"},
		})
		engine := KanaEngine{Normalized: "トーキョウ", ReadingSource: "voicevox"}

		spans := ScoreRisk(tokens, engine)
		assert.Empty(t, spans)
	})

	t.Run("hazards sort before block diffs", func(t *testing.T) {
		tokens := makeTokens([][3]string{
			{"東京", "トウキョウ", "名詞"},
			{"。", "。", "記号"},
			{"今日", "キョウ", "名詞"},
		})
		engine := KanaEngine{Normalized: "ゼンゼンチガウ", ReadingSource: "voicevox"}

		spans := ScoreRisk(tokens, engine)
		require.NotEmpty(t, spans)
		assert.Equal(t, "今日", spans[0].Surface)
	})
}

func TestBuildLLMRequests(t *testing.T) {
	tokens := makeTokens([][3]string{
		{"今日", "キョウ", "名詞"},
		{"は", "ハ", "助詞"},
		{"。", "。", "記号"},
		{"今日", "キョウ", "名詞"},
		{"も", "モ", "助詞"},
		{"。", "。", "記号"},
	})
	spans := []RiskySpan{
		{BlockID: 0, TokenIndex: 0, Surface: "今日", RiskScore: 1.0, Reason: "hazard:今日"},
		{BlockID: 1, TokenIndex: 3, Surface: "今日", RiskScore: 1.0, Reason: "hazard:今日"},
		{BlockID: 1, TokenIndex: 4, Surface: "も", RiskScore: 0.6, Reason: "block_diff"},
	}

	t.Run("hazard occurrences collapse into one vocabulary request", func(t *testing.T) {
		requests := BuildLLMRequests(spans, tokens, DefaultRiskConfig())
		require.Len(t, requests, 2)

		assert.Equal(t, RequestVocabulary, requests[0].Kind)
		assert.Equal(t, "今日", requests[0].Surface)
		assert.Equal(t, []int{0, 3}, requests[0].TokenIndexes)
		assert.Equal(t, []string{"今日は。", "今日も。"}, requests[0].Examples)

		assert.Equal(t, RequestOccurrence, requests[1].Kind)
		assert.Equal(t, []int{4}, requests[1].TokenIndexes)
	})

	t.Run("example count is capped", func(t *testing.T) {
		requests := BuildLLMRequests(spans, tokens, RiskConfig{MaxExamples: 1, MaxRequests: 40})
		require.NotEmpty(t, requests)
		assert.Len(t, requests[0].Examples, 1)
	})

	t.Run("request count is capped by score", func(t *testing.T) {
		requests := BuildLLMRequests(spans, tokens, RiskConfig{MaxExamples: 3, MaxRequests: 1})
		require.Len(t, requests, 1)
		assert.Equal(t, RequestVocabulary, requests[0].Kind)
	})

	t.Run("interleaved hazard surfaces keep accumulating", func(t *testing.T) {
		tokens := makeTokens([][3]string{
			{"今日", "キョウ", "名詞"},
			{"は", "ハ", "助詞"},
			{"。", "。", "記号"},
			{"明日", "アシタ", "名詞"},
			{"は", "ハ", "助詞"},
			{"。", "。", "記号"},
			{"今日", "キョウ", "名詞"},
			{"も", "モ", "助詞"},
			{"。", "。", "記号"},
		})
		spans := []RiskySpan{
			{BlockID: 0, TokenIndex: 0, Surface: "今日", RiskScore: 1.0, Reason: "hazard:今日"},
			{BlockID: 1, TokenIndex: 3, Surface: "明日", RiskScore: 1.0, Reason: "hazard:明日"},
			{BlockID: 2, TokenIndex: 6, Surface: "今日", RiskScore: 1.0, Reason: "hazard:今日"},
		}

		requests := BuildLLMRequests(spans, tokens, DefaultRiskConfig())
		require.Len(t, requests, 2)

		bySurface := map[string][]int{}
		for _, req := range requests {
			bySurface[req.Surface] = req.TokenIndexes
		}
		assert.Equal(t, []int{0, 6}, bySurface["今日"])
		assert.Equal(t, []int{3}, bySurface["明日"])
	})
}
