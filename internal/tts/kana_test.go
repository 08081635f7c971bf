package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKana(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "accent and phrase marks stripped",
			input:    "テ/ス'ト、 ",
			expected: "テスト",
		},
		{
			name:     "half-width kana folded",
			input:    "ﾃｽﾄ",
			expected: "テスト",
		},
		{
			name:     "commas and whitespace stripped",
			input:    "ア，イ,ウ エ\tオ",
			expected: "アイウエオ",
		},
		{
			name:     "plain reading unchanged",
			input:    "キョウハハレ",
			expected: "キョウハハレ",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeKana(tt.input))
		})
	}
}

func TestKanaConversion(t *testing.T) {
	t.Run("katakana to hiragana", func(t *testing.T) {
		assert.Equal(t, "きょう", KatakanaToHiragana("キョウ"))
		assert.Equal(t, "こーひー", KatakanaToHiragana("コーヒー"), "long-vowel mark untouched")
		assert.Equal(t, "漢字まじり", KatakanaToHiragana("漢字マジリ"))
	})

	t.Run("hiragana to katakana", func(t *testing.T) {
		assert.Equal(t, "キョウ", HiraganaToKatakana("きょう"))
		assert.Equal(t, "ヴ", HiraganaToKatakana("ゔ"))
	})

	t.Run("round trip", func(t *testing.T) {
		assert.Equal(t, "キョオ", HiraganaToKatakana(KatakanaToHiragana("キョオ")))
	})
}

func TestIsKana(t *testing.T) {
	assert.True(t, IsKana("キョウ"))
	assert.True(t, IsKana("きょう"))
	assert.True(t, IsKana("コーヒー"))
	assert.False(t, IsKana("今日"))
	assert.True(t, IsKana("キョウは"), "mixed kana scripts still count")
	assert.False(t, IsKana("キョウ1"))
	assert.False(t, IsKana(""))
}
