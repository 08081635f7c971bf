package tts

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// NormalizeKana strips the formatting noise VOICEVOX and the dictionary
// disagree on (accent apostrophes, phrase slashes, Japanese commas,
// whitespace) and folds half-width kana, so two readings can be compared
// for semantic equality. Raw readings are stored unnormalized; this is
// applied at comparison time only.
func NormalizeKana(s string) string {
	s = width.Fold.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\'', '/', '、', '，', ',':
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KatakanaToHiragana converts katakana runes to hiragana, leaving
// everything else untouched. ヴ and the small ヵ/ヶ have hiragana
// counterparts in the same block and convert cleanly.
func KatakanaToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - 0x60
		}
		return r
	}, s)
}

// HiraganaToKatakana converts hiragana runes to katakana, leaving
// everything else untouched.
func HiraganaToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + 0x60
		}
		return r
	}, s)
}

// IsKana reports whether every rune of s is hiragana, katakana or the
// long-vowel mark.
func IsKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == 'ー' {
			continue
		}
		if (r >= 'ぁ' && r <= 'ゖ') || (r >= 'ァ' && r <= 'ヶ') {
			continue
		}
		return false
	}
	return true
}
