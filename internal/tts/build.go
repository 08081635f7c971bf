package tts

import (
	"fmt"
	"strings"
)

// BuildBText reconstructs the surface text into synthesis-ready B-text by
// applying each token's write-mode decision, and returns the full
// replacement log. Tokens without an annotation keep their surface
// verbatim; silence tokens are never rewritten. The log is gap-free:
// original fragments concatenate back to aText, replaced fragments
// concatenate to the returned B-text.
func BuildBText(aText string, tokens []Token, annotations []Annotation) (string, []BuildLogEntry, error) {
	byIndex := make(map[int]Annotation, len(annotations))
	for _, ann := range annotations {
		byIndex[ann.Index] = ann
	}

	var b strings.Builder
	entries := make([]BuildLogEntry, 0, len(tokens))

	for i, tok := range tokens {
		replaced := tok.Surface
		if ann, ok := byIndex[tok.Index]; ok && !tok.IsSilence() {
			replaced = renderAnnotation(tok, ann)
		}
		entries = append(entries, BuildLogEntry{
			Index:            i,
			TokenIndex:       tok.Index,
			OriginalFragment: tok.Surface,
			ReplacedFragment: replaced,
			CharStart:        tok.CharStart,
			CharEnd:          tok.CharEnd,
		})
		b.WriteString(replaced)
	}

	bText := b.String()
	if err := verifyBuildLog(aText, bText, entries); err != nil {
		return "", nil, err
	}
	return bText, entries, nil
}

func renderAnnotation(tok Token, ann Annotation) string {
	reading := ann.LLMReadingKana
	if reading == "" {
		reading = tok.ReadingMecab
	}
	switch ann.WriteMode {
	case WriteHiragana:
		if reading == "" {
			return tok.Surface
		}
		return KatakanaToHiragana(reading)
	case WriteKatakana:
		if reading == "" {
			return tok.Surface
		}
		return HiraganaToKatakana(reading)
	default:
		return tok.Surface
	}
}

// verifyBuildLog enforces the audit round-trip. A mismatch means the
// tokenizer produced non-contiguous offsets or the builder dropped a
// fragment; both are bugs, not runtime conditions.
func verifyBuildLog(aText, bText string, entries []BuildLogEntry) error {
	var orig, repl strings.Builder
	for _, e := range entries {
		orig.WriteString(e.OriginalFragment)
		repl.WriteString(e.ReplacedFragment)
	}
	if orig.String() != aText {
		return fmt.Errorf("build log invariant violated: original fragments do not reproduce the source text")
	}
	if repl.String() != bText {
		return fmt.Errorf("build log invariant violated: replaced fragments do not reproduce the synthesis text")
	}
	return nil
}

// sentence-ending punctuation used as preferred chunk boundaries.
func isSentenceEnder(r rune) bool {
	switch r {
	case '。', '！', '？', '!', '?', '\n':
		return true
	}
	return false
}

// ChunkBText splits synthesis text into chunks of at most maxLen runes,
// preferring the last sentence-ending punctuation mark within the window
// and force-splitting at exactly maxLen when no boundary exists.
func ChunkBText(text string, maxLen int) []string {
	if maxLen <= 0 || text == "" {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}
		cut := -1
		for i := maxLen - 1; i >= 0; i-- {
			if isSentenceEnder(runes[i]) {
				cut = i + 1
				break
			}
		}
		if cut <= 0 {
			cut = maxLen
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}
