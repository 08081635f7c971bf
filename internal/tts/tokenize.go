package tts

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// ErrTokenizerUnavailable is returned when the morphological analyzer's
// dictionary cannot be loaded. Tests treat this as skippable.
var ErrTokenizerUnavailable = errors.New("morphological analyzer unavailable")

// Tokenizer segments preprocessed A-text into offset-annotated tokens.
// It is safe for reuse across pipeline runs.
type Tokenizer struct {
	kg *tokenizer.Tokenizer
}

var (
	sharedTokenizer *Tokenizer
	sharedTokErr    error
	tokenizerOnce   sync.Once
)

// NewTokenizer loads the IPA dictionary once per process and returns a
// shared tokenizer. The dictionary load is the expensive part; kagome
// itself is stateless per call.
func NewTokenizer() (*Tokenizer, error) {
	tokenizerOnce.Do(func() {
		kg, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
		if err != nil {
			sharedTokErr = fmt.Errorf("%w: %v", ErrTokenizerUnavailable, err)
			return
		}
		sharedTokenizer = &Tokenizer{kg: kg}
	})
	return sharedTokenizer, sharedTokErr
}

// Tokenize segments text into an ordered, offset-contiguous token
// sequence. Inline silence directives are split out before the analyzer
// sees the text, so each directive becomes a single token with
// POS=silence_tag and no reading instead of being read as prose.
func (t *Tokenizer) Tokenize(text string) ([]Token, error) {
	if t == nil || t.kg == nil {
		return nil, ErrTokenizerUnavailable
	}

	var tokens []Token
	offset := 0
	index := 0

	appendToken := func(surface, reading, pos string) {
		n := utf8.RuneCountInString(surface)
		tokens = append(tokens, Token{
			Index:        index,
			Surface:      surface,
			CharStart:    offset,
			CharEnd:      offset + n,
			ReadingMecab: reading,
			POS:          pos,
		})
		index++
		offset += n
	}

	for _, part := range splitAtSilenceTags(text) {
		if part.isTag {
			appendToken(part.text, "", PosSilenceTag)
			continue
		}
		// The analyzer may skip whitespace; resync against the source so
		// that token surfaces concatenate back to the exact input.
		rest := part.text
		for _, kt := range t.kg.Tokenize(part.text) {
			if idx := strings.Index(rest, kt.Surface); idx > 0 {
				appendToken(rest[:idx], "", "記号,空白")
				rest = rest[idx:]
			}
			reading, ok := kt.Reading()
			if !ok || reading == "*" {
				reading = ""
			}
			appendToken(kt.Surface, reading, strings.Join(kt.POS(), ","))
			rest = rest[len(kt.Surface):]
		}
		if rest != "" {
			appendToken(rest, "", "記号,空白")
		}
	}

	return tokens, nil
}

type textPart struct {
	text  string
	isTag bool
}

func splitAtSilenceTags(text string) []textPart {
	var parts []textPart
	last := 0
	for _, loc := range silenceTagRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			parts = append(parts, textPart{text: text[last:loc[0]]})
		}
		parts = append(parts, textPart{text: text[loc[0]:loc[1]], isTag: true})
		last = loc[1]
	}
	if last < len(text) {
		parts = append(parts, textPart{text: text[last:]})
	}
	return parts
}
