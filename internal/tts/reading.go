package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/daideguchi/yomiage/internal/engine"
)

// kanaQueryBudget is the soft per-request size for engine reading
// queries. Longer texts are split on sentence boundaries first.
const kanaQueryBudget = 80

// BuildKanaEngine obtains the second pronunciation hypothesis for the
// whole text. VOICEVOX-family engines are asked for their own kana;
// narrator engines without a phonetic query fall back to the
// concatenated dictionary readings. Raw readings stay unnormalized; the
// normalized form is for comparison only.
func BuildKanaEngine(ctx context.Context, eng engine.Engine, text string, tokens []Token) (KanaEngine, error) {
	raw, err := engineReading(ctx, eng, text)
	if errors.Is(err, engine.ErrReadingUnsupported) {
		raw = mecabReading(tokens)
		return KanaEngine{
			Raw:           raw,
			Normalized:    NormalizeKana(raw),
			ReadingSource: "mecab",
		}, nil
	}
	if err != nil {
		return KanaEngine{}, err
	}
	return KanaEngine{
		Raw:           raw,
		Normalized:    NormalizeKana(raw),
		ReadingSource: string(eng.Kind()),
	}, nil
}

func engineReading(ctx context.Context, eng engine.Engine, text string) (string, error) {
	if utf8.RuneCountInString(text) <= kanaQueryBudget {
		reading, err := eng.GetReading(ctx, text)
		if err == nil || errors.Is(err, engine.ErrReadingUnsupported) {
			return reading, err
		}
		log.Warn().Err(err).Msg("Single-shot reading query failed, retrying chunk-wise")
	}
	return chunkedReading(ctx, eng, text)
}

// chunkedReading queries the engine per chunk and joins the readings
// with a single space. Individual chunk failures are logged and skipped;
// only a fully failed run is an error.
func chunkedReading(ctx context.Context, eng engine.Engine, text string) (string, error) {
	chunks := splitForQuery(text, kanaQueryBudget)
	readings := make([]string, 0, len(chunks))
	var lastErr error

	for i, chunk := range chunks {
		reading, err := eng.GetReading(ctx, chunk)
		if errors.Is(err, engine.ErrReadingUnsupported) {
			return "", err
		}
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("chunk", i).Msg("Reading query failed for chunk")
			continue
		}
		readings = append(readings, reading)
	}

	if len(readings) == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("engine reading failed for every chunk: %w", lastErr)
		}
		return "", nil
	}
	return strings.Join(readings, " "), nil
}

// splitForQuery splits text on sentence-ending punctuation into chunks
// of at most budget runes, slicing fixed-width through unpunctuated
// runs.
func splitForQuery(text string, budget int) []string {
	var sentences []string
	var cur []rune
	for _, r := range text {
		cur = append(cur, r)
		if isSentenceEnder(r) {
			sentences = append(sentences, string(cur))
			cur = nil
		}
	}
	if len(cur) > 0 {
		sentences = append(sentences, string(cur))
	}

	var chunks []string
	var buf []rune
	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, string(buf))
			buf = nil
		}
	}
	for _, s := range sentences {
		rs := []rune(s)
		if len(rs) > budget {
			flush()
			for len(rs) > budget {
				chunks = append(chunks, string(rs[:budget]))
				rs = rs[budget:]
			}
			buf = rs
			continue
		}
		if len(buf)+len(rs) > budget {
			flush()
		}
		buf = append(buf, rs...)
	}
	flush()
	return chunks
}

// mecabReading concatenates each token's dictionary reading, falling
// back to the surface for tokens without one. Silence pseudo-tokens are
// not prose and contribute nothing.
func mecabReading(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		if tok.IsSilence() {
			continue
		}
		if tok.ReadingMecab != "" {
			sb.WriteString(tok.ReadingMecab)
		} else {
			sb.WriteString(tok.Surface)
		}
	}
	return sb.String()
}
