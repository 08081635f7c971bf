package tts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PreprocessOptions controls the optional transforms applied to A-text.
type PreprocessOptions struct {
	// StripMarkdown removes lightweight markup: heading hashes, list
	// bullets and bold/code delimiters. Headings are recorded in the
	// meta before their markers are removed.
	StripMarkdown bool
}

var (
	silenceTagRe   = regexp.MustCompile(`\[([0-9]+(?:\.[0-9]+)?)(s)?\]`)
	headingRe      = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe       = regexp.MustCompile(`^(\s*)(?:[-*+]|\d+\.)\s+`)
	boldRe         = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	inlineCodeRe   = regexp.MustCompile("`([^`]*)`")
	shortQuoteRe   = regexp.MustCompile(`「([^「」]{1,18})」`)
	quotePunctRe   = regexp.MustCompile(`[、。！？!?・…，,.]`)
)

// Preprocess cleans raw A-text for tokenization. It strips a leading BOM
// and surrounding whitespace, optionally removes lightweight markup,
// collapses short bracketed quotations, and records control characters
// and inline silence directives without touching them. Pure; no I/O.
func Preprocess(raw string, opts PreprocessOptions) (string, *PreprocessMeta) {
	meta := &PreprocessMeta{}

	text := strings.TrimPrefix(raw, "\uFEFF")
	text = strings.TrimSpace(text)

	if opts.StripMarkdown {
		text = stripMarkdown(text, meta)
	}

	text = collapseShortQuotes(text)

	scanControlChars(text, meta)
	scanSilenceTags(text, meta)

	return text, meta
}

func stripMarkdown(text string, meta *PreprocessMeta) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			meta.Headings = append(meta.Headings, Heading{LineIndex: i, Level: len(m[1])})
			line = m[2]
		}
		line = bulletRe.ReplaceAllString(line, "$1")
		line = boldRe.ReplaceAllString(line, "$1$2")
		line = inlineCodeRe.ReplaceAllString(line, "$1")
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// collapseShortQuotes removes the bracket characters around quotations of
// at most six runes with no internal punctuation. Longer or punctuated
// quotations keep their brackets; the synthesis engine treats those as
// deliberate pauses.
func collapseShortQuotes(text string) string {
	return shortQuoteRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(m, "「"), "」")
		if utf8.RuneCountInString(inner) > 6 {
			return m
		}
		if quotePunctRe.MatchString(inner) {
			return m
		}
		return inner
	})
}

func scanControlChars(text string, meta *PreprocessMeta) {
	pos := 0
	for _, r := range text {
		if isControlChar(r) {
			meta.ControlChars = append(meta.ControlChars, ControlCharWarning{
				Position:  pos,
				CodePoint: fmt.Sprintf("U+%04X", r),
			})
		}
		pos++
	}
}

// isControlChar reports C0/C1 control characters excluding tab, newline
// and carriage return.
func isControlChar(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return (r >= 0x00 && r <= 0x1F) || (r >= 0x80 && r <= 0x9F)
}

func scanSilenceTags(text string, meta *PreprocessMeta) {
	for _, loc := range silenceTagRe.FindAllStringSubmatchIndex(text, -1) {
		tag := text[loc[0]:loc[1]]
		secs, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		meta.SilenceTags = append(meta.SilenceTags, SilenceTag{
			Tag:       tag,
			Seconds:   secs,
			CharStart: utf8.RuneCountInString(text[:loc[0]]),
			CharEnd:   utf8.RuneCountInString(text[:loc[1]]),
		})
	}
}
