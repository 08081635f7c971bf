package tts

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// SRTEntry is one subtitle block, kept for the JSON log alongside the
// rendered file.
type SRTEntry struct {
	Index    int     `json:"index"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// BuildSRTEntries walks the segments with a running cursor: a segment's
// display interval starts after its pre-pause and lasts its measured
// duration; the cursor then advances past the post-pause. An entry whose
// end precedes its start indicates broken timing arithmetic and is a
// fatal invariant violation, never clamped.
func BuildSRTEntries(segments []AudioSegment) ([]SRTEntry, error) {
	entries := make([]SRTEntry, 0, len(segments))
	cursor := 0.0

	for i, seg := range segments {
		start := cursor + seg.PrePauseSec
		end := start + seg.DurationSec
		if end < start {
			return nil, fmt.Errorf("srt invariant violated: segment %d ends at %.3f before its start %.3f", i, end, start)
		}
		entries = append(entries, SRTEntry{
			Index:    i + 1,
			StartSec: start,
			EndSec:   end,
			Text:     seg.Text,
		})
		cursor += seg.PrePauseSec + seg.DurationSec + seg.PostPauseSec
	}
	return entries, nil
}

// FormatSRT renders entries as standard SubRip text.
func FormatSRT(entries []SRTEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			e.Index, formatSRTTime(e.StartSec), formatSRTTime(e.EndSec), e.Text)
	}
	return sb.String()
}

// GenerateSRT writes the subtitle file for the segment list.
func GenerateSRT(segments []AudioSegment, outPath string) ([]SRTEntry, error) {
	entries, err := BuildSRTEntries(segments)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, []byte(FormatSRT(entries)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write srt file: %w", err)
	}
	return entries, nil
}

// formatSRTTime renders seconds as HH:MM:SS,mmm.
func formatSRTTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
