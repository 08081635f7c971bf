package tts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSRTEntries(t *testing.T) {
	segments := []AudioSegment{
		{Text: "一つ目", PrePauseSec: 0.5, DurationSec: 2.0},
		{Text: "二つ目", PrePauseSec: 1.0, DurationSec: 3.0},
	}

	entries, err := BuildSRTEntries(segments)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].Index)
	assert.InDelta(t, 0.5, entries[0].StartSec, 1e-9)
	assert.InDelta(t, 2.5, entries[0].EndSec, 1e-9)

	assert.Equal(t, 2, entries[1].Index)
	assert.InDelta(t, 3.5, entries[1].StartSec, 1e-9)
	assert.InDelta(t, 6.5, entries[1].EndSec, 1e-9)
}

func TestBuildSRTEntriesPostPause(t *testing.T) {
	segments := []AudioSegment{
		{Text: "見出し", DurationSec: 1.0, PostPauseSec: 0.5},
		{Text: "本文", DurationSec: 2.0},
	}

	entries, err := BuildSRTEntries(segments)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, entries[1].StartSec, 1e-9, "post-pause shifts the next entry")
	assert.InDelta(t, 3.5, entries[1].EndSec, 1e-9)
}

func TestBuildSRTEntriesInvariant(t *testing.T) {
	segments := []AudioSegment{
		{Text: "壊れた", DurationSec: -1.0},
	}

	_, err := BuildSRTEntries(segments)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invariant")
}

func TestFormatSRT(t *testing.T) {
	entries := []SRTEntry{
		{Index: 1, StartSec: 0.5, EndSec: 2.5, Text: "こんにちは"},
		{Index: 2, StartSec: 3661.25, EndSec: 3662.0, Text: "さようなら"},
	}

	out := FormatSRT(entries)
	assert.Contains(t, out, "1\n00:00:00,500 --> 00:00:02,500\nこんにちは\n\n")
	assert.Contains(t, out, "2\n01:01:01,250 --> 01:01:02,000\nさようなら\n\n")
}

func TestGenerateSRT(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "output.srt")
	segments := []AudioSegment{
		{Text: "テスト", DurationSec: 1.0},
	}

	entries, err := GenerateSRT(segments, outPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "テスト")
}
