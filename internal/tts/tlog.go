package tts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// AudioInfo describes the assembled track.
type AudioInfo struct {
	WavPath     string  `json:"wav_path"`
	SampleRate  int     `json:"sample_rate"`
	DurationSec float64 `json:"duration_sec"`
}

// TTSLog is the structured provenance record of one pipeline run. It is
// sufficient to reconstruct why any given word was pronounced the way it
// was without re-running the annotator.
type TTSLog struct {
	Channel        string            `json:"channel"`
	VideoNo        string            `json:"video_no"`
	ScriptID       string            `json:"script_id"`
	Engine         string            `json:"engine"`
	AText          string            `json:"a_text"`
	BText          string            `json:"b_text"`
	Tokens         []Token           `json:"tokens"`
	KanaEngine     KanaEngine        `json:"kana_engine"`
	RiskySpans     []RiskySpan       `json:"risky_spans,omitempty"`
	Annotations    []Annotation      `json:"annotations"`
	BTextBuildLog  []BuildLogEntry   `json:"b_text_build_log"`
	Segments       []AudioSegment    `json:"segments"`
	Audio          AudioInfo         `json:"audio"`
	EngineMetadata map[string]string `json:"engine_metadata,omitempty"`
	Meta           *PreprocessMeta   `json:"meta,omitempty"`
	QAIssues       []QAIssue         `json:"qa_issues,omitempty"`
	SRTEntries     []SRTEntry        `json:"srt_entries,omitempty"`
}

// SaveTTSLog persists the log plus the sibling convenience files the
// review UI reads (a_text.txt, b_text.txt, tokens.json) into dir.
// Files are written only after the run completed; a failed run leaves no
// partial "final" artifacts behind.
func SaveTTSLog(dir string, tlog *TTSLog) (string, error) {
	logPath := filepath.Join(dir, "tts_log.json")

	data, err := json.MarshalIndent(tlog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tts log: %w", err)
	}
	if err := os.WriteFile(logPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write tts log: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a_text.txt"), []byte(tlog.AText), 0o644); err != nil {
		return "", fmt.Errorf("failed to write a_text: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b_text.txt"), []byte(tlog.BText), 0o644); err != nil {
		return "", fmt.Errorf("failed to write b_text: %w", err)
	}

	tokensData, err := json.MarshalIndent(tlog.Tokens, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tokens: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tokens.json"), tokensData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write tokens: %w", err)
	}

	log.Debug().Str("path", logPath).Msg("TTS log written")
	return logPath, nil
}

// CheckSegments runs the post-assembly QA pass: empty display text, zero
// measured duration and implausible pause values are recorded, not
// fixed.
func CheckSegments(segments []AudioSegment) []QAIssue {
	var issues []QAIssue
	for i, seg := range segments {
		if seg.Text == "" {
			issues = append(issues, QAIssue{SegmentIndex: i, Kind: "empty_text", Detail: "segment has no display text"})
		}
		if seg.DurationSec <= 0 {
			issues = append(issues, QAIssue{SegmentIndex: i, Kind: "zero_duration", Detail: "measured duration is not positive"})
		}
		if seg.PrePauseSec < 0 || seg.PostPauseSec < 0 {
			issues = append(issues, QAIssue{SegmentIndex: i, Kind: "negative_pause", Detail: "pause durations must be non-negative"})
		}
		if seg.PrePauseSec > 30 || seg.PostPauseSec > 30 {
			issues = append(issues, QAIssue{
				SegmentIndex: i,
				Kind:         "suspicious_pause",
				Detail:       fmt.Sprintf("pause of %.1fs looks like a typo in a silence directive", maxFloat(seg.PrePauseSec, seg.PostPauseSec)),
			})
		}
	}
	return issues
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
