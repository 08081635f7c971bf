package tts

// PosSilenceTag marks a pseudo-token injected for an inline silence
// directive. Silence tokens carry no reading and are never rewritten.
const PosSilenceTag = "silence_tag"

// Token is one morphologically segmented unit of the preprocessed text.
// Offsets are rune offsets, half-open, and contiguous across ordinary
// tokens: CharEnd of token i equals CharStart of token i+1.
type Token struct {
	Index        int    `json:"index"`
	Surface      string `json:"surface"`
	CharStart    int    `json:"char_start"`
	CharEnd      int    `json:"char_end"`
	ReadingMecab string `json:"reading_mecab"`
	POS          string `json:"pos"`
}

// IsSilence reports whether the token is an injected silence directive.
func (t Token) IsSilence() bool {
	return t.POS == PosSilenceTag
}

// WriteMode selects the script used to render a token's replacement.
type WriteMode string

const (
	WriteOriginal WriteMode = "original"
	WriteHiragana WriteMode = "hiragana"
	WriteKatakana WriteMode = "katakana"
)

// Annotation is one decision about how a token's pronunciation is
// rendered, produced by the LLM annotator or defaulted to the original
// surface when no risk was flagged.
type Annotation struct {
	Index          int       `json:"index"`
	Surface        string    `json:"surface"`
	LLMReadingKana string    `json:"llm_reading_kana"`
	WriteMode      WriteMode `json:"write_mode"`
	RiskLevel      int       `json:"risk_level"`
	Reason         string    `json:"reason,omitempty"`
}

// RiskySpan is a flagged disagreement between the dictionary reading and
// the engine reading for one token. RiskScore orders adjudication
// priority when request volume is capped.
type RiskySpan struct {
	BlockID    int     `json:"block_id"`
	TokenIndex int     `json:"token_index"`
	Surface    string  `json:"surface"`
	RiskScore  float64 `json:"risk_score"`
	Reason     string  `json:"reason"`
}

// BuildLogEntry records one character-span replacement performed while
// constructing the B-text. Concatenating ReplacedFragment values in index
// order reproduces the B-text exactly; concatenating OriginalFragment
// values reproduces the A-text exactly.
type BuildLogEntry struct {
	Index            int    `json:"index"`
	TokenIndex       int    `json:"token_index"`
	OriginalFragment string `json:"original_fragment"`
	ReplacedFragment string `json:"replaced_fragment"`
	CharStart        int    `json:"char_start"`
	CharEnd          int    `json:"char_end"`
}

// ArbiterVerdict names the resolved source of truth for one segment's
// pronunciation.
type ArbiterVerdict string

const (
	VerdictMecab    ArbiterVerdict = "mecab"
	VerdictVoicevox ArbiterVerdict = "voicevox"
	VerdictLLMFixed ArbiterVerdict = "llm_fixed"
	VerdictMatch    ArbiterVerdict = "match"
)

// AudioSegment is the unit of timed audio assembled into the final track.
// DurationSec is always measured from the synthesized WAV, never
// estimated from text.
type AudioSegment struct {
	Text              string         `json:"text"`
	Reading           string         `json:"reading"`
	PrePauseSec       float64        `json:"pre_pause_sec"`
	PostPauseSec      float64        `json:"post_pause_sec"`
	IsHeading         bool           `json:"is_heading"`
	HeadingLevel      int            `json:"heading_level,omitempty"`
	OriginalLineIndex int            `json:"original_line_index"`
	WavPath           string         `json:"wav_path,omitempty"`
	DurationSec       float64        `json:"duration_sec"`
	MecabReading      string         `json:"mecab_reading,omitempty"`
	VoicevoxReading   string         `json:"voicevox_reading,omitempty"`
	ArbiterVerdict    ArbiterVerdict `json:"arbiter_verdict"`
}

// PipelineResult is the terminal artifact bundle of one pipeline run.
// It is never mutated after return.
type PipelineResult struct {
	WavPath     string         `json:"wav_path"`
	SRTPath     string         `json:"srt_path"`
	LogPath     string         `json:"log_path"`
	SampleRate  int            `json:"sample_rate"`
	DurationSec float64        `json:"duration_sec"`
	Segments    []AudioSegment `json:"segments"`
}

// SilenceTag is an inline pause directive detected in the source text,
// of the form [<seconds>] or [<seconds>s].
type SilenceTag struct {
	Tag       string  `json:"tag"`
	Seconds   float64 `json:"seconds"`
	CharStart int     `json:"char_start"`
	CharEnd   int     `json:"char_end"`
}

// ControlCharWarning records a C0/C1 control character found during
// preprocessing. The character is reported, not removed; the caller
// decides whether to fail or proceed.
type ControlCharWarning struct {
	Position  int    `json:"position"`
	CodePoint string `json:"code_point"`
}

// PreprocessMeta carries everything the preprocessor observed besides the
// cleaned text itself.
type PreprocessMeta struct {
	SilenceTags  []SilenceTag         `json:"silence_tags,omitempty"`
	ControlChars []ControlCharWarning `json:"control_chars,omitempty"`
	Headings     []Heading            `json:"headings,omitempty"`
}

// Heading is a markdown heading observed (and possibly stripped) during
// preprocessing, keyed by the line index of the cleaned text.
type Heading struct {
	LineIndex int `json:"line_index"`
	Level     int `json:"level"`
}

// QAIssue is one suspicious condition found while checking the final
// segment list.
type QAIssue struct {
	SegmentIndex int    `json:"segment_index"`
	Kind         string `json:"kind"`
	Detail       string `json:"detail"`
}

// KanaEngine is the engine-side reading of the whole text, kept raw for
// the audit log and normalized for comparison.
type KanaEngine struct {
	Raw           string `json:"raw"`
	Normalized    string `json:"normalized"`
	ReadingSource string `json:"reading_source"`
}
